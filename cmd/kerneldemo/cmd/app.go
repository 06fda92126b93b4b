package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GoCodeAlone/kernel"
	"github.com/GoCodeAlone/kernel/modules/chimux"
	"github.com/prometheus/client_golang/prometheus"
)

// appSettings are the persistent flags shared by every command.
type appSettings struct {
	optionsFile string
	routesFile  string
	baseURL     string
	environment string
	debug       bool
}

func (s *appSettings) options() (kernel.Options, error) {
	var opts kernel.Options
	if s.optionsFile != "" {
		loaded, err := kernel.LoadOptionsFile(s.optionsFile)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}
	if s.environment != "" {
		env, err := kernel.ParseEnvironment(s.environment)
		if err != nil {
			return opts, err
		}
		opts.Environment = env
	}
	if s.debug {
		opts.Debug = true
	}
	if opts.Name == "" {
		opts.Name = "kerneldemo"
	}
	return opts, nil
}

// environ passes the router flags to the chimux module through the
// environment parameter convention.
func (s *appSettings) environ(prefix string) func() []string {
	return func() []string {
		env := os.Environ()
		if s.routesFile != "" {
			path, err := filepath.Abs(s.routesFile)
			if err != nil {
				path = s.routesFile
			}
			env = append(env, prefix+"__router__resource="+path)
		}
		if s.baseURL != "" {
			env = append(env, prefix+"__router__base_url="+s.baseURL)
		}
		return env
	}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// demoApp is a configured, not yet booted application.
type demoApp struct {
	app    *kernel.App
	router *chimux.Module
}

func newDemoApp(s *appSettings, logger *slog.Logger, reg prometheus.Registerer) (*demoApp, error) {
	opts, err := s.options()
	if err != nil {
		return nil, err
	}

	appOpts := []kernel.Option{
		kernel.WithLogger(logger),
		kernel.WithEnviron(s.environ(envPrefix(opts))),
	}
	if reg != nil {
		metrics, err := kernel.NewMetrics(reg)
		if err != nil {
			return nil, err
		}
		appOpts = append(appOpts, kernel.WithMetrics(metrics))
	}

	router := chimux.NewModule(demoRoutes...)
	appOpts = append(appOpts, kernel.WithModules(router, newBlogModule()))

	app, err := kernel.New(opts, appOpts...)
	if err != nil {
		return nil, err
	}
	return &demoApp{app: app, router: router}, nil
}

func envPrefix(opts kernel.Options) string {
	if opts.EnvPrefix != "" {
		return opts.EnvPrefix
	}
	return kernel.DefaultEnvPrefix
}
