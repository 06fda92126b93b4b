package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Environment is the environment the application runs in.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ParseEnvironment validates an environment name.
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(strings.ToLower(strings.TrimSpace(s)))
	switch env {
	case EnvDevelopment, EnvProduction:
		return env, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEnvironment, s)
}

// Default option values.
const (
	DefaultEnvPrefix     = "APP"
	DefaultCharset       = "UTF-8"
	DefaultNotFoundRoute = "not_found"
)

// Options are the application options. Zero values are replaced with
// defaults by New.
type Options struct {
	Environment   Environment `yaml:"environment" json:"environment"`
	Debug         bool        `yaml:"debug" json:"debug"`
	RootDir       string      `yaml:"root_dir" json:"root_dir"`
	Name          string      `yaml:"name" json:"name"`
	CacheDir      string      `yaml:"cache_dir" json:"cache_dir"`
	LogDir        string      `yaml:"log_dir" json:"log_dir"`
	Charset       string      `yaml:"charset" json:"charset"`
	NotFoundRoute string      `yaml:"not_found_route" json:"not_found_route"`
	EnvPrefix     string      `yaml:"env_prefix" json:"env_prefix"`
}

// optionKeys lists every key accepted by ParseOptions and App.SetOption.
var optionKeys = []string{
	"environment", "debug", "root_dir", "name", "cache_dir",
	"log_dir", "charset", "not_found_route", "env_prefix",
}

// ParseOptions builds Options from a loosely typed bag, such as one decoded
// from a config file. Unknown keys are rejected.
func ParseOptions(bag map[string]any) (Options, error) {
	var opts Options
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := opts.set(k, bag[k]); err != nil {
			return Options{}, err
		}
	}
	return opts, nil
}

// LoadOptionsFile decodes Options from a YAML file, rejecting unknown keys.
func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %s: %w", ErrConfigFileUnreadable, path, err)
	}
	defer f.Close()

	var opts Options
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		if strings.Contains(err.Error(), "not found in type") {
			return Options{}, fmt.Errorf("%w: %s: %w", ErrUnknownOption, path, err)
		}
		return Options{}, fmt.Errorf("%w: %s: %w", ErrInvalidOptionValue, path, err)
	}
	if opts.Environment != "" {
		if opts.Environment, err = ParseEnvironment(string(opts.Environment)); err != nil {
			return Options{}, err
		}
	}
	return opts, nil
}

func (o *Options) set(key string, value any) error {
	switch key {
	case "environment":
		s, err := optionString(key, value)
		if err != nil {
			return err
		}
		env, err := ParseEnvironment(s)
		if err != nil {
			return err
		}
		o.Environment = env
	case "debug":
		b, err := optionBool(key, value)
		if err != nil {
			return err
		}
		o.Debug = b
	case "root_dir", "name", "cache_dir", "log_dir", "charset", "not_found_route", "env_prefix":
		s, err := optionString(key, value)
		if err != nil {
			return err
		}
		*o.stringField(key) = s
	default:
		return fmt.Errorf("%w: %s (known options: %s)", ErrUnknownOption, key, strings.Join(optionKeys, ", "))
	}
	return nil
}

func (o *Options) stringField(key string) *string {
	switch key {
	case "root_dir":
		return &o.RootDir
	case "name":
		return &o.Name
	case "cache_dir":
		return &o.CacheDir
	case "log_dir":
		return &o.LogDir
	case "charset":
		return &o.Charset
	case "not_found_route":
		return &o.NotFoundRoute
	default:
		return &o.EnvPrefix
	}
}

func optionString(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidOptionValue, key, value)
	}
	return s, nil
}

func optionBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := cast.FromType(v, reflect.TypeOf(false))
		if err != nil {
			return false, fmt.Errorf("%w: %s: %w", ErrInvalidOptionValue, key, err)
		}
		return b.(bool), nil
	}
	return false, fmt.Errorf("%w: %s must be a bool, got %T", ErrInvalidOptionValue, key, value)
}

// withDefaults fills unset options. name is the fallback application name.
func (o Options) withDefaults(name string) (Options, error) {
	if o.Environment == "" {
		o.Environment = EnvProduction
	} else {
		env, err := ParseEnvironment(string(o.Environment))
		if err != nil {
			return o, err
		}
		o.Environment = env
	}
	if o.RootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return o, fmt.Errorf("resolving working directory: %w", err)
		}
		o.RootDir = filepath.Join(wd, "app")
	}
	if o.Name == "" {
		o.Name = name
	}
	if o.CacheDir == "" {
		o.CacheDir = filepath.Join(o.RootDir, "cache", string(o.Environment))
	}
	if o.LogDir == "" {
		o.LogDir = filepath.Join(o.RootDir, "logs")
	}
	if o.Charset == "" {
		o.Charset = DefaultCharset
	}
	if o.NotFoundRoute == "" {
		o.NotFoundRoute = DefaultNotFoundRoute
	}
	if o.EnvPrefix == "" {
		o.EnvPrefix = DefaultEnvPrefix
	}
	return o, nil
}

// Option configures the application's collaborators.
type Option func(*App) error

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(app *App) error {
		app.logger = logger
		return nil
	}
}

// WithModules registers modules with the module manager, in load order.
func WithModules(modules ...Module) Option {
	return func(app *App) error {
		app.pending = append(app.pending, modules...)
		return nil
	}
}

// WithModuleManager replaces the default module manager.
func WithModuleManager(manager ModuleManager) Option {
	return func(app *App) error {
		app.modules = manager
		return nil
	}
}

// WithNameParser replaces the parser used for module:controller:action
// controller names.
func WithNameParser(parser ControllerNameParser) Option {
	return func(app *App) error {
		app.nameParser = parser
		return nil
	}
}

// WithObserver registers an observer for the given event types, or for
// every event when none are given.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(app *App) error {
		return app.RegisterObserver(observer, eventTypes...)
	}
}

// WithMetrics records dispatch metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(app *App) error {
		app.metrics = metrics
		return nil
	}
}

// WithEnviron replaces os.Environ as the source of environment parameters.
func WithEnviron(environ func() []string) Option {
	return func(app *App) error {
		app.environ = environ
		return nil
	}
}

// WithConfigFiles sets the configuration files loaded at boot, in order.
// Without it, config files are discovered under <root_dir>/config.
func WithConfigFiles(paths ...string) Option {
	return func(app *App) error {
		app.configFiles = append(app.configFiles, paths...)
		return nil
	}
}

// Options returns the effective options, defaults included.
func (app *App) Options() Options {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.options
}

func (app *App) Environment() Environment { return app.Options().Environment }
func (app *App) Debug() bool              { return app.Options().Debug }
func (app *App) RootDir() string          { return app.Options().RootDir }
func (app *App) Name() string             { return app.Options().Name }

// SetOption changes a single option by its bag key. It fails with
// ErrAlreadyBooted once the App is booted.
func (app *App) SetOption(key string, value any) error {
	return app.mutate(func(o *Options) error {
		return o.set(key, value)
	})
}

func (app *App) SetEnvironment(env Environment) error {
	return app.SetOption("environment", string(env))
}

func (app *App) SetDebug(debug bool) error {
	return app.SetOption("debug", debug)
}

func (app *App) SetRootDir(dir string) error {
	return app.SetOption("root_dir", dir)
}

func (app *App) SetName(name string) error {
	return app.SetOption("name", name)
}

// mutate applies fn to a copy of the user supplied options and recomputes
// defaults. Options are left untouched when fn or the defaults fail.
func (app *App) mutate(fn func(*Options) error) error {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.booted {
		return ErrAlreadyBooted
	}

	raw := app.raw
	if err := fn(&raw); err != nil {
		return err
	}
	resolved, err := raw.withDefaults(defaultAppName)
	if err != nil {
		return err
	}
	app.raw = raw
	app.options = resolved
	return nil
}
