// Package chimux provides a chi based router module for the kernel.
//
// The module builds a Router from the "router" configuration section and
// registers it as the "router" service, which the kernel uses to match
// incoming requests.
//
// Routes are declared in a YAML routing file:
//
//	blog_show:
//	  path: /posts/{slug}
//	  methods: [GET]
//	  defaults:
//	    _module: blog
//	    _controller: blog:Post:show
//	not_found:
//	  path: /404
//	  defaults:
//	    _module: app
//	    _controller: app:Error:notFound
//
// or added in code:
//
//	router := chimux.NewRouter(kernel.RequestContext{BaseURL: "/app"}, logger)
//	router.AddRoute(chimux.Route{Name: "home", Path: "/", Defaults: ...})
package chimux

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GoCodeAlone/kernel"
)

// ModuleName is the unique identifier for the chimux module.
const ModuleName = "chimux"

// ErrRouterNotInitialized is returned when the router service is requested
// before the module was initialized.
var ErrRouterNotInitialized = errors.New("chimux router not initialized")

// Module provides the kernel's router service.
type Module struct {
	kernel.BaseModule
	router *Router
	routes []Route
	config Config
	logger kernel.Logger
}

// NewModule creates the chimux module. The given routes serve until a
// configured routing resource is loaded, which replaces them.
func NewModule(routes ...Route) *Module {
	return &Module{
		BaseModule: kernel.NewBaseModule(ModuleName, "", ""),
		routes:     routes,
	}
}

// Init builds the router from the module configuration.
func (m *Module) Init(ctx context.Context, host kernel.Host) error {
	opts := host.Options()
	m.logger = host.Logger()
	m.config = loadConfig(host.Config(), opts.Debug)

	router := NewRouter(kernel.RequestContext{
		BaseURL: m.config.BaseURL,
		Host:    m.config.Host,
		Scheme:  m.config.Scheme,
	}, m.logger)

	for _, route := range m.routes {
		if err := router.AddRoute(route); err != nil {
			return err
		}
	}

	if m.config.Resource != "" {
		resource, err := m.resolveResource(host, m.config.Resource)
		if err != nil {
			return err
		}
		router.SetResource(resource)
		if err := router.WarmUp(ctx); err != nil {
			return err
		}
		if m.config.Watch {
			// The watcher outlives boot; Close stops it.
			if err := router.Watch(context.WithoutCancel(ctx)); err != nil {
				return err
			}
		}
	}

	m.router = router
	m.logger.Debug("Chimux module initialized", "base_url", m.config.BaseURL,
		"resource", router.Resource(), "routes", len(router.Routes()), "watch", m.config.Watch)
	return nil
}

func (m *Module) resolveResource(host kernel.Host, resource string) (string, error) {
	if strings.HasPrefix(resource, "@") {
		paths, err := host.LocateResource(resource, filepath.Join(host.Options().RootDir, "resources"), true)
		if err != nil {
			return "", fmt.Errorf("failed to locate routing resource: %w", err)
		}
		return paths[0], nil
	}
	if !filepath.IsAbs(resource) {
		resource = filepath.Join(host.Options().RootDir, resource)
	}
	return resource, nil
}

// ServiceFactories declares the "router" service.
func (m *Module) ServiceFactories() []kernel.ServiceDefinition {
	return []kernel.ServiceDefinition{
		{
			Name:        kernel.ServiceRouter,
			Description: "chi backed router matching requests to controllers",
			Factory: func(kernel.ServiceRegistry) (any, error) {
				if m.router == nil {
					return nil, ErrRouterNotInitialized
				}
				return m.router, nil
			},
		},
	}
}

// Router returns the module's router, nil before Init.
func (m *Module) Router() *Router {
	return m.router
}

// Config returns the configuration read by Init.
func (m *Module) Config() Config {
	return m.config
}

// Close stops the route watcher.
func (m *Module) Close() error {
	if m.router == nil {
		return nil
	}
	return m.router.Close()
}
