// Package kernel provides the bootstrap and request-dispatch layer of a
// modular web application framework.
//
// An App loads configuration, builds a service registry, loads modules,
// routes an incoming request to a module controller and action, invokes it
// and turns the action's result into a Response.
//
// Basic usage:
//
//	app, err := kernel.New(kernel.Options{Environment: kernel.EnvProduction},
//		kernel.WithLogger(slog.Default()),
//		kernel.WithModules(chimux.NewModule(), blog.NewModule()),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	resp, err := app.Dispatch(ctx, kernel.NewRequest(r))
package kernel

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/GoCodeAlone/kernel/feeders"
)

// App is the application kernel. Options can be changed until Boot; a
// booted App dispatches any number of requests, one at a time.
type App struct {
	mu         sync.Mutex
	dispatchMu sync.Mutex

	booted    bool
	raw       Options
	options   Options
	startTime time.Time

	config   *Config
	registry *StdServiceRegistry

	modules     ModuleManager
	pending     []Module
	nameParser  ControllerNameParser
	logger      Logger
	metrics     *Metrics
	observers   observers
	environ     func() []string
	configFiles []string

	request  *Request
	response *Response
}

// defaultAppName is used when Options.Name is empty.
var defaultAppName = strings.ToLower(reflect.TypeOf((*App)(nil)).Elem().Name())

// New creates an App. Options left at their zero value get defaults:
// production environment, <cwd>/app as root dir, "app" as name.
func New(options Options, opts ...Option) (*App, error) {
	resolved, err := options.withDefaults(defaultAppName)
	if err != nil {
		return nil, err
	}

	app := &App{
		raw:     options,
		options: resolved,
		environ: os.Environ,
	}
	if resolved.Debug {
		app.startTime = time.Now()
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		app.logger = discardLogger()
	}
	if app.modules == nil {
		app.modules = NewModuleManager(app.logger)
	}
	for _, m := range app.pending {
		if err := app.modules.Register(m); err != nil {
			return nil, err
		}
	}
	app.pending = nil

	return app, nil
}

// Boot builds the configuration and the service registry, loads modules and
// registers the services and controllers they declare. Calling Boot on a
// booted App does nothing. A failed boot leaves the App unbooted.
func (app *App) Boot(ctx context.Context) error {
	app.mu.Lock()
	if app.booted {
		app.mu.Unlock()
		return nil
	}
	modules, err := app.boot(ctx)
	app.mu.Unlock()
	if err != nil {
		return err
	}

	opts := app.Options()
	app.emit(ctx, EventTypeApplicationBooted, map[string]any{
		"name":        opts.Name,
		"environment": opts.Environment,
		"modules":     modules,
	})
	return nil
}

// boot runs with app.mu held.
func (app *App) boot(ctx context.Context) ([]string, error) {
	opts := app.options
	if opts.Debug && app.startTime.IsZero() {
		app.startTime = time.Now()
	}

	cfg, err := app.buildConfig(opts)
	if err != nil {
		return nil, err
	}

	registry := NewServiceRegistry()
	registry.Set(ServiceApp, app)
	registry.Set(ServiceConfig, cfg)
	registry.Set(ServiceLogger, app.logger)
	registry.Set(ServiceModuleManager, app.modules)

	parser := app.nameParser
	if parser == nil {
		parser = NewModuleNameParser(app.modules)
	}
	resolver := NewControllerResolver(registry, parser, app.logger)
	registry.Set(ServiceControllerNameParser, parser)
	registry.Set(ServiceControllerResolver, resolver)

	app.logger.Debug("Loading modules", "name", opts.Name, "environment", opts.Environment)
	host := &bootHost{app: app, options: opts, config: cfg}
	if err := app.modules.LoadModules(ctx, host); err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}

	modules := app.modules.Modules()
	if err := app.registerModuleDeclarations(modules, registry, resolver); err != nil {
		return nil, err
	}

	app.config = cfg
	app.registry = registry
	app.booted = true

	fields := []any{"modules", modules}
	if opts.Debug {
		fields = append(fields, "elapsed", time.Since(app.startTime))
	}
	app.logger.Debug("Modules loaded", fields...)
	return modules, nil
}

// buildConfig merges config files, kernel parameters and environment
// parameters, in that order.
func (app *App) buildConfig(opts Options) (*Config, error) {
	cfg := NewConfig()

	files := app.configFiles
	if len(files) == 0 {
		files = discoverConfigFiles(filepath.Join(opts.RootDir, "config"), opts.Environment)
	}
	for _, path := range files {
		feeder, err := feeders.ForFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigFileUnreadable, err)
		}
		if err := cfg.Feed(feeder); err != nil {
			return nil, err
		}
		app.logger.Debug("Loaded config file", "path", path)
	}

	for _, p := range kernelParameters(opts) {
		cfg.Set(p.key, p.value)
	}

	if err := cfg.Feed(feeders.EnvFeeder{Prefix: opts.EnvPrefix, Environ: app.environ}); err != nil {
		return nil, err
	}
	return cfg, nil
}

type parameter struct {
	key   string
	value any
}

func kernelParameters(opts Options) []parameter {
	return []parameter{
		{"app.root_dir", opts.RootDir},
		{"app.environment", string(opts.Environment)},
		{"app.debug", opts.Debug},
		{"app.name", opts.Name},
		{"app.cache_dir", opts.CacheDir},
		{"app.log_dir", opts.LogDir},
		{"app.charset", opts.Charset},
	}
}

// registerModuleDeclarations registers module service factories and
// controller classes, in module order.
func (app *App) registerModuleDeclarations(names []string, registry ServiceRegistry, resolver *ControllerResolver) error {
	for _, name := range names {
		module, err := app.modules.Module(name)
		if err != nil {
			return err
		}

		if provider, ok := module.(ServiceFactoryProvider); ok {
			for _, def := range provider.ServiceFactories() {
				if def.Name == "" || def.Factory == nil {
					return fmt.Errorf("module '%s' declared an invalid service: %w", name, ErrServiceNameEmpty)
				}
				registry.SetFactory(def.Name, def.Factory)
				app.logger.Debug("Registered service factory", "module", name, "service", def.Name)
			}
		}

		if provider, ok := module.(ControllerProvider); ok {
			for _, def := range provider.Controllers() {
				class := ControllerClass(module.Name(), def.Name)
				if err := resolver.RegisterController(class, def.Factory); err != nil {
					return fmt.Errorf("module '%s' failed to register controller: %w", name, err)
				}
				app.logger.Debug("Registered controller", "module", name, "class", class)
			}
		}
	}
	return nil
}

// Dispatch routes req, resolves and runs its controller and returns the
// resulting response. It boots the App first if needed.
func (app *App) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	app.dispatchMu.Lock()
	defer app.dispatchMu.Unlock()

	start := time.Now()
	resp, err := app.dispatch(ctx, req)
	if err != nil {
		app.metrics.observeDispatch(OutcomeError, time.Since(start))
		app.emit(ctx, EventTypeDispatchFailed, map[string]any{
			"path":  req.Path(),
			"error": err.Error(),
		})
		return nil, err
	}

	app.metrics.observeDispatch(OutcomeSuccess, time.Since(start))
	app.emit(ctx, EventTypeDispatchCompleted, map[string]any{
		"path":   req.Path(),
		"route":  req.Attribute(AttrRoute),
		"status": resp.Status,
	})
	return resp, nil
}

func (app *App) dispatch(ctx context.Context, req *Request) (*Response, error) {
	if err := app.Boot(ctx); err != nil {
		return nil, err
	}

	// Request scoped services live in a child registry so nothing set
	// during this dispatch is visible to the next one.
	scope := app.rootRegistry().NewScope()
	scope.Set(ServiceRequest, req)
	scope.Set(ServiceResponse, NewResponse())
	ctx = WithServiceRegistry(ctx, scope)

	app.mu.Lock()
	app.request = req
	app.mu.Unlock()

	router, err := app.handleRouting(ctx, scope, req)
	if err != nil {
		return nil, err
	}

	resolver, err := Lookup[*ControllerResolver](scope, ServiceControllerResolver)
	if err != nil {
		return nil, err
	}
	ref, ok, err := resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w for path %q, the route has no _controller attribute", ErrControllerNotFound, req.PathInfo())
	}

	match := NewRouteMatch(req.Attributes)
	match.Action = ref.Method

	opts := app.Options()
	if aware, ok := ref.Instance.(OptionsAware); ok {
		aware.SetControllerOptions(ControllerOptions{
			Environment: opts.Environment,
			Debug:       opts.Debug,
			Routing:     NewRoutingHelper(router, match.RouteName, match.Params),
		})
	}

	module, err := app.modules.ModuleByAlias(match.ModuleAlias)
	if err != nil {
		return nil, err
	}
	module.SetControllerName(ref.Name)
	module.SetActionName(ref.Method)
	module.SetController(ref.Instance)

	active := ServiceRegistry(scope)
	if provider, ok := ref.Instance.(ServiceRegistryProvider); ok && provider.ServiceRegistry() != nil {
		active = provider.ServiceRegistry()
	}
	ctx = WithServiceRegistry(ctx, active)

	app.logger.Debug("Dispatching", "route", match.RouteName, "module", module.Name(),
		"controller", ref.Name, "action", ref.Method)

	result, err := module.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := normalizeResult(active, result)
	if err != nil {
		return nil, err
	}

	app.mu.Lock()
	app.response = resp
	app.mu.Unlock()
	return resp, nil
}

// normalizeResult turns an action result into the response to send.
func normalizeResult(registry ServiceRegistry, result ActionResult) (*Response, error) {
	switch r := result.(type) {
	case CustomResponseResult:
		if r.Response != nil {
			return r.Response, nil
		}
	case BodyResult:
		resp, err := Lookup[*Response](registry, ServiceResponse)
		if err != nil {
			return nil, err
		}
		resp.SetContent(string(r))
		return resp, nil
	}
	return Lookup[*Response](registry, ServiceResponse)
}

// HandleRouting matches req and stores the route attributes on it. In
// production a routing miss falls back to the not-found route; in debug the
// original error is returned.
func (app *App) HandleRouting(ctx context.Context, req *Request) error {
	if err := app.Boot(ctx); err != nil {
		return err
	}
	registry, ok := ServiceRegistryFromContext(ctx)
	if !ok {
		registry = app.rootRegistry()
	}
	_, err := app.handleRouting(ctx, registry, req)
	return err
}

func (app *App) handleRouting(ctx context.Context, registry ServiceRegistry, req *Request) (Router, error) {
	router, err := Lookup[Router](registry, ServiceRouter)
	if err != nil {
		return nil, err
	}
	if err := router.WarmUp(ctx); err != nil {
		return nil, fmt.Errorf("failed to warm up router: %w", err)
	}
	if req.BaseURL == "" {
		req.BaseURL = router.Context().BaseURL
	}

	attrs, err := router.MatchRequest(ctx, req)
	if err == nil {
		req.SetAttributes(attrs)
		return router, nil
	}

	opts := app.Options()
	if opts.Debug {
		logCritical(app.logger, "Unable to route request", "method", req.Method(), "path", req.Path(), "error", err)
		return nil, err
	}

	app.logger.Debug("Routing failed, using not-found route", "path", req.Path(), "route", opts.NotFoundRoute, "error", err)
	app.metrics.observeFallback()
	app.emit(ctx, EventTypeRoutingFallback, map[string]any{
		"path":  req.Path(),
		"route": opts.NotFoundRoute,
	})

	uri, genErr := router.Generate(opts.NotFoundRoute, nil)
	if genErr != nil {
		return nil, &NotFoundPageError{Route: opts.NotFoundRoute, Cause: err, FallbackCause: genErr}
	}

	fallback, matchErr := router.Match(ctx, http.MethodGet, StripBaseURL(uri, router.Context().BaseURL))
	if matchErr != nil {
		return nil, &NotFoundPageError{Route: opts.NotFoundRoute, Cause: err, FallbackCause: matchErr}
	}
	req.SetAttributes(fallback)
	return router, nil
}

func (app *App) rootRegistry() *StdServiceRegistry {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.registry
}

// ServiceRegistry returns the registry built by the last successful boot,
// or nil before boot.
func (app *App) ServiceRegistry() ServiceRegistry {
	if registry := app.rootRegistry(); registry != nil {
		return registry
	}
	return nil
}

// ModuleManager returns the module manager.
func (app *App) ModuleManager() ModuleManager {
	return app.modules
}

// LocateResource resolves an "@alias/path" module resource.
func (app *App) LocateResource(name, dir string, first bool) ([]string, error) {
	return app.modules.LocateResource(name, dir, first)
}

// Logger returns the application logger.
func (app *App) Logger() Logger {
	return app.logger
}

// Config returns the configuration built at boot, or nil before boot.
func (app *App) Config() *Config {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.config
}

// Booted reports whether Boot completed.
func (app *App) Booted() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.booted
}

// StartTime returns when the App started measuring boot time. It is zero
// unless debug is enabled.
func (app *App) StartTime() time.Time {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.startTime
}

// Request returns the request of the last dispatch.
func (app *App) Request() *Request {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.request
}

// Response returns the response of the last successful dispatch.
func (app *App) Response() *Response {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.response
}

// RegisterObserver subscribes observer to the given event types, or to all
// events when none are given.
func (app *App) RegisterObserver(observer Observer, eventTypes ...string) error {
	return app.observers.register(observer, eventTypes...)
}

// UnregisterObserver removes observer. Unknown observers are ignored.
func (app *App) UnregisterObserver(observer Observer) {
	app.observers.unregister(observer)
}

// Observers lists the registered observers.
func (app *App) Observers() []ObserverInfo {
	return app.observers.infos()
}

func (app *App) emit(ctx context.Context, eventType string, data map[string]any) {
	event := NewCloudEvent(eventType, "kernel/"+app.Options().Name, data)
	app.observers.notify(ctx, event, app.logger)
}

// bootHost is the Host handed to modules while the App is booting, before
// the configuration is published on the App.
type bootHost struct {
	app     *App
	options Options
	config  *Config
}

func (h *bootHost) Options() Options { return h.options }
func (h *bootHost) Config() *Config  { return h.config }
func (h *bootHost) Logger() Logger   { return h.app.logger }

func (h *bootHost) LocateResource(name, dir string, first bool) ([]string, error) {
	return h.app.modules.LocateResource(name, dir, first)
}
