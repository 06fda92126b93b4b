package chimux

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/GoCodeAlone/kernel"
	"github.com/go-chi/chi/v5"
)

// Error definitions for the chimux router.
var (
	ErrInvalidRoute          = errors.New("invalid route")
	ErrDuplicateRoute        = errors.New("route already defined")
	ErrMissingRouteParameter = errors.New("missing route parameter")
	ErrRoutesUnreadable      = errors.New("unable to read routing resource")
)

// Route is a named route. Path uses chi patterns: "/posts/{slug}",
// "/posts/{id:[0-9]+}", "/files/*". Defaults become request attributes when
// the route matches and usually carry _module and _controller.
type Route struct {
	Name     string            `yaml:"-"`
	Path     string            `yaml:"path"`
	Methods  []string          `yaml:"methods"`
	Defaults map[string]string `yaml:"defaults"`
}

func (r Route) allows(method string) bool {
	return len(r.Methods) == 0 || slices.Contains(r.Methods, method)
}

// routeTable is an immutable snapshot of the routes. Reloads build a new
// table and swap it in.
type routeTable struct {
	mux       *chi.Mux
	routes    map[string]Route
	byPattern map[string][]string
}

func newRouteTable() *routeTable {
	return &routeTable{
		mux:       chi.NewRouter(),
		routes:    make(map[string]Route),
		byPattern: make(map[string][]string),
	}
}

func (t *routeTable) add(route Route) (err error) {
	if route.Name == "" {
		return fmt.Errorf("%w: route name is empty", ErrInvalidRoute)
	}
	if !strings.HasPrefix(route.Path, "/") {
		return fmt.Errorf("%w: %s: path %q must begin with '/'", ErrInvalidRoute, route.Name, route.Path)
	}
	if _, exists := t.routes[route.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, route.Name)
	}

	methods := make([]string, 0, len(route.Methods))
	for _, m := range route.Methods {
		methods = append(methods, strings.ToUpper(m))
	}
	route.Methods = methods
	route.Defaults = maps.Clone(route.Defaults)

	// chi panics on malformed patterns and on methods it does not know.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInvalidRoute, route.Name, r)
		}
	}()
	if len(route.Methods) == 0 {
		t.mux.HandleFunc(route.Path, noopHandler)
	} else {
		for _, m := range route.Methods {
			t.mux.MethodFunc(m, route.Path, noopHandler)
		}
	}

	key := patternKey(route.Path)
	t.routes[route.Name] = route
	t.byPattern[key] = append(t.byPattern[key], route.Name)
	return nil
}

func (t *routeTable) match(method, path string) (RouteMatch, bool) {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, method, path) {
		return RouteMatch{}, false
	}
	for _, name := range t.byPattern[patternKey(rctx.RoutePattern())] {
		route := t.routes[name]
		if !route.allows(method) {
			continue
		}
		params := make(map[string]string, len(rctx.URLParams.Keys))
		for i, k := range rctx.URLParams.Keys {
			params[k] = rctx.URLParams.Values[i]
		}
		return RouteMatch{Route: route, Params: params}, true
	}
	return RouteMatch{}, false
}

// patternKey normalizes a pattern the way chi reports matched patterns.
func patternKey(pattern string) string {
	if pattern != "/" {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	return pattern
}

func noopHandler(http.ResponseWriter, *http.Request) {}

// RouteMatch is a matched route along with the values of its URL
// parameters.
type RouteMatch struct {
	Route  Route
	Params map[string]string
}

// Attributes returns the request attributes for the match: the route
// defaults, overridden by URL parameters, plus the route name.
func (m RouteMatch) Attributes() kernel.RouteAttributes {
	attrs := make(kernel.RouteAttributes, len(m.Route.Defaults)+len(m.Params)+1)
	maps.Copy(attrs, m.Route.Defaults)
	maps.Copy(attrs, m.Params)
	attrs[kernel.AttrRoute] = m.Route.Name
	return attrs
}

// Router implements kernel.Router on top of a chi mux. Routes come from
// AddRoute or from a YAML routing resource, which is reloaded on WarmUp
// once it changes.
type Router struct {
	mu       sync.RWMutex
	table    *routeTable
	context  kernel.RequestContext
	resource string
	stale    bool
	logger   kernel.Logger
	watcher  *watcher
}

// NewRouter creates an empty router mounted at reqCtx.BaseURL.
func NewRouter(reqCtx kernel.RequestContext, logger kernel.Logger) *Router {
	if logger == nil {
		logger = kernel.Logger(discard{})
	}
	reqCtx.BaseURL = strings.TrimSuffix(reqCtx.BaseURL, "/")
	return &Router{
		table:   newRouteTable(),
		context: reqCtx,
		logger:  logger,
	}
}

// AddRoute registers a route.
func (r *Router) AddRoute(route Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.add(route)
}

// SetResource sets the routing file loaded by WarmUp. Routes added with
// AddRoute are replaced when the file is loaded.
func (r *Router) SetResource(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resource = path
	r.stale = true
}

// Resource returns the routing file, if any.
func (r *Router) Resource() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resource
}

// Invalidate marks the routing resource as changed.
func (r *Router) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resource != "" {
		r.stale = true
	}
}

// WarmUp loads the routing resource when it has not been loaded yet or
// changed since.
func (r *Router) WarmUp(_ context.Context) error {
	r.mu.RLock()
	resource, stale := r.resource, r.stale
	r.mu.RUnlock()
	if !stale {
		return nil
	}

	table, err := loadRouteFile(resource)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.table = table
	r.stale = false
	r.mu.Unlock()
	r.logger.Debug("Loaded routes", "resource", resource, "routes", len(table.routes))
	return nil
}

// MatchRequest matches the request's method and path info.
func (r *Router) MatchRequest(ctx context.Context, req *kernel.Request) (kernel.RouteAttributes, error) {
	return r.Match(ctx, req.Method(), req.PathInfo())
}

// Match matches a path relative to the base URL.
func (r *Router) Match(_ context.Context, method, path string) (kernel.RouteAttributes, error) {
	if path == "" {
		path = "/"
	}
	r.mu.RLock()
	table := r.table
	r.mu.RUnlock()

	match, ok := table.match(strings.ToUpper(method), path)
	if !ok {
		return nil, fmt.Errorf("%w for \"%s %s\"", kernel.ErrRouteNotFound, method, path)
	}
	return match.Attributes(), nil
}

// Routes returns the route names, sorted.
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.table.routes))
	for name := range r.table.routes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Route returns a route by name.
func (r *Router) Route(name string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.table.routes[name]
	return route, ok
}

var paramPattern = regexp.MustCompile(`\{([^}:]+)(?::[^}]*)?\}`)

// Generate builds the path of a named route, base URL included. Params
// that do not appear in the pattern are appended as a query string.
func (r *Router) Generate(name string, params map[string]string) (string, error) {
	route, ok := r.Route(name)
	if !ok {
		return "", fmt.Errorf("%w: no route named %q", kernel.ErrRouteNotFound, name)
	}

	used := make(map[string]bool)
	var missing []string
	path := paramPattern.ReplaceAllStringFunc(route.Path, func(segment string) string {
		key := paramPattern.FindStringSubmatch(segment)[1]
		used[key] = true
		if v, ok := params[key]; ok {
			return url.PathEscape(v)
		}
		if v, ok := route.Defaults[key]; ok {
			return url.PathEscape(v)
		}
		missing = append(missing, key)
		return segment
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: route %q needs %s", ErrMissingRouteParameter, name, strings.Join(missing, ", "))
	}
	if strings.HasSuffix(path, "*") {
		used["*"] = true
		path = strings.TrimSuffix(path, "*") + params["*"]
	}

	query := url.Values{}
	for k, v := range params {
		if !used[k] && !strings.HasPrefix(k, "_") {
			query.Set(k, v)
		}
	}

	uri := r.Context().BaseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	return uri, nil
}

// Context returns where the router is mounted.
func (r *Router) Context() kernel.RequestContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.context
}

// Close stops watching the routing resource.
func (r *Router) Close() error {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.close()
}

type discard struct{}

func (discard) Info(string, ...any)  {}
func (discard) Error(string, ...any) {}
func (discard) Warn(string, ...any)  {}
func (discard) Debug(string, ...any) {}
