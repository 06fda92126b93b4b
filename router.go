package kernel

import (
	"context"
	"maps"
)

// RequestContext describes where the router is mounted.
type RequestContext struct {
	BaseURL string
	Host    string
	Scheme  string
}

// Router is the contract the kernel needs from a routing implementation.
// Match failures must wrap ErrRouteNotFound.
type Router interface {
	// WarmUp prepares the route table before matching.
	WarmUp(ctx context.Context) error

	// MatchRequest matches the request's path info and method.
	MatchRequest(ctx context.Context, req *Request) (RouteAttributes, error)

	// Match matches a router relative path.
	Match(ctx context.Context, method, path string) (RouteAttributes, error)

	// Generate builds the absolute path of a named route, base URL included.
	Generate(name string, params map[string]string) (string, error)

	Context() RequestContext
}

// RoutingHelper gives controllers access to the route that selected them
// and to URL generation.
type RoutingHelper struct {
	router Router
	route  string
	params map[string]string
}

// NewRoutingHelper creates a helper for the matched route.
func NewRoutingHelper(router Router, route string, params map[string]string) *RoutingHelper {
	return &RoutingHelper{
		router: router,
		route:  route,
		params: maps.Clone(params),
	}
}

// ActiveRoute returns the name of the matched route.
func (h *RoutingHelper) ActiveRoute() string {
	return h.route
}

// Params returns a copy of the route's user parameters.
func (h *RoutingHelper) Params() map[string]string {
	return maps.Clone(h.params)
}

// Param returns a single user parameter.
func (h *RoutingHelper) Param(key string) string {
	return h.params[key]
}

// URL generates the path of a named route.
func (h *RoutingHelper) URL(name string, params map[string]string) (string, error) {
	return h.router.Generate(name, params)
}
