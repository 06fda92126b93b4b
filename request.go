package kernel

import (
	"net/http"
	"strings"
)

// Reserved route attribute keys.
const (
	AttrModule     = "_module"
	AttrController = "_controller"
	AttrRoute      = "_route"
)

// RouteAttributes are the values a router attaches to a matched request.
type RouteAttributes map[string]string

// Request is the kernel's view of an incoming HTTP request.
type Request struct {
	HTTP       *http.Request
	BaseURL    string
	Attributes RouteAttributes
}

// NewRequest wraps an *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{
		HTTP:       r,
		Attributes: make(RouteAttributes),
	}
}

// Method returns the HTTP method, defaulting to GET.
func (r *Request) Method() string {
	if r.HTTP == nil || r.HTTP.Method == "" {
		return http.MethodGet
	}
	return r.HTTP.Method
}

// Path returns the full request path.
func (r *Request) Path() string {
	if r.HTTP == nil || r.HTTP.URL == nil {
		return "/"
	}
	if r.HTTP.URL.Path == "" {
		return "/"
	}
	return r.HTTP.URL.Path
}

// PathInfo returns the request path relative to BaseURL.
func (r *Request) PathInfo() string {
	return StripBaseURL(r.Path(), r.BaseURL)
}

// Attribute returns a route attribute.
func (r *Request) Attribute(key string) string {
	return r.Attributes[key]
}

// SetAttributes merges attrs into the request attributes.
func (r *Request) SetAttributes(attrs RouteAttributes) {
	if r.Attributes == nil {
		r.Attributes = make(RouteAttributes, len(attrs))
	}
	for k, v := range attrs {
		r.Attributes[k] = v
	}
}

// StripBaseURL removes a leading baseURL segment from path so that an
// absolute path becomes router relative.
func StripBaseURL(path, baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return path
	}
	rest, ok := strings.CutPrefix(path, baseURL)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return path
	}
	if rest == "" {
		return "/"
	}
	return rest
}

// RouteMatch is the routing outcome of a single dispatch.
type RouteMatch struct {
	RouteName   string
	ModuleAlias string
	Controller  string
	Action      string
	Params      map[string]string
}

// NewRouteMatch splits attributes into reserved keys and user params.
func NewRouteMatch(attrs RouteAttributes) RouteMatch {
	match := RouteMatch{
		RouteName:   attrs[AttrRoute],
		ModuleAlias: attrs[AttrModule],
		Controller:  attrs[AttrController],
		Params:      make(map[string]string),
	}
	for k, v := range attrs {
		switch k {
		case AttrRoute, AttrModule, AttrController:
			continue
		}
		match.Params[k] = v
	}
	return match
}
