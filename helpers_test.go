package kernel

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errActionFailed = errors.New("action failed")

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger keeps every entry for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("error", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }

func (l *recordingLogger) find(level, msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

// stubRouter matches exact paths.
type stubRouter struct {
	mu       sync.Mutex
	baseURL  string
	routes   map[string]RouteAttributes
	urls     map[string]string
	matchErr error
	warmUps  int
	matched  []string
}

func (r *stubRouter) WarmUp(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warmUps++
	return nil
}

func (r *stubRouter) MatchRequest(ctx context.Context, req *Request) (RouteAttributes, error) {
	if r.matchErr != nil {
		return nil, r.matchErr
	}
	return r.Match(ctx, req.Method(), req.PathInfo())
}

func (r *stubRouter) Match(_ context.Context, method, path string) (RouteAttributes, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matched = append(r.matched, method+" "+path)
	attrs, ok := r.routes[path]
	if !ok {
		return nil, fmt.Errorf("%w for \"%s %s\"", ErrRouteNotFound, method, path)
	}
	return maps.Clone(attrs), nil
}

func (r *stubRouter) Generate(name string, _ map[string]string) (string, error) {
	uri, ok := r.urls[name]
	if !ok {
		return "", fmt.Errorf("%w: no route named %q", ErrRouteNotFound, name)
	}
	return r.baseURL + uri, nil
}

func (r *stubRouter) Context() RequestContext {
	return RequestContext{BaseURL: r.baseURL}
}

func (r *stubRouter) lastMatch() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.matched) == 0 {
		return ""
	}
	return r.matched[len(r.matched)-1]
}

func route(name, controller string, params ...string) RouteAttributes {
	attrs := RouteAttributes{AttrRoute: name, AttrModule: "blog"}
	if controller != "" {
		attrs[AttrController] = controller
	}
	for i := 0; i+1 < len(params); i += 2 {
		attrs[params[i]] = params[i+1]
	}
	return attrs
}

func blogRouter(baseURL string) *stubRouter {
	return &stubRouter{
		baseURL: baseURL,
		routes: map[string]RouteAttributes{
			"/posts/hello": route("post_show", "blog:Post:show", "slug", "hello"),
			"/default":     route("post_default", "blog:Post:default"),
			"/custom":      route("post_custom", "blog:Post:custom"),
			"/nil":         route("post_nil", "blog:Post:nil"),
			"/fail":        route("post_fail", "blog:Post:fail"),
			"/route":       route("post_route", "blog:Post:route"),
			"/orphan":      route("orphan", ""),
			"/404":         route("not_found", "blog:Error:notFound"),
		},
		urls: map[string]string{"not_found": "/404"},
	}
}

type postController struct {
	BaseController
}

func (c *postController) ShowAction(_ context.Context, req *Request) (ActionResult, error) {
	return Body("post " + req.Attribute("slug")), nil
}

func (c *postController) DefaultAction(context.Context, *Request) (ActionResult, error) {
	resp, err := c.Response()
	if err != nil {
		return nil, err
	}
	resp.Header.Set("X-Action", "default")
	resp.SetContent("written")
	return UseDefaultResponse(), nil
}

func (c *postController) CustomAction(context.Context, *Request) (ActionResult, error) {
	resp := NewResponse()
	resp.Status = http.StatusCreated
	resp.SetContent("created")
	return Respond(resp), nil
}

func (c *postController) NilAction(context.Context, *Request) (ActionResult, error) {
	return nil, nil
}

func (c *postController) FailAction(context.Context, *Request) (ActionResult, error) {
	return nil, errActionFailed
}

func (c *postController) RouteAction(context.Context, *Request) (ActionResult, error) {
	return Body(c.Routing().ActiveRoute() + " " + string(c.Environment())), nil
}

type errorController struct {
	BaseController
}

func (c *errorController) NotFoundAction(context.Context, *Request) (ActionResult, error) {
	resp, err := c.Response()
	if err != nil {
		return nil, err
	}
	resp.Status = http.StatusNotFound
	return Body("not found"), nil
}

type blogModule struct {
	BaseModule
	mu      sync.Mutex
	inits   int
	initErr error
}

func newBlogModule() *blogModule {
	return &blogModule{BaseModule: NewBaseModule("BlogModule", "blog", "")}
}

func (m *blogModule) Init(context.Context, Host) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	return m.initErr
}

func (m *blogModule) initCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits
}

func (m *blogModule) Controllers() []ControllerDefinition {
	return []ControllerDefinition{
		{Name: "Post", Factory: func() any { return &postController{} }},
		{Name: "ErrorController", Factory: func() any { return &errorController{} }},
	}
}

// routerModule provides a Router as the "router" service.
type routerModule struct {
	BaseModule
	router Router
}

func newRouterModule(router Router) *routerModule {
	return &routerModule{BaseModule: NewBaseModule("routing", "", ""), router: router}
}

func (m *routerModule) ServiceFactories() []ServiceDefinition {
	return []ServiceDefinition{{
		Name:    ServiceRouter,
		Factory: func(ServiceRegistry) (any, error) { return m.router, nil },
	}}
}

// newBlogApp creates an App with the blog module and router. RootDir
// defaults to a temp dir so no config files are discovered.
func newBlogApp(t *testing.T, opts Options, router Router, extra ...Option) (*App, *blogModule) {
	t.Helper()
	if opts.RootDir == "" {
		opts.RootDir = t.TempDir()
	}
	blog := newBlogModule()
	options := []Option{
		WithModules(newRouterModule(router), blog),
		WithEnviron(func() []string { return nil }),
	}
	app, err := New(opts, append(append([]Option(nil), options...), extra...)...)
	require.NoError(t, err)
	return app, blog
}

func newRequest(method, path string) *Request {
	return NewRequest(httptest.NewRequest(method, path, nil))
}
