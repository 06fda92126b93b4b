package kernel

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableController struct{}

func (tableController) Action(name string) (ActionFunc, bool) {
	if name != "list" {
		return nil, false
	}
	return func(context.Context, *Request) (ActionResult, error) {
		return Body("listed"), nil
	}, true
}

type oddController struct{}

func (oddController) Wrong(string) string { return "" }

func TestInvokeAction(t *testing.T) {
	ctx := context.Background()
	req := newRequest(http.MethodGet, "/")
	req.SetAttributes(RouteAttributes{"slug": "hi"})

	tests := []struct {
		name       string
		controller any
		action     string
		want       ActionResult
		wantErr    error
	}{
		{name: "method", controller: &postController{}, action: "ShowAction", want: Body("post hi")},
		{name: "action provider", controller: tableController{}, action: "list", want: Body("listed")},
		{name: "invoker", controller: healthCheck{}, want: Body("ok")},
		{name: "no controller", wantErr: ErrControllerNotSet},
		{name: "not invokable", controller: &postController{}, wantErr: ErrControllerNotInvokable},
		{name: "missing method", controller: &postController{}, action: "DeleteAction", wantErr: ErrActionNotFound},
		{name: "missing provided action", controller: tableController{}, action: "show", wantErr: ErrActionNotFound},
		{name: "wrong signature", controller: oddController{}, action: "Wrong", wantErr: ErrActionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := InvokeAction(ctx, tt.controller, tt.action, req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestBaseController(t *testing.T) {
	var c BaseController
	_, err := c.Service("mailer")
	assert.ErrorIs(t, err, ErrServiceNotFound)
	_, err = c.Response()
	assert.ErrorIs(t, err, ErrServiceNotFound)

	registry := NewServiceRegistry()
	resp := NewResponse()
	registry.Set(ServiceResponse, resp)
	c.SetServiceRegistry(registry)

	got, err := c.Response()
	require.NoError(t, err)
	assert.Same(t, resp, got)

	router := blogRouter("/app")
	c.SetControllerOptions(ControllerOptions{
		Environment: EnvDevelopment,
		Routing:     NewRoutingHelper(router, "post_show", map[string]string{"slug": "hello"}),
	})
	assert.Equal(t, EnvDevelopment, c.Environment())
	assert.Equal(t, "post_show", c.Routing().ActiveRoute())
	assert.Equal(t, "hello", c.Routing().Param("slug"))
	assert.Equal(t, map[string]string{"slug": "hello"}, c.Routing().Params())

	uri, err := c.Routing().URL("not_found", nil)
	require.NoError(t, err)
	assert.Equal(t, "/app/404", uri)
}

func TestBaseModule_Dispatch(t *testing.T) {
	module := NewBaseModule("BlogModule", "", "/srv/blog")
	assert.Equal(t, "BlogModule", module.Alias())
	assert.Equal(t, "/srv/blog", module.Path())

	_, err := module.Dispatch(context.Background(), newRequest(http.MethodGet, "/"))
	assert.ErrorIs(t, err, ErrControllerNotSet)

	module.SetController(healthCheck{})
	module.SetActionName("")
	result, err := module.Dispatch(context.Background(), newRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, Body("ok"), result)
}

func TestLookupAction_NilController(t *testing.T) {
	_, err := lookupAction(nil, "ShowAction")
	assert.ErrorIs(t, err, ErrActionNotFound)
}
