package cmd

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/GoCodeAlone/kernel"
	"github.com/GoCodeAlone/kernel/modules/chimux"
)

// demoRoutes serve when no routing file is given.
var demoRoutes = []chimux.Route{
	{
		Name:     "home",
		Path:     "/",
		Methods:  []string{http.MethodGet},
		Defaults: map[string]string{kernel.AttrModule: "blog", kernel.AttrController: "blog:Post:index"},
	},
	{
		Name:     "post_show",
		Path:     "/posts/{slug}",
		Methods:  []string{http.MethodGet},
		Defaults: map[string]string{kernel.AttrModule: "blog", kernel.AttrController: "blog:Post:show"},
	},
	{
		Name:     "not_found",
		Path:     "/404",
		Defaults: map[string]string{kernel.AttrModule: "blog", kernel.AttrController: "blog:Error:notFound"},
	},
}

var posts = map[string]string{
	"hello-kernel": "The kernel routes requests to module controllers.",
	"on-modules":   "Modules ship controllers, services and resources.",
}

type blogModule struct {
	kernel.BaseModule
}

func newBlogModule() *blogModule {
	return &blogModule{BaseModule: kernel.NewBaseModule("BlogModule", "blog", "")}
}

func (m *blogModule) Controllers() []kernel.ControllerDefinition {
	return []kernel.ControllerDefinition{
		{Name: "Post", Factory: func() any { return &postController{} }},
		{Name: "Error", Factory: func() any { return &errorController{} }},
	}
}

type postController struct {
	kernel.BaseController
}

func (c *postController) IndexAction(context.Context, *kernel.Request) (kernel.ActionResult, error) {
	var b strings.Builder
	slugs := make([]string, 0, len(posts))
	for slug := range posts {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)
	for _, slug := range slugs {
		uri, err := c.Routing().URL("post_show", map[string]string{"slug": slug})
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "%s\t%s\n", slug, uri)
	}
	return kernel.Body(b.String()), nil
}

func (c *postController) ShowAction(_ context.Context, req *kernel.Request) (kernel.ActionResult, error) {
	body, ok := posts[req.Attribute("slug")]
	if !ok {
		resp := kernel.NewResponse()
		resp.Status = http.StatusNotFound
		resp.SetContent("no such post\n")
		return kernel.Respond(resp), nil
	}
	return kernel.Body(body + "\n"), nil
}

type errorController struct {
	kernel.BaseController
}

func (c *errorController) NotFoundAction(context.Context, *kernel.Request) (kernel.ActionResult, error) {
	resp, err := c.Response()
	if err != nil {
		return nil, err
	}
	resp.Status = http.StatusNotFound
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return kernel.Body("page not found\n"), nil
}
