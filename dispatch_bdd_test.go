package kernel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cucumber/godog"
)

var (
	errNoResponse        = errors.New("no response was produced")
	errDispatchSucceeded = errors.New("dispatch succeeded but should have failed")
)

// dispatchBDDContext holds the state of a dispatch scenario.
type dispatchBDDContext struct {
	baseURL  string
	opts     Options
	router   *stubRouter
	app      *App
	resp     *Response
	err      error
	registry ServiceRegistry
}

func (c *dispatchBDDContext) reset() {
	*c = dispatchBDDContext{}
}

func (c *dispatchBDDContext) aBlogApplicationMountedAt(baseURL string) error {
	c.baseURL = baseURL
	c.router = blogRouter(baseURL)
	return nil
}

func (c *dispatchBDDContext) theApplicationRunsInProduction() error {
	c.opts.Environment = EnvProduction
	c.opts.Debug = false
	return nil
}

func (c *dispatchBDDContext) theApplicationRunsInDebugMode() error {
	c.opts.Environment = EnvDevelopment
	c.opts.Debug = true
	return nil
}

func (c *dispatchBDDContext) theApplicationHasNoNotFoundRoute() error {
	delete(c.router.urls, "not_found")
	return nil
}

func (c *dispatchBDDContext) ensureApp() error {
	if c.app != nil {
		return nil
	}
	app, err := New(c.opts,
		WithModules(newRouterModule(c.router), newBlogModule()),
		WithEnviron(func() []string { return nil }),
	)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func (c *dispatchBDDContext) iRequest(path string) error {
	if err := c.ensureApp(); err != nil {
		return err
	}
	req := NewRequest(httptest.NewRequest(http.MethodGet, path, nil))
	c.resp, c.err = c.app.Dispatch(context.Background(), req)
	return nil
}

func (c *dispatchBDDContext) theResponseStatusShouldBe(status int) error {
	if c.resp == nil {
		return fmt.Errorf("%w: %v", errNoResponse, c.err)
	}
	if c.resp.Status != status {
		return fmt.Errorf("expected status %d, got %d", status, c.resp.Status)
	}
	return nil
}

func (c *dispatchBDDContext) theResponseContentShouldBe(content string) error {
	if c.resp == nil {
		return fmt.Errorf("%w: %v", errNoResponse, c.err)
	}
	if c.resp.Content() != content {
		return fmt.Errorf("expected content %q, got %q", content, c.resp.Content())
	}
	return nil
}

func (c *dispatchBDDContext) theRouterShouldHaveMatched(match string) error {
	if got := c.router.lastMatch(); got != match {
		return fmt.Errorf("expected last match %q, got %q", match, got)
	}
	return nil
}

func (c *dispatchBDDContext) theDispatchShouldFailWithARoutingError() error {
	if c.err == nil {
		return errDispatchSucceeded
	}
	if !errors.Is(c.err, ErrRouteNotFound) {
		return fmt.Errorf("expected a routing error, got %w", c.err)
	}
	var notFound *NotFoundPageError
	if errors.As(c.err, &notFound) {
		return fmt.Errorf("debug mode must not fall back, got %w", c.err)
	}
	return nil
}

func (c *dispatchBDDContext) theDispatchShouldFailBecauseTheNotFoundPageIsUnavailable() error {
	if c.err == nil {
		return errDispatchSucceeded
	}
	if !errors.Is(c.err, ErrNotFoundPageUnavailable) {
		return fmt.Errorf("expected the not-found page error, got %w", c.err)
	}
	return nil
}

func (c *dispatchBDDContext) theApplicationBoots() error {
	if err := c.ensureApp(); err != nil {
		return err
	}
	if err := c.app.Boot(context.Background()); err != nil {
		return err
	}
	c.registry = c.app.ServiceRegistry()
	return nil
}

func (c *dispatchBDDContext) changingTheEnvironmentShouldFail() error {
	before := c.app.Environment()
	if err := c.app.SetEnvironment(EnvDevelopment); !errors.Is(err, ErrAlreadyBooted) {
		return fmt.Errorf("expected %w, got %v", ErrAlreadyBooted, err)
	}
	if c.app.Environment() != before {
		return fmt.Errorf("environment changed from %s to %s", before, c.app.Environment())
	}
	return nil
}

func (c *dispatchBDDContext) bootingAgainShouldKeepTheSameServiceRegistry() error {
	if err := c.app.Boot(context.Background()); err != nil {
		return err
	}
	if c.app.ServiceRegistry() != c.registry {
		return errors.New("boot replaced the service registry")
	}
	return nil
}

// InitializeDispatchScenario registers the dispatch steps.
func InitializeDispatchScenario(ctx *godog.ScenarioContext) {
	testCtx := &dispatchBDDContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^a blog application mounted at "([^"]*)"$`, testCtx.aBlogApplicationMountedAt)
	ctx.Step(`^the application runs in production$`, testCtx.theApplicationRunsInProduction)
	ctx.Step(`^the application runs in debug mode$`, testCtx.theApplicationRunsInDebugMode)
	ctx.Step(`^the application has no not-found route$`, testCtx.theApplicationHasNoNotFoundRoute)

	ctx.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	ctx.Step(`^the application boots$`, testCtx.theApplicationBoots)

	ctx.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	ctx.Step(`^the response content should be "([^"]*)"$`, testCtx.theResponseContentShouldBe)
	ctx.Step(`^the router should have matched "([^"]*)"$`, testCtx.theRouterShouldHaveMatched)
	ctx.Step(`^the dispatch should fail with a routing error$`, testCtx.theDispatchShouldFailWithARoutingError)
	ctx.Step(`^the dispatch should fail because the not-found page is unavailable$`, testCtx.theDispatchShouldFailBecauseTheNotFoundPageIsUnavailable)
	ctx.Step(`^changing the environment should fail$`, testCtx.changingTheEnvironmentShouldFail)
	ctx.Step(`^booting again should keep the same service registry$`, testCtx.bootingAgainShouldKeepTheSameServiceRegistry)
}

func TestDispatchFeature(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeDispatchScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/dispatch.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
