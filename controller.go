package kernel

import (
	"context"
	"fmt"
	"reflect"
)

// ActionFunc is the signature every controller action has.
type ActionFunc func(ctx context.Context, req *Request) (ActionResult, error)

// ControllerFactory builds a fresh controller instance.
type ControllerFactory func() any

// ControllerDefinition declares a controller class a module contributes.
// Name is the short class name, e.g. "PostController".
type ControllerDefinition struct {
	Name    string
	Factory ControllerFactory
}

// ControllerProvider is implemented by modules that ship controllers.
type ControllerProvider interface {
	Controllers() []ControllerDefinition
}

// Invoker is implemented by services that can be used as a controller on
// their own, without naming a method.
type Invoker interface {
	Invoke(ctx context.Context, req *Request) (ActionResult, error)
}

// ActionProvider lets a controller expose its actions explicitly instead of
// through exported methods.
type ActionProvider interface {
	Action(name string) (ActionFunc, bool)
}

// ServiceLocatorAware controllers receive the active registry when the
// resolver instantiates them.
type ServiceLocatorAware interface {
	SetServiceRegistry(registry ServiceRegistry)
}

// ServiceRegistryProvider controllers carry their own registry, which then
// becomes the active registry for the rest of the dispatch.
type ServiceRegistryProvider interface {
	ServiceRegistry() ServiceRegistry
}

// ControllerOptions are injected into OptionsAware controllers before their
// action runs.
type ControllerOptions struct {
	Environment Environment
	Debug       bool
	Routing     *RoutingHelper
}

// OptionsAware controllers receive ControllerOptions on each dispatch.
type OptionsAware interface {
	SetControllerOptions(opts ControllerOptions)
}

// BaseController can be embedded to get the injection capabilities.
type BaseController struct {
	options  ControllerOptions
	registry ServiceRegistry
}

func (c *BaseController) SetControllerOptions(opts ControllerOptions) {
	c.options = opts
}

func (c *BaseController) ControllerOptions() ControllerOptions {
	return c.options
}

func (c *BaseController) SetServiceRegistry(registry ServiceRegistry) {
	c.registry = registry
}

func (c *BaseController) ServiceRegistry() ServiceRegistry {
	return c.registry
}

// Environment returns the environment the app runs in.
func (c *BaseController) Environment() Environment {
	return c.options.Environment
}

// Routing returns the routing helper of the current dispatch.
func (c *BaseController) Routing() *RoutingHelper {
	return c.options.Routing
}

// Service fetches a service from the controller's registry.
func (c *BaseController) Service(name string) (any, error) {
	if c.registry == nil {
		return nil, fmt.Errorf("%w: %s (controller has no registry)", ErrServiceNotFound, name)
	}
	return c.registry.Get(name)
}

// Response returns the shared response of the current dispatch.
func (c *BaseController) Response() (*Response, error) {
	if c.registry == nil {
		return nil, fmt.Errorf("%w: %s (controller has no registry)", ErrServiceNotFound, ServiceResponse)
	}
	return Lookup[*Response](c.registry, ServiceResponse)
}

// lookupAction finds the named action on a controller. An empty name
// selects Invoker.Invoke.
func lookupAction(controller any, name string) (ActionFunc, error) {
	if name == "" {
		invoker, ok := controller.(Invoker)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrControllerNotInvokable, controller)
		}
		return invoker.Invoke, nil
	}

	if provider, ok := controller.(ActionProvider); ok {
		if action, ok := provider.Action(name); ok {
			return action, nil
		}
		return nil, fmt.Errorf("%w: %T has no action %s", ErrActionNotFound, controller, name)
	}

	value := reflect.ValueOf(controller)
	if !value.IsValid() {
		return nil, fmt.Errorf("%w: no controller to look up %s on", ErrActionNotFound, name)
	}
	method := value.MethodByName(name)
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %T has no method %s", ErrActionNotFound, controller, name)
	}
	fn, ok := method.Interface().(func(context.Context, *Request) (ActionResult, error))
	if !ok {
		return nil, fmt.Errorf("%w: %T.%s has signature %s", ErrActionNotFound, controller, name, method.Type())
	}
	return fn, nil
}

// InvokeAction runs the named action on controller.
func InvokeAction(ctx context.Context, controller any, action string, req *Request) (ActionResult, error) {
	if controller == nil {
		return nil, ErrControllerNotSet
	}
	fn, err := lookupAction(controller, action)
	if err != nil {
		return nil, err
	}
	return fn(ctx, req)
}
