package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ControllerReference is a resolved controller, ready to be invoked.
// An empty Method means Instance is an Invoker.
type ControllerReference struct {
	Name     string
	Instance any
	Method   string
}

// ControllerResolver maps the _controller attribute of a request to a
// ControllerReference. Four notations are understood:
//
//	"blog.PostController::ShowAction"  class::method
//	"blog:Post:show"                   module:controller:action (name parser)
//	"mailer:send"                      service:method
//	"healthcheck"                      a registered service implementing Invoker
//
// Registry lookups use the registry carried by the context when there is
// one, so controllers see the per-dispatch scope.
type ControllerResolver struct {
	mu          sync.RWMutex
	registry    ServiceRegistry
	parser      ControllerNameParser
	controllers map[string]ControllerFactory
	logger      Logger
}

// NewControllerResolver creates a resolver.
func NewControllerResolver(registry ServiceRegistry, parser ControllerNameParser, logger Logger) *ControllerResolver {
	if logger == nil {
		logger = discardLogger()
	}
	return &ControllerResolver{
		registry:    registry,
		parser:      parser,
		controllers: make(map[string]ControllerFactory),
		logger:      logger,
	}
}

// RegisterController makes a controller class instantiable.
func (r *ControllerResolver) RegisterController(class string, factory ControllerFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.controllers[class]; exists {
		return fmt.Errorf("%w: %s", ErrControllerAlreadyExists, class)
	}
	r.controllers[class] = factory
	return nil
}

// Resolve resolves the request's _controller attribute. It returns false
// when the request carries no controller.
func (r *ControllerResolver) Resolve(ctx context.Context, req *Request) (ControllerReference, bool, error) {
	name := req.Attribute(AttrController)
	if name == "" {
		r.logger.Warn("Unable to look for the controller as the _controller parameter is missing", "path", req.PathInfo())
		return ControllerReference{}, false, nil
	}

	ref, err := r.CreateController(ctx, name)
	if err != nil {
		return ControllerReference{}, false, err
	}
	return ref, true, nil
}

// CreateController resolves a controller string in any supported notation.
func (r *ControllerResolver) CreateController(ctx context.Context, name string) (ControllerReference, error) {
	if strings.Contains(name, "::") {
		return r.createClassController(ctx, name)
	}

	registry := r.activeRegistry(ctx)
	switch strings.Count(name, ":") {
	case 2:
		parsed, err := r.parser.Parse(name)
		if err != nil {
			return ControllerReference{}, err
		}
		return r.createClassController(ctx, parsed)

	case 1:
		service, method, _ := strings.Cut(name, ":")
		instance, err := registry.Get(service)
		if err != nil {
			return ControllerReference{}, err
		}
		return ControllerReference{Name: service, Instance: instance, Method: method}, nil

	case 0:
		if registry.Has(name) {
			instance, err := registry.Get(name)
			if err != nil {
				return ControllerReference{}, err
			}
			if _, ok := instance.(Invoker); ok {
				return ControllerReference{Name: name, Instance: instance}, nil
			}
		}
	}

	return ControllerReference{}, fmt.Errorf("%w: %q", ErrUnparsableController, name)
}

// createClassController resolves "class::method".
func (r *ControllerResolver) createClassController(ctx context.Context, name string) (ControllerReference, error) {
	class, method, _ := strings.Cut(name, "::")
	if class == "" || method == "" {
		return ControllerReference{}, fmt.Errorf("%w: %q", ErrUnparsableController, name)
	}

	instance, err := r.InstantiateController(ctx, class)
	if err != nil {
		return ControllerReference{}, err
	}
	if _, err := lookupAction(instance, method); err != nil {
		return ControllerReference{}, err
	}
	return ControllerReference{Name: class, Instance: instance, Method: method}, nil
}

// InstantiateController builds a registered controller class and hands it
// the active registry when it is ServiceLocatorAware.
func (r *ControllerResolver) InstantiateController(ctx context.Context, class string) (any, error) {
	r.mu.RLock()
	factory, ok := r.controllers[class]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrControllerClassNotFound, class)
	}

	controller := factory()
	if controller == nil {
		return nil, fmt.Errorf("%w: %s factory returned nil", ErrControllerClassNotFound, class)
	}
	if aware, ok := controller.(ServiceLocatorAware); ok {
		aware.SetServiceRegistry(r.activeRegistry(ctx))
	}
	return controller, nil
}

func (r *ControllerResolver) activeRegistry(ctx context.Context) ServiceRegistry {
	if registry, ok := ServiceRegistryFromContext(ctx); ok {
		return registry
	}
	return r.registry
}
