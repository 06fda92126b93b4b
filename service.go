package kernel

// Well-known service keys registered by App.Boot and App.Dispatch.
const (
	ServiceApp                  = "app"
	ServiceConfig               = "config"
	ServiceLogger               = "logger"
	ServiceModuleManager        = "module.manager"
	ServiceControllerNameParser = "controller.name_parser"
	ServiceControllerResolver   = "controller.resolver"
	ServiceRouter               = "router"
	ServiceRequest              = "request"
	ServiceResponse             = "response"
)

// ServiceFactory builds a service the first time it is requested. The
// registry passed in is the one the service is being resolved through.
type ServiceFactory func(registry ServiceRegistry) (any, error)

// ServiceDefinition declares a service a module contributes to the registry.
type ServiceDefinition struct {
	Name        string
	Description string
	Factory     ServiceFactory
}

// ServiceFactoryProvider is implemented by modules that declare services.
// Definitions are registered after all modules are loaded, in module
// registration order.
type ServiceFactoryProvider interface {
	ServiceFactories() []ServiceDefinition
}
