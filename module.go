package kernel

import (
	"context"
)

// Module represents a unit of controllers, services and configuration.
// Modules are addressed by alias from route attributes.
//
// On every dispatch the App sets the controller name, action name and
// controller instance on the module selected by the route, then calls
// Dispatch to run the action.
type Module interface {
	// Name returns the unique identifier for this module. It is also the
	// namespace of the module's controller classes.
	Name() string

	// Alias is the short name routes use in their _module attribute.
	Alias() string

	// Path is the directory the module's resources live in.
	Path() string

	SetControllerName(name string)
	SetActionName(name string)
	SetController(controller any)
	Controller() any

	// Dispatch runs the selected action on the selected controller.
	Dispatch(ctx context.Context, req *Request) (ActionResult, error)
}

// Host is the view of the application modules get while loading.
type Host interface {
	Options() Options
	Config() *Config
	Logger() Logger
	LocateResource(name, dir string, first bool) ([]string, error)
}

// Initializable modules are initialized once, in registration order, while
// the application boots.
type Initializable interface {
	Init(ctx context.Context, host Host) error
}

// BaseModule implements Module and can be embedded by concrete modules.
type BaseModule struct {
	name           string
	alias          string
	path           string
	controllerName string
	actionName     string
	controller     any
}

// NewBaseModule creates a BaseModule. An empty alias defaults to name.
func NewBaseModule(name, alias, path string) BaseModule {
	if alias == "" {
		alias = name
	}
	return BaseModule{name: name, alias: alias, path: path}
}

func (m *BaseModule) Name() string  { return m.name }
func (m *BaseModule) Alias() string { return m.alias }
func (m *BaseModule) Path() string  { return m.path }

func (m *BaseModule) SetControllerName(name string) { m.controllerName = name }
func (m *BaseModule) SetActionName(name string)     { m.actionName = name }
func (m *BaseModule) SetController(controller any)  { m.controller = controller }

func (m *BaseModule) ControllerName() string { return m.controllerName }
func (m *BaseModule) ActionName() string     { return m.actionName }
func (m *BaseModule) Controller() any        { return m.controller }

// Dispatch invokes the selected action.
func (m *BaseModule) Dispatch(ctx context.Context, req *Request) (ActionResult, error) {
	return InvokeAction(ctx, m.controller, m.actionName, req)
}
