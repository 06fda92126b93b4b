package kernel

import (
	"errors"
)

// Application errors
var (
	// Option errors
	ErrAlreadyBooted        = errors.New("application already booted, options can no longer be changed")
	ErrUnknownOption        = errors.New("unknown application option")
	ErrInvalidOptionValue   = errors.New("invalid value for application option")
	ErrInvalidEnvironment   = errors.New("invalid environment")
	ErrConfigFileUnreadable = errors.New("config file could not be read")

	// Service registry errors
	ErrServiceNotFound      = errors.New("service not found")
	ErrServiceIncompatible  = errors.New("service cannot be assigned to target type")
	ErrServiceFactoryFailed = errors.New("service factory failed")
	ErrServiceNameEmpty     = errors.New("service name is empty")

	// Module errors
	ErrModuleNil            = errors.New("module is nil")
	ErrModuleNotFound       = errors.New("module not found")
	ErrModuleAlreadyExists  = errors.New("module already registered")
	ErrModulesAlreadyLoaded = errors.New("modules already loaded")
	ErrResourceNotFound     = errors.New("unable to find resource")
	ErrInvalidResourceName  = errors.New("invalid resource name")
	ErrControllerNotSet     = errors.New("module has no controller to dispatch")

	// Routing errors
	ErrRouteNotFound           = errors.New("no route found")
	ErrNotFoundPageUnavailable = errors.New("unable to load 404 page")

	// Controller resolution errors
	ErrControllerNotFound      = errors.New("unable to find the controller")
	ErrUnparsableController    = errors.New("unable to parse the controller name")
	ErrInvalidControllerName   = errors.New("invalid controller name")
	ErrControllerClassNotFound = errors.New("controller class does not exist")
	ErrControllerAlreadyExists = errors.New("controller class already registered")
	ErrControllerNotInvokable  = errors.New("controller is not invokable")
	ErrActionNotFound          = errors.New("controller action not found")
)

// NotFoundPageError is returned by App.HandleRouting when the request could
// not be routed and the not-found fallback route failed as well. Its message
// stays generic; both underlying causes are kept for errors.Is / errors.As.
type NotFoundPageError struct {
	Route         string
	Cause         error
	FallbackCause error
}

func (e *NotFoundPageError) Error() string {
	return ErrNotFoundPageUnavailable.Error()
}

// Unwrap exposes the sentinel and the chained causes.
func (e *NotFoundPageError) Unwrap() []error {
	errs := []error{ErrNotFoundPageUnavailable}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.FallbackCause != nil {
		errs = append(errs, e.FallbackCause)
	}
	return errs
}
