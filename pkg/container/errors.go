package container

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes carried by ContainerError.
const (
	CodeModuleLoad              = "MODULE_LOAD_FAILED"
	CodeModuleNotFound          = "MODULE_NOT_FOUND"
	CodeModuleAlreadyRegistered = "MODULE_ALREADY_REGISTERED"
	CodeUnresolvedReference     = "UNRESOLVED_REFERENCE"
	CodeCircularReference       = "CIRCULAR_REFERENCE"
	CodeConstruction            = "CONSTRUCTION_FAILED"
	CodePropertyAssignment      = "PROPERTY_ASSIGNMENT_FAILED"
	CodeInitialization          = "INITIALIZATION_FAILED"
	CodeDestroy                 = "DESTROY_FAILED"
	CodeDependencyFailed        = "DEPENDENCY_FAILED"
	CodeContextDestroyed        = "CONTEXT_DESTROYED"
	CodeInvalidSpec             = "INVALID_SPEC"
	CodeWiring                  = "WIRING_FAILED"
)

// Sentinels for errors.Is. Any ContainerError with the same code matches.
var (
	ErrModuleLoad              = &ContainerError{Code: CodeModuleLoad}
	ErrModuleNotFound          = &ContainerError{Code: CodeModuleNotFound}
	ErrModuleAlreadyRegistered = &ContainerError{Code: CodeModuleAlreadyRegistered}
	ErrUnresolvedReference     = &ContainerError{Code: CodeUnresolvedReference}
	ErrCircularReference       = &ContainerError{Code: CodeCircularReference}
	ErrConstruction            = &ContainerError{Code: CodeConstruction}
	ErrPropertyAssignment      = &ContainerError{Code: CodePropertyAssignment}
	ErrInitialization          = &ContainerError{Code: CodeInitialization}
	ErrDestroy                 = &ContainerError{Code: CodeDestroy}
	ErrDependencyFailed        = &ContainerError{Code: CodeDependencyFailed}
	ErrContextDestroyed        = &ContainerError{Code: CodeContextDestroyed}
	ErrInvalidSpec             = &ContainerError{Code: CodeInvalidSpec}
	ErrWiring                  = &ContainerError{Code: CodeWiring}
)

// ContainerError represents an error that occurred in the container
type ContainerError struct {
	Code      string
	Component string
	Message   string
	Cause     error
}

// Error implements the error interface
func (e *ContainerError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Code)
	b.WriteString("]")
	if e.Component != "" {
		fmt.Fprintf(&b, " component '%s':", e.Component)
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the cause of the error
func (e *ContainerError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ContainerError with the same code.
func (e *ContainerError) Is(target error) bool {
	t, ok := target.(*ContainerError)
	return ok && t.Code == e.Code
}

// ModuleLoadError returns an error for when the module loader fails
func ModuleLoadError(component, id string, cause error) *ContainerError {
	return &ContainerError{
		Code:      CodeModuleLoad,
		Component: component,
		Message:   fmt.Sprintf("failed to load module '%s'", id),
		Cause:     cause,
	}
}

// ModuleNotFoundError returns an error for an unknown module id
func ModuleNotFoundError(id string) *ContainerError {
	return &ContainerError{
		Code:    CodeModuleNotFound,
		Message: fmt.Sprintf("module '%s' not registered", id),
	}
}

// ModuleAlreadyRegisteredError returns an error for a duplicate module id
func ModuleAlreadyRegisteredError(id string) *ContainerError {
	return &ContainerError{
		Code:    CodeModuleAlreadyRegistered,
		Message: fmt.Sprintf("module '%s' already registered", id),
	}
}

// UnresolvedReferenceError returns an error for a name found neither locally nor in any ancestor
func UnresolvedReferenceError(component, ref string) *ContainerError {
	return &ContainerError{
		Code:      CodeUnresolvedReference,
		Component: component,
		Message:   fmt.Sprintf("reference '%s' cannot be resolved", ref),
	}
}

// CircularReferenceError returns an error for when a reference cycle is detected
func CircularReferenceError(component string, cycle []string) *ContainerError {
	return &ContainerError{
		Code:      CodeCircularReference,
		Component: component,
		Message:   fmt.Sprintf("circular reference detected: %s", strings.Join(cycle, " -> ")),
	}
}

// ConstructionError returns an error for a failed factory or constructor call
func ConstructionError(component string, cause error) *ContainerError {
	return &ContainerError{
		Code:      CodeConstruction,
		Component: component,
		Message:   "construction failed",
		Cause:     cause,
	}
}

// PropertyAssignmentError returns an error for a property that could not be set
func PropertyAssignmentError(component, property string, cause error) *ContainerError {
	return &ContainerError{
		Code:      CodePropertyAssignment,
		Component: component,
		Message:   fmt.Sprintf("failed to set property '%s'", property),
		Cause:     cause,
	}
}

// InitializationError returns an error for when a component fails to initialize
func InitializationError(component, method string, cause error) *ContainerError {
	return &ContainerError{
		Code:      CodeInitialization,
		Component: component,
		Message:   fmt.Sprintf("init '%s' failed", method),
		Cause:     cause,
	}
}

// DestroyError aggregates every failure of one teardown pass.
func DestroyError(errs []error) *ContainerError {
	return &ContainerError{
		Code:    CodeDestroy,
		Message: fmt.Sprintf("%d component(s) failed to destroy", len(errs)),
		Cause:   errors.Join(errs...),
	}
}

// componentDestroyError wraps a single failing teardown hook.
func componentDestroyError(component string, cause error) *ContainerError {
	return &ContainerError{
		Code:      CodeDestroy,
		Component: component,
		Message:   "destroy failed",
		Cause:     cause,
	}
}

// DependencyFailedError returns an error for a component whose dependency failed
func DependencyFailedError(component, dependency string, cause error) *ContainerError {
	return &ContainerError{
		Code:      CodeDependencyFailed,
		Component: component,
		Message:   fmt.Sprintf("dependency '%s' failed", dependency),
		Cause:     cause,
	}
}

// ContextDestroyedError returns an error for resolution through a destroyed context
func ContextDestroyedError(contextID string) *ContainerError {
	return &ContainerError{
		Code:    CodeContextDestroyed,
		Message: fmt.Sprintf("context '%s' has been destroyed", contextID),
	}
}

// InvalidSpecError returns an error for a malformed component definition
func InvalidSpecError(component, msg string) *ContainerError {
	return &ContainerError{
		Code:      CodeInvalidSpec,
		Component: component,
		Message:   msg,
	}
}

// WiringError aggregates the failures of one wiring session.
func WiringError(errs []error) *ContainerError {
	return &ContainerError{
		Code:    CodeWiring,
		Message: fmt.Sprintf("%d component(s) failed to wire", len(errs)),
		Cause:   errors.Join(errs...),
	}
}
