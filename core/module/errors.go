package module

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a module declaration or its
	// registration options are invalid.
	ErrConfiguration = errors.New("module: invalid configuration")
	// ErrMutationScope is returned when state is assigned outside a mutation.
	ErrMutationScope = errors.New("module: state may not be modified outside a mutation")
	// ErrReadOnlyReference is returned when a getter or mutation commits or
	// dispatches through a referenced module.
	ErrReadOnlyReference = errors.New("module: reference is read-only here")
	// ErrUnknownMember is returned when a name is not declared by the module.
	ErrUnknownMember = errors.New("module: unknown member")
	// ErrTypeMismatch is returned by Get and GetterAs when a value has
	// another type than requested.
	ErrTypeMismatch = errors.New("module: type mismatch")
)

// ScopeError reports a state assignment from a context without write access.
type ScopeError struct {
	// Module is the namespace the module is registered under.
	Module string

	// Field is the state field that was assigned.
	Field string

	// Context is where the assignment happened: getter, action or accessor.
	Context string
}

// Error returns the error message.
func (e *ScopeError) Error() string {
	return fmt.Sprintf("module %q: cannot set %q from %s: state may not be modified outside a mutation",
		e.Module, e.Field, e.Context)
}

// Unwrap returns ErrMutationScope.
func (e *ScopeError) Unwrap() error {
	return ErrMutationScope
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func readOnly(namespace, kind, name, context string) error {
	return fmt.Errorf("%w: cannot %s %q of module %q from %s", ErrReadOnlyReference, kind, name, namespace, context)
}

func unknownMember(namespace, kind, name string) error {
	return fmt.Errorf("%w: %s %q in module %q", ErrUnknownMember, kind, name, namespace)
}
