package buildconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceNotFound indicates a required local resource does not exist
	ErrResourceNotFound = errors.New("resource not found")
	// ErrResourceUnreadable indicates a resource exists but could not be read
	ErrResourceUnreadable = errors.New("resource unreadable")
	// ErrConfigurationInvalid indicates a structural problem in the declared configuration
	ErrConfigurationInvalid = errors.New("configuration invalid")
)

var errEmptyResource = errors.New("file is empty")

// ResourceError records which resource failed to load, where, and why.
type ResourceError struct {
	// Resource is a human readable name such as "tls key"
	Resource string
	Path     string
	// Kind is one of ErrResourceNotFound or ErrResourceUnreadable
	Kind error
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %q: %v", e.Resource, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %q: %v: %v", e.Resource, e.Path, e.Kind, e.Err)
}

func (e *ResourceError) Is(target error) bool {
	return target == e.Kind
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
