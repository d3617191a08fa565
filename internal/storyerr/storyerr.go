// Package storyerr carries the coded service error shared by every domain
// service. Codes follow the operation.reason convention so log lines and
// HTTP payloads can reference a stable failure identifier.
package storyerr

import "fmt"

// ServiceError wraps a cause with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

// New builds a ServiceError with code operation.reason around the cause.
func New(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code exposes the operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}
