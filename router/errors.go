package router

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotRegistered     = errors.New("not registered")
	ErrDuplicateProducer = errors.New("duplicate producer")
	ErrConfinement       = errors.New("operation outside of confined context")
)

// DiscoveryError reports a method that was marked as a handler or producer, but has the wrong shape.
// It matches [ErrInvalidArgument] with [errors.Is].
type DiscoveryError struct {
	Receiver reflect.Type
	Method   string
	Reason   string
}

func (e *DiscoveryError) Error() string {
	if e.Receiver == nil {
		return fmt.Sprintf("%v: method %s %s", ErrInvalidArgument, e.Method, e.Reason)
	}
	return fmt.Sprintf("%v: method %s.%s %s", ErrInvalidArgument, e.Receiver, e.Method, e.Reason)
}

func (e *DiscoveryError) Unwrap() error {
	return ErrInvalidArgument
}

// InvocationError wraps an error returned from a handler or producer.
// The original error is available with [errors.Unwrap], [errors.Is], and [errors.As].
type InvocationError struct {
	Target    any
	Method    string
	EventType reflect.Type
	Event     any // Event is nil when a producer failed.
	Err       error
}

func (e *InvocationError) Error() string {
	if e.Event == nil {
		return fmt.Sprintf("producer %T.%s failed to produce %s: %v", e.Target, e.Method, e.EventType, e.Err)
	}
	return fmt.Sprintf("handler %T.%s failed to handle %s: %v", e.Target, e.Method, e.EventType, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
