package router

import "reflect"

// Observer is notified of routing activity, which is useful for collecting metrics.
// Methods are called synchronously on the goroutine doing the work, so they should return quickly.
type Observer interface {
	// EventPosted is called once for each call to Post, with the type of the posted event.
	EventPosted(router string, eventType reflect.Type)
	// EventDelivered is called after a handler for eventType was called, including from producers during registration.
	EventDelivered(router string, eventType reflect.Type)
	// EventDead is called when an event of eventType matched no handlers.
	EventDead(router string, eventType reflect.Type)
	// HandlerFailed is called when a handler or producer for eventType returned an error.
	HandlerFailed(router string, eventType reflect.Type)
}

type nopObserver struct{}

func (nopObserver) EventPosted(string, reflect.Type)    {}
func (nopObserver) EventDelivered(string, reflect.Type) {}
func (nopObserver) EventDead(string, reflect.Type)      {}
func (nopObserver) HandlerFailed(string, reflect.Type)  {}
