package router

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// handlerKey is the identity of a handler or producer.
// Two references are the same if they were discovered on the same target pointer with the same method name.
type handlerKey struct {
	target any
	method string
}

// Handler is a live reference to a callable that receives events of a single type.
// A Handler starts out valid and is invalidated exactly once, when it's unregistered.
type Handler struct {
	key       handlerKey
	fn        reflect.Value
	eventType reflect.Type
	withCtx   bool
	withErr   bool
	valid     atomic.Bool
}

// NewHandler creates a [Handler] for a function value found on target.
// This is intended for custom [HandlerFinder] implementations, and applies the same shape rules as [MethodFinder].
//
// The function must accept one event parameter, optionally preceded by a [context.Context], and may only return an error.
func NewHandler(target any, name string, fn any, allowInterfaces bool) (*Handler, error) {
	return newHandler(target, name, reflect.ValueOf(fn), allowInterfaces)
}

func newHandler(target any, name string, fn reflect.Value, allowInterfaces bool) (*Handler, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, discoveryErr(target, name, "is not a function")
	}
	var (
		ft = fn.Type()
		h  = &Handler{key: handlerKey{target: target, method: name}, fn: fn}
	)
	if ft.IsVariadic() {
		return nil, discoveryErr(target, name, "must not be variadic")
	}
	switch ft.NumIn() {
	case 1:
		h.eventType = ft.In(0)
	case 2:
		if ft.In(0) != contextType {
			return nil, discoveryErr(target, name, "must accept a context.Context before the event parameter, got %s", ft.In(0))
		}
		h.withCtx = true
		h.eventType = ft.In(1)
	default:
		return nil, discoveryErr(target, name, "must accept exactly one event parameter, but accepts %d parameters", ft.NumIn())
	}
	if reason := checkEventType(h.eventType, allowInterfaces); len(reason) > 0 {
		return nil, discoveryErr(target, name, "%s", reason)
	}
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) != errorType {
			return nil, discoveryErr(target, name, "may only return an error, but returns %s", ft.Out(0))
		}
		h.withErr = true
	default:
		return nil, discoveryErr(target, name, "returns %d values, but may only return an error", ft.NumOut())
	}
	h.valid.Store(true)
	return h, nil
}

// EventType is the type of event this [Handler] accepts.
func (h *Handler) EventType() reflect.Type {
	return h.eventType
}

// Target is the registered object that declared this [Handler].
func (h *Handler) Target() any {
	return h.key.target
}

// Method is the name of the method or function that handles events.
func (h *Handler) Method() string {
	return h.key.method
}

// Valid reports whether the [Handler] is still registered.
func (h *Handler) Valid() bool {
	return h.valid.Load()
}

func (h *Handler) invalidate() {
	h.valid.Store(false)
}

func (h *Handler) String() string {
	return fmt.Sprintf("%T.%s(%s)", h.key.target, h.key.method, h.eventType)
}

func (h *Handler) invoke(ctx context.Context, event reflect.Value) error {
	var in []reflect.Value
	if h.withCtx {
		in = []reflect.Value{reflect.ValueOf(ctx), event}
	} else {
		in = []reflect.Value{event}
	}
	out := h.fn.Call(in)
	if !h.withErr || out[0].IsNil() {
		return nil
	}
	return &InvocationError{
		Target:    h.key.target,
		Method:    h.key.method,
		EventType: h.eventType,
		Event:     event.Interface(),
		Err:       out[0].Interface().(error),
	}
}

// Producer is a live reference to a callable that supplies the current value of an event type on demand.
// At most one valid Producer exists per event type in a [Router].
type Producer struct {
	key       handlerKey
	fn        reflect.Value
	eventType reflect.Type
	withCtx   bool
	withErr   bool
	valid     atomic.Bool
}

// NewProducer creates a [Producer] for a function value found on target.
// This is intended for custom [HandlerFinder] implementations, and applies the same shape rules as [MethodFinder].
//
// The function may accept a [context.Context] and nothing else, and must return the produced value, optionally followed by an error.
func NewProducer(target any, name string, fn any, allowInterfaces bool) (*Producer, error) {
	return newProducer(target, name, reflect.ValueOf(fn), allowInterfaces)
}

func newProducer(target any, name string, fn reflect.Value, allowInterfaces bool) (*Producer, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, discoveryErr(target, name, "is not a function")
	}
	var (
		ft = fn.Type()
		p  = &Producer{key: handlerKey{target: target, method: name}, fn: fn}
	)
	if ft.IsVariadic() {
		return nil, discoveryErr(target, name, "must not be variadic")
	}
	switch ft.NumIn() {
	case 0:
	case 1:
		if ft.In(0) != contextType {
			return nil, discoveryErr(target, name, "may only accept a context.Context, got %s", ft.In(0))
		}
		p.withCtx = true
	default:
		return nil, discoveryErr(target, name, "must not accept parameters other than a context.Context")
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return nil, discoveryErr(target, name, "second return value must be an error, but is %s", ft.Out(1))
		}
		p.withErr = true
	default:
		return nil, discoveryErr(target, name, "must return a value, optionally followed by an error")
	}
	p.eventType = ft.Out(0)
	if p.eventType == errorType {
		return nil, discoveryErr(target, name, "must not produce an error as its value")
	}
	if reason := checkEventType(p.eventType, allowInterfaces); len(reason) > 0 {
		return nil, discoveryErr(target, name, "%s", reason)
	}
	p.valid.Store(true)
	return p, nil
}

// EventType is the type of event this [Producer] creates.
func (p *Producer) EventType() reflect.Type {
	return p.eventType
}

// Target is the registered object that declared this [Producer].
func (p *Producer) Target() any {
	return p.key.target
}

// Method is the name of the method or function that produces events.
func (p *Producer) Method() string {
	return p.key.method
}

// Valid reports whether the [Producer] is still registered.
func (p *Producer) Valid() bool {
	return p.valid.Load()
}

func (p *Producer) invalidate() {
	p.valid.Store(false)
}

func (p *Producer) String() string {
	return fmt.Sprintf("%T.%s() %s", p.key.target, p.key.method, p.eventType)
}

// produce calls the producer.
// False is returned without an error if the producer returned a nil value, since there's nothing to deliver.
func (p *Producer) produce(ctx context.Context) (reflect.Value, bool, error) {
	var in []reflect.Value
	if p.withCtx {
		in = []reflect.Value{reflect.ValueOf(ctx)}
	}
	out := p.fn.Call(in)
	if p.withErr && !out[1].IsNil() {
		return reflect.Value{}, false, &InvocationError{
			Target:    p.key.target,
			Method:    p.key.method,
			EventType: p.eventType,
			Err:       out[1].Interface().(error),
		}
	}
	val := out[0]
	if isNil(val) {
		return reflect.Value{}, false, nil
	}
	return val, true, nil
}

func isNil(val reflect.Value) bool {
	switch val.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return val.IsNil()
	default:
		return false
	}
}

func checkTarget(target any) error {
	if target == nil {
		return fmt.Errorf("%w: nil target", ErrInvalidArgument)
	}
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Pointer {
		return fmt.Errorf("%w: target %T must be a pointer so it has a stable identity", ErrInvalidArgument, target)
	}
	if val.IsNil() {
		return fmt.Errorf("%w: nil %T target", ErrInvalidArgument, target)
	}
	// Pointers to zero-size values may all share one address.
	if val.Type().Elem().Size() == 0 {
		return fmt.Errorf("%w: target %T points to a zero-size value, so it has no distinct identity", ErrInvalidArgument, target)
	}
	return nil
}

func checkEventType(typ reflect.Type, allowInterfaces bool) string {
	if typ.Kind() == reflect.Interface && !allowInterfaces {
		return fmt.Sprintf("must use a concrete event type, not interface %s", typ)
	}
	return ""
}

func discoveryErr(target any, method string, format string, args ...any) error {
	return &DiscoveryError{
		Receiver: reflect.TypeOf(target),
		Method:   method,
		Reason:   fmt.Sprintf(format, args...),
	}
}
