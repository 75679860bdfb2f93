package router

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// HandlerFinder discovers the handlers and producers declared by a registered object.
// Shape violations must be reported when finding, so that posting never has to validate anything.
//
// Each call must return new [Handler] and [Producer] values.
// The [Router] uses the target and method name to match them against what's already registered.
type HandlerFinder interface {
	// FindHandlers returns the handlers declared by target, grouped by event type.
	FindHandlers(target any) (map[reflect.Type][]*Handler, error)
	// FindProducers returns the producer declared by target for each event type.
	FindProducers(target any) (map[reflect.Type]*Producer, error)
}

const (
	DefaultHandlerPrefix  = "Handle"
	DefaultProducerPrefix = "Produce"
)

// FinderOption configures a [MethodFinder].
type FinderOption func(f *MethodFinder) error

// HandlerPrefix sets the method name prefix that marks a handler.
func HandlerPrefix(prefix string) FinderOption {
	return func(f *MethodFinder) error {
		if len(prefix) == 0 {
			return fmt.Errorf("%w: empty handler prefix", ErrInvalidArgument)
		}
		f.handlerPrefix = prefix
		return nil
	}
}

// ProducerPrefix sets the method name prefix that marks a producer.
func ProducerPrefix(prefix string) FinderOption {
	return func(f *MethodFinder) error {
		if len(prefix) == 0 {
			return fmt.Errorf("%w: empty producer prefix", ErrInvalidArgument)
		}
		f.producerPrefix = prefix
		return nil
	}
}

// AllowInterfaceEvents lets handlers accept, and producers return, interface types.
// This is only useful with [EmbeddedAndInterfaces], since events always have a concrete type.
func AllowInterfaceEvents() FinderOption {
	return func(f *MethodFinder) error {
		f.allowInterfaces = true
		return nil
	}
}

var _ HandlerFinder = (*MethodFinder)(nil)

// MethodFinder is the default [HandlerFinder].
// It inspects the exported methods of a pointer target, treating methods named with [DefaultHandlerPrefix] as handlers,
// and methods named with [DefaultProducerPrefix] as producers.
//
//	type Greeter struct{}
//
//	func (g *Greeter) HandleName(name string) { ... }        // handler for string
//	func (g *Greeter) ProduceGreeting() (*Greeting, error) { ... } // producer for *Greeting
//
// The method layout of each receiver type is validated once and cached.
//
// A handler that posts events should accept a [context.Context] and pass it to [Router.Post].
// That keeps the new deliveries queued behind the current one instead of running inside the handler.
type MethodFinder struct {
	handlerPrefix   string
	producerPrefix  string
	allowInterfaces bool
	shapes          sync.Map // reflect.Type -> *receiverShape
}

// NewMethodFinder creates a [MethodFinder] with the given options applied.
func NewMethodFinder(opts ...FinderOption) (*MethodFinder, error) {
	f := &MethodFinder{
		handlerPrefix:  DefaultHandlerPrefix,
		producerPrefix: DefaultProducerPrefix,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	if strings.HasPrefix(f.handlerPrefix, f.producerPrefix) || strings.HasPrefix(f.producerPrefix, f.handlerPrefix) {
		return nil, fmt.Errorf("%w: handler prefix '%s' and producer prefix '%s' overlap", ErrInvalidArgument, f.handlerPrefix, f.producerPrefix)
	}
	return f, nil
}

type methodShape struct {
	index     int
	name      string
	eventType reflect.Type
	withCtx   bool
	withErr   bool
}

type receiverShape struct {
	handlers  []methodShape
	producers []methodShape
}

func (f *MethodFinder) FindHandlers(target any) (map[reflect.Type][]*Handler, error) {
	shape, err := f.shapeOf(target)
	if err != nil {
		return nil, err
	}
	val := reflect.ValueOf(target)
	found := make(map[reflect.Type][]*Handler, len(shape.handlers))
	for _, m := range shape.handlers {
		h := &Handler{
			key:       handlerKey{target: target, method: m.name},
			fn:        val.Method(m.index),
			eventType: m.eventType,
			withCtx:   m.withCtx,
			withErr:   m.withErr,
		}
		h.valid.Store(true)
		found[m.eventType] = append(found[m.eventType], h)
	}
	return found, nil
}

func (f *MethodFinder) FindProducers(target any) (map[reflect.Type]*Producer, error) {
	shape, err := f.shapeOf(target)
	if err != nil {
		return nil, err
	}
	val := reflect.ValueOf(target)
	found := make(map[reflect.Type]*Producer, len(shape.producers))
	for _, m := range shape.producers {
		p := &Producer{
			key:       handlerKey{target: target, method: m.name},
			fn:        val.Method(m.index),
			eventType: m.eventType,
			withCtx:   m.withCtx,
			withErr:   m.withErr,
		}
		p.valid.Store(true)
		found[m.eventType] = p
	}
	return found, nil
}

// shapeOf validates the handler and producer methods of target's type.
// Only valid shapes are cached, so an invalid type reports its error every time it's used.
func (f *MethodFinder) shapeOf(target any) (*receiverShape, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}
	typ := reflect.TypeOf(target)
	if cached, ok := f.shapes.Load(typ); ok {
		return cached.(*receiverShape), nil
	}
	var (
		val      = reflect.ValueOf(target)
		shape    = new(receiverShape)
		produced = map[reflect.Type]string{}
	)
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		switch {
		case strings.HasPrefix(method.Name, f.handlerPrefix):
			h, err := newHandler(target, method.Name, val.Method(i), f.allowInterfaces)
			if err != nil {
				return nil, err
			}
			shape.handlers = append(shape.handlers, methodShape{
				index:     i,
				name:      method.Name,
				eventType: h.eventType,
				withCtx:   h.withCtx,
				withErr:   h.withErr,
			})
		case strings.HasPrefix(method.Name, f.producerPrefix):
			p, err := newProducer(target, method.Name, val.Method(i), f.allowInterfaces)
			if err != nil {
				return nil, err
			}
			if other, ok := produced[p.eventType]; ok {
				return nil, discoveryErr(target, method.Name, "produces %s, which is already produced by %s", p.eventType, other)
			}
			produced[p.eventType] = method.Name
			shape.producers = append(shape.producers, methodShape{
				index:     i,
				name:      method.Name,
				eventType: p.eventType,
				withCtx:   p.withCtx,
				withErr:   p.withErr,
			})
		}
	}
	stored, _ := f.shapes.LoadOrStore(typ, shape)
	return stored.(*receiverShape), nil
}
