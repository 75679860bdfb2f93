package router

import (
	"cmp"
	"context"
	"fmt"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// DeadEvent wraps an event that was posted to a [Router], but matched no handlers.
// Subscribing to DeadEvent is a way to notice events that nothing else is listening for.
// A DeadEvent that matches no handlers is dropped rather than wrapped again.
type DeadEvent struct {
	Source *Router
	Event  any
}

// Router delivers posted events to every registered handler whose event type is compatible with the event.
//
// See the package documentation for the routing rules.
type Router struct {
	identifier string
	enforcer   ThreadEnforcer
	finder     HandlerFinder
	errPolicy  ErrorPolicy
	hierarchy  HierarchyPolicy
	log        *slog.Logger
	observer   Observer

	registry *registry
	resolver *resolver
}

// New creates a [Router] with the given options applied.
// An error is returned if any option is invalid.
func New(opts ...Option) (*Router, error) {
	conf := routerConf{
		enforcer:  AnyGoroutine,
		errPolicy: CollectErrors,
		hierarchy: EmbeddedTypes,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		if err := opt(&conf); err != nil {
			return nil, err
		}
	}
	if len(conf.identifier) == 0 {
		conf.identifier = uuid.NewString()
	}
	if conf.finder == nil {
		var finderOpts []FinderOption
		if conf.hierarchy == EmbeddedAndInterfaces {
			finderOpts = append(finderOpts, AllowInterfaceEvents())
		}
		finder, err := NewMethodFinder(finderOpts...)
		if err != nil {
			return nil, err
		}
		conf.finder = finder
	}
	if conf.logger == nil {
		conf.logger = slog.Default()
	}
	return &Router{
		identifier: conf.identifier,
		enforcer:   conf.enforcer,
		finder:     conf.finder,
		errPolicy:  conf.errPolicy,
		hierarchy:  conf.hierarchy,
		log:        conf.logger.With("router", conf.identifier),
		observer:   conf.observer,
		registry:   newRegistry(),
		resolver:   new(resolver),
	}, nil
}

// MustNew is the same as [New], but panics if an option is invalid.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Identifier returns the identifier of this [Router].
func (r *Router) Identifier() string {
	return r.identifier
}

func (r *Router) String() string {
	return fmt.Sprintf("Router[%s]", r.identifier)
}

// Register discovers the handlers and producers of target, and makes them live.
//
// If target declares a handler or producer with an invalid shape, then nothing is registered and an error matching [ErrInvalidArgument] is returned.
// If a producer is declared for a type that already has a live producer, then nothing is registered and an error matching [ErrDuplicateProducer] is returned.
// Every producer type is checked before any producer is installed.
// Only a concurrent Register that installs a producer for one of the same types in between can still cause a rollback, and until then a handler registered concurrently may be passed a value from a producer that ends up rolled back.
//
// Producers are installed first.
// Each new producer is called once if its type already has handlers, and the value is delivered to each of them.
// Then handlers are installed, and if their type has a producer, it's called once per new handler to deliver an initial value to that handler alone.
// These deliveries happen synchronously before Register returns.
// Errors from them are reported according to the [ErrorPolicy], but the registration itself stays in effect.
func (r *Router) Register(ctx context.Context, target any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.enforcer.Enforce(ctx, r.identifier); err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("%w: nil target", ErrInvalidArgument)
	}
	producers, err := r.finder.FindProducers(target)
	if err != nil {
		return err
	}
	handlers, err := r.finder.FindHandlers(target)
	if err != nil {
		return err
	}

	producerTypes := sortedTypes(producers)
	for _, typ := range producerTypes {
		if current := r.registry.liveProducer(typ); current != nil {
			return fmt.Errorf("%w: %s is already produced by %s", ErrDuplicateProducer, typ, current)
		}
	}
	for i, typ := range producerTypes {
		if err := r.registry.addProducer(producers[typ]); err != nil {
			// Another Register installed a producer since the check above.
			// Roll back so a failed registration leaves nothing behind.
			for _, installed := range producerTypes[:i] {
				_, _ = r.registry.removeProducer(installed, producers[installed].key)
			}
			return err
		}
	}

	var (
		errs    error
		stopped bool
	)
	for _, typ := range producerTypes {
		existing := r.registry.liveHandlers(typ)
		if stopped || len(existing) == 0 {
			continue
		}
		stopped = r.produceTo(ctx, &errs, producers[typ], existing...)
	}

	var handlerCount int
	for _, typ := range sortedTypes(handlers) {
		var added []*Handler
		for _, h := range handlers[typ] {
			if r.registry.addHandler(h) {
				added = append(added, h)
			}
		}
		handlerCount += len(added)
		producer := r.registry.liveProducer(typ)
		if producer == nil {
			continue
		}
		for _, h := range added {
			if stopped {
				break
			}
			stopped = r.produceTo(ctx, &errs, producer, h)
		}
	}
	r.log.Debug("Registered target",
		"target", fmt.Sprintf("%T", target),
		"handlers", handlerCount,
		"producers", len(producers),
	)
	return errs
}

// produceTo calls the producer once, and delivers its value to each handler.
// True is returned if the error policy says to stop.
func (r *Router) produceTo(ctx context.Context, errs *error, producer *Producer, handlers ...*Handler) bool {
	event, ok, err := producer.produce(ctx)
	if err != nil {
		return r.failed(errs, producer.eventType, err)
	}
	if !ok {
		return false
	}
	for _, h := range handlers {
		if !h.Valid() {
			continue
		}
		err := h.invoke(ctx, event)
		r.observer.EventDelivered(r.identifier, h.eventType)
		if r.failed(errs, h.eventType, err) {
			return true
		}
	}
	return false
}

// Unregister removes all handlers and producers of target.
//
// If any handler or producer that target declares isn't currently registered, then nothing is removed and an error matching [ErrNotRegistered] is returned.
// The same error is returned for a target that declares neither, since it can never have been registered.
// Removed handlers are invalidated, so any deliveries to them that are still queued are skipped.
func (r *Router) Unregister(ctx context.Context, target any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.enforcer.Enforce(ctx, r.identifier); err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("%w: nil target", ErrInvalidArgument)
	}
	producers, err := r.finder.FindProducers(target)
	if err != nil {
		return err
	}
	handlers, err := r.finder.FindHandlers(target)
	if err != nil {
		return err
	}

	if len(producers) == 0 && len(handlers) == 0 {
		return fmt.Errorf("%w: %T declares no handlers or producers", ErrNotRegistered, target)
	}
	producerTypes, handlerTypes := sortedTypes(producers), sortedTypes(handlers)
	for _, typ := range producerTypes {
		if p := producers[typ]; !r.registry.isProducer(typ, p.key) {
			return fmt.Errorf("%w: %s is not the live producer for %s", ErrNotRegistered, p, typ)
		}
	}
	for _, typ := range handlerTypes {
		for _, h := range handlers[typ] {
			if !r.registry.hasHandler(typ, h.key) {
				return fmt.Errorf("%w: %s is not a live handler", ErrNotRegistered, h)
			}
		}
	}

	// A concurrent Unregister of the same target can still win a race between checking and removing, which is reported here.
	var errs error
	for _, typ := range producerTypes {
		_, err := r.registry.removeProducer(typ, producers[typ].key)
		errs = multierr.Append(errs, err)
	}
	for _, typ := range handlerTypes {
		for _, h := range handlers[typ] {
			_, err := r.registry.removeHandler(typ, h.key)
			errs = multierr.Append(errs, err)
		}
	}
	r.log.Debug("Unregistered target", "target", fmt.Sprintf("%T", target))
	return errs
}

// Post delivers event to every live handler of its type, and of each type it's routed to by the [HierarchyPolicy].
// If no handler matches, then a [DeadEvent] wrapping event is delivered instead.
//
// Handlers are called on the calling goroutine, in the order their deliveries were queued.
// When a handler posts another event using the context it was given, the new deliveries are queued behind everything already waiting, and happen after the handler returns.
// That nested call returns nil immediately, and any handler errors are reported to the outermost call according to the [ErrorPolicy].
func (r *Router) Post(ctx context.Context, event any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.enforcer.Enforce(ctx, r.identifier); err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidArgument)
	}
	val := reflect.ValueOf(event)
	if val.Kind() == reflect.Pointer && val.IsNil() {
		return fmt.Errorf("%w: nil %T event", ErrInvalidArgument, event)
	}
	r.observer.EventPosted(r.identifier, val.Type())

	deliveries := r.route(val)
	if len(deliveries) == 0 {
		switch event.(type) {
		case DeadEvent, *DeadEvent:
			r.log.Debug("Dropping dead event with no handlers", "event_type", val.Type().String())
			return nil
		}
		r.observer.EventDead(r.identifier, val.Type())
		deliveries = r.route(reflect.ValueOf(DeadEvent{Source: r, Event: event}))
		if len(deliveries) == 0 {
			r.log.Debug("Dropping dead event with no handlers", "event_type", val.Type().String())
			return nil
		}
	}

	if state := dispatchStateFrom(ctx, r); state != nil && state.enqueueIfDraining(deliveries) {
		return nil
	}
	state := new(dispatchState)
	state.start(deliveries)
	return r.drain(withDispatchState(ctx, r, state), state)
}

// route finds a delivery for each live handler that event can be passed to.
func (r *Router) route(event reflect.Value) []delivery {
	var deliveries []delivery
	for _, anc := range r.resolver.resolve(event.Type()) {
		handlers := r.registry.liveHandlers(anc.typ)
		if len(handlers) == 0 {
			continue
		}
		val, ok := anc.extract(event)
		if !ok {
			continue
		}
		for _, h := range handlers {
			deliveries = append(deliveries, delivery{event: val, handler: h})
		}
	}
	if r.hierarchy != EmbeddedAndInterfaces {
		return deliveries
	}
	for _, iface := range r.registry.interfaceTypes() {
		if !r.resolver.implements(event.Type(), iface) {
			continue
		}
		for _, h := range r.registry.liveHandlers(iface) {
			deliveries = append(deliveries, delivery{event: event, handler: h})
		}
	}
	return deliveries
}

// drain delivers queued events until the queue is empty.
func (r *Router) drain(ctx context.Context, state *dispatchState) error {
	var (
		errs     error
		finished bool
	)
	defer func() {
		if !finished {
			// A handler panicked, and nothing else will drain this queue.
			state.abandon()
		}
	}()
	for {
		d, ok := state.next()
		if !ok {
			finished = true
			return errs
		}
		if !d.handler.Valid() {
			continue
		}
		err := d.handler.invoke(ctx, d.event)
		r.observer.EventDelivered(r.identifier, d.handler.eventType)
		if r.failed(&errs, d.handler.eventType, err) {
			finished = true
			if dropped := state.abandon(); dropped > 0 {
				r.log.Debug("Dropped queued deliveries after a handler failed", "dropped", dropped)
			}
			return errs
		}
	}
}

// failed applies the [ErrorPolicy] to err, which may be nil.
// True is returned if delivery should stop.
func (r *Router) failed(errs *error, eventType reflect.Type, err error) bool {
	if err == nil {
		return false
	}
	r.observer.HandlerFailed(r.identifier, eventType)
	switch r.errPolicy {
	case LogErrors:
		r.log.Warn("Handler failed", "event_type", eventType.String(), "error", err)
		return false
	case AbortOnError:
		*errs = err
		return true
	default:
		*errs = multierr.Append(*errs, err)
		return false
	}
}

func sortedTypes[V any](found map[reflect.Type]V) []reflect.Type {
	return slices.SortedFunc(maps.Keys(found), func(a, b reflect.Type) int {
		return cmp.Or(
			strings.Compare(a.String(), b.String()),
			strings.Compare(a.PkgPath(), b.PkgPath()),
		)
	})
}
