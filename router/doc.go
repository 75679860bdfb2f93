/*
Package router provides an in-process event router that delivers events to handlers based on the Go type of the event.

# Handlers and Producers

Objects are registered with a [Router], and a [HandlerFinder] discovers what they handle and produce.
The default [MethodFinder] looks at the exported methods of a pointer to the object:

  - A method starting with "Handle" that accepts one event parameter is a handler for that parameter's type.
    It may accept a [context.Context] before the event, and may return an error.
  - A method starting with "Produce" that accepts no parameters (or just a [context.Context]) and returns a value is a producer for the value's type.
    It may also return an error after the value.

Only one producer may be live for each event type in a [Router].
A producer supplies the current value of its type to handlers as they're registered, so a late subscriber doesn't have to wait for the next event.
A producer that returns a nil pointer, map, slice, or similar has nothing to deliver.

The identity of a handler is the pointer it was found on plus its method name.
Registering the same object twice has no additional effect, and [Router.Unregister] must be passed the same pointer.
Pointers to zero-size values like struct{} may all share one address, so they can't be told apart and are rejected as targets.
Give a stateless subscriber at least one field if it needs to be registered.

# Routing

An event is delivered to handlers of exactly its own type, and then to handlers of each exported type embedded in it.
This is applied transitively and breadth first, so a type embedded at a shallower depth comes before one embedded more deeply.
When the posted event is a pointer, or an embedded field is reached through a pointer, then handlers of a pointer to the embedded type receive the address of the field.

	type Base struct{ ID int }
	type Derived struct{ Base }

	// Posting Derived{} reaches handlers of Derived, then Base.
	// Posting &Derived{} reaches handlers of *Derived, then *Base.

Unexported embedded types and embedded interfaces are not followed, and an embedded pointer that is nil is skipped.

With [EmbeddedAndInterfaces], events are also delivered to handlers of any interface type the event implements, after the embedded types.

If an event matches no handlers, then a [DeadEvent] wrapping it is posted instead.
A DeadEvent that matches no handlers is dropped.

# Ordering

Events are delivered synchronously, on the goroutine calling [Router.Post].
If a handler posts while it's handling an event, using the context it was given, then the new deliveries are queued behind everything already waiting.
Handlers that post this way run to completion before the next delivery starts, and their events are delivered in the order they were posted.

The queue travels with the context, so a handler that posts with any other context, such as one captured earlier or [context.Background], starts a separate delivery that runs before the handler returns.
Handlers that post should accept a [context.Context] and pass it to [Router.Post].

A panic in a handler isn't recovered.
Anything still queued by that call to Post is dropped, and the router is left ready for the next call.

# Errors

Errors returned by handlers and producers are wrapped in an [InvocationError], and handled according to the [ErrorPolicy].
Arguments that can never work, like a nil event or a handler with the wrong signature, are reported with errors matching [ErrInvalidArgument].

# Concurrency

A [Router] may be used from many goroutines at once.
Routing reads immutable snapshots of the registered handlers, so posting doesn't contend with registration.
Use a [ThreadEnforcer] such as [ContextEnforcer] to confine a [Router] to a single event loop.
*/
package router
