package router

import (
	"context"
	"reflect"
	"sync"
)

// delivery is an event waiting to be passed to a handler.
type delivery struct {
	event   reflect.Value
	handler *Handler
}

// deliveryQueue is a FIFO of deliveries.
// It's not safe for concurrent use on its own, the owning dispatchState serializes access.
type deliveryQueue struct {
	values []delivery
	head   int
}

func (q *deliveryQueue) Len() int {
	return len(q.values) - q.head
}

func (q *deliveryQueue) Push(vals ...delivery) {
	q.values = append(q.values, vals...)
}

// Pop will pop a delivery from the head of the queue.
// False will be returned if the queue is empty.
func (q *deliveryQueue) Pop() (delivery, bool) {
	if q.Len() == 0 {
		return delivery{}, false
	}
	d := q.values[q.head]
	q.values[q.head] = delivery{}
	q.head++
	if q.head == len(q.values) {
		// Reuse the backing array once everything has been consumed.
		q.values = q.values[:0]
		q.head = 0
	}
	return d, true
}

func (q *deliveryQueue) Clear() {
	clear(q.values)
	q.values = q.values[:0]
	q.head = 0
}

// dispatchState is created by the outermost Post call in a call chain, and travels with its context.
// It moves from idle to draining when that call starts delivering, and back to idle once the queue is empty.
// Only the draining call delivers events; nested calls just add to its queue.
type dispatchState struct {
	mux      sync.Mutex
	queue    deliveryQueue
	draining bool
}

// enqueueIfDraining adds deliveries to the queue of a drain that is in progress.
// False is returned if the state is idle, meaning the caller must start its own drain.
func (s *dispatchState) enqueueIfDraining(deliveries []delivery) bool {
	return lockedT(&s.mux, func() bool {
		if !s.draining {
			return false
		}
		s.queue.Push(deliveries...)
		return true
	})
}

// start moves an idle state to draining with the given deliveries queued.
func (s *dispatchState) start(deliveries []delivery) {
	locked(&s.mux, func() {
		s.draining = true
		s.queue.Push(deliveries...)
	})
}

// next pops the next delivery.
// When the queue is empty the state goes back to idle in the same critical section, so a concurrent enqueueIfDraining can't strand an event.
func (s *dispatchState) next() (delivery, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	d, ok := s.queue.Pop()
	if !ok {
		s.draining = false
	}
	return d, ok
}

// abandon drops anything still queued and goes back to idle.
func (s *dispatchState) abandon() int {
	return lockedT(&s.mux, func() int {
		dropped := s.queue.Len()
		s.queue.Clear()
		s.draining = false
		return dropped
	})
}

// dispatchKey scopes dispatch state to a single router, so routers sharing a context don't share queues.
type dispatchKey struct {
	router *Router
}

func dispatchStateFrom(ctx context.Context, r *Router) *dispatchState {
	state, _ := ctx.Value(dispatchKey{router: r}).(*dispatchState)
	return state
}

func withDispatchState(ctx context.Context, r *Router, state *dispatchState) context.Context {
	return context.WithValue(ctx, dispatchKey{router: r}, state)
}
