package router

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// typeEntry holds the live handlers and producer for one event type.
// Writers serialize on mux and publish immutable snapshots, so readers never need to lock.
type typeEntry struct {
	typ      reflect.Type
	mux      sync.Mutex
	handlers atomic.Pointer[[]*Handler]
	producer atomic.Pointer[Producer]
}

func (e *typeEntry) loadHandlers() []*Handler {
	if list := e.handlers.Load(); list != nil {
		return *list
	}
	return nil
}

// registry maps event types to live handlers and producers.
// The entries map is only write-locked to create an entry for a type seen for the first time.
// Entries are never removed, an empty entry simply has no live handlers.
type registry struct {
	mux     sync.RWMutex
	entries map[reflect.Type]*typeEntry
	ifaces  atomic.Pointer[[]reflect.Type]
}

func newRegistry() *registry {
	return &registry{
		entries: map[reflect.Type]*typeEntry{},
	}
}

func (r *registry) lookup(typ reflect.Type) *typeEntry {
	return lockedT(r.mux.RLocker(), func() *typeEntry {
		return r.entries[typ]
	})
}

func (r *registry) lookupOrCreate(typ reflect.Type) *typeEntry {
	if entry := r.lookup(typ); entry != nil {
		return entry
	}
	return lockedT(&r.mux, func() *typeEntry {
		if entry, ok := r.entries[typ]; ok {
			return entry
		}
		entry := &typeEntry{typ: typ}
		r.entries[typ] = entry
		if typ.Kind() == reflect.Interface {
			var ifaces []reflect.Type
			if current := r.ifaces.Load(); current != nil {
				ifaces = slices.Clone(*current)
			}
			ifaces = append(ifaces, typ)
			r.ifaces.Store(&ifaces)
		}
		return entry
	})
}

// addHandler adds h to the live set for its event type.
// False is returned if an equal handler is already live.
func (r *registry) addHandler(h *Handler) bool {
	entry := r.lookupOrCreate(h.eventType)
	return lockedT(&entry.mux, func() bool {
		current := entry.loadHandlers()
		if slices.ContainsFunc(current, func(other *Handler) bool {
			return other.key == h.key
		}) {
			return false
		}
		next := make([]*Handler, len(current), len(current)+1)
		copy(next, current)
		next = append(next, h)
		entry.handlers.Store(&next)
		return true
	})
}

// removeHandler removes the live handler with the same identity as key, and invalidates it.
func (r *registry) removeHandler(typ reflect.Type, key handlerKey) (*Handler, error) {
	entry := r.lookup(typ)
	if entry == nil {
		return nil, fmt.Errorf("%w: no handlers for %s", ErrNotRegistered, typ)
	}
	return lockedTErr(&entry.mux, func() (*Handler, error) {
		current := entry.loadHandlers()
		idx := slices.IndexFunc(current, func(h *Handler) bool {
			return h.key == key
		})
		if idx < 0 {
			return nil, fmt.Errorf("%w: %T.%s is not a handler for %s", ErrNotRegistered, key.target, key.method, typ)
		}
		removed := current[idx]
		removed.invalidate()
		next := slices.Delete(slices.Clone(current), idx, idx+1)
		entry.handlers.Store(&next)
		return removed, nil
	})
}

func (r *registry) hasHandler(typ reflect.Type, key handlerKey) bool {
	return slices.ContainsFunc(r.liveHandlers(typ), func(h *Handler) bool {
		return h.key == key
	})
}

func (r *registry) addProducer(p *Producer) error {
	entry := r.lookupOrCreate(p.eventType)
	return lockedT(&entry.mux, func() error {
		if current := entry.producer.Load(); current != nil {
			return fmt.Errorf("%w: %s is already produced by %s", ErrDuplicateProducer, p.eventType, current)
		}
		entry.producer.Store(p)
		return nil
	})
}

// removeProducer removes the live producer for typ if it has the same identity as key, and invalidates it.
func (r *registry) removeProducer(typ reflect.Type, key handlerKey) (*Producer, error) {
	entry := r.lookup(typ)
	if entry == nil {
		return nil, fmt.Errorf("%w: no producer for %s", ErrNotRegistered, typ)
	}
	return lockedTErr(&entry.mux, func() (*Producer, error) {
		current := entry.producer.Load()
		if current == nil || current.key != key {
			return nil, fmt.Errorf("%w: %T.%s is not the producer for %s", ErrNotRegistered, key.target, key.method, typ)
		}
		current.invalidate()
		entry.producer.Store(nil)
		return current, nil
	})
}

func (r *registry) isProducer(typ reflect.Type, key handlerKey) bool {
	current := r.liveProducer(typ)
	return current != nil && current.key == key
}

// liveHandlers returns a snapshot of the live handlers for exactly typ, in registration order.
// The returned slice must not be modified.
func (r *registry) liveHandlers(typ reflect.Type) []*Handler {
	entry := r.lookup(typ)
	if entry == nil {
		return nil
	}
	return entry.loadHandlers()
}

func (r *registry) liveProducer(typ reflect.Type) *Producer {
	entry := r.lookup(typ)
	if entry == nil {
		return nil
	}
	return entry.producer.Load()
}

// interfaceTypes returns every interface event type that has been subscribed to, in the order they were first seen.
func (r *registry) interfaceTypes() []reflect.Type {
	if ifaces := r.ifaces.Load(); ifaces != nil {
		return *ifaces
	}
	return nil
}
