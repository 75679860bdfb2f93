package router

import (
	"reflect"
	"slices"
	"sync"
)

// ancestor is a type that an event may be routed to, along with the embedded field path used to reach it from the event value.
type ancestor struct {
	typ   reflect.Type
	index []int
	addr  bool // addr is set when the ancestor is a pointer to an embedded value field.
}

// extract follows the field path from an event value.
// False is returned if an embedded pointer along the way, or at the end, is nil.
func (a ancestor) extract(val reflect.Value) (reflect.Value, bool) {
	for _, i := range a.index {
		if val.Kind() == reflect.Pointer {
			if val.IsNil() {
				return reflect.Value{}, false
			}
			val = val.Elem()
		}
		val = val.Field(i)
	}
	if a.addr {
		if !val.CanAddr() {
			return reflect.Value{}, false
		}
		val = val.Addr()
	}
	if val.Kind() == reflect.Pointer && val.IsNil() {
		return reflect.Value{}, false
	}
	return val, true
}

type typePair struct {
	typ, iface reflect.Type
}

// resolver flattens event types into the set of types they can be routed to.
// Both caches only ever grow, since type relationships can't change while the process runs.
type resolver struct {
	hierarchies sync.Map // reflect.Type -> []ancestor
	implemented sync.Map // typePair -> bool
}

// resolve returns typ followed by every exported type embedded in it, transitively and breadth first.
// Each type is only reported once, using the shortest path to it.
func (r *resolver) resolve(typ reflect.Type) []ancestor {
	if typ == nil {
		panic("nil event type")
	}
	if cached, ok := r.hierarchies.Load(typ); ok {
		return cached.([]ancestor)
	}
	// Racing goroutines may both flatten, but only one result is kept and they're identical anyway.
	stored, _ := r.hierarchies.LoadOrStore(typ, flatten(typ))
	return stored.([]ancestor)
}

func (r *resolver) implements(typ, iface reflect.Type) bool {
	key := typePair{typ: typ, iface: iface}
	if cached, ok := r.implemented.Load(key); ok {
		return cached.(bool)
	}
	result := typ.Implements(iface)
	r.implemented.Store(key, result)
	return result
}

func flatten(root reflect.Type) []ancestor {
	type location struct {
		typ         reflect.Type
		index       []int
		addressable bool
	}
	type expansion struct {
		typ         reflect.Type
		addressable bool
	}
	var (
		ancestors = []ancestor{{typ: root}}
		seen      = map[reflect.Type]bool{root: true}
		expanded  = map[expansion]bool{}
		pending   = []location{{typ: root}}
	)
	for len(pending) > 0 {
		loc := pending[0]
		pending = pending[1:]

		st, addressable := loc.typ, loc.addressable
		if st.Kind() == reflect.Pointer {
			// Anything behind a pointer lives in addressable memory.
			st, addressable = st.Elem(), true
		}
		if st.Kind() != reflect.Struct {
			continue
		}
		// Guards against self-referential embedding like 'type Node struct{ *Node }'.
		if expanded[expansion{st, addressable}] {
			continue
		}
		expanded[expansion{st, addressable}] = true

		for i := 0; i < st.NumField(); i++ {
			field := st.Field(i)
			// Values reached through unexported fields can't be passed to handlers.
			if !field.Anonymous || !field.IsExported() || field.Type.Kind() == reflect.Interface {
				continue
			}
			index := append(slices.Clone(loc.index), i)
			anc := ancestor{typ: field.Type, index: index}
			if addressable && field.Type.Kind() != reflect.Pointer {
				anc.typ = reflect.PointerTo(field.Type)
				anc.addr = true
			}
			if !seen[anc.typ] {
				seen[anc.typ] = true
				ancestors = append(ancestors, anc)
			}
			pending = append(pending, location{typ: field.Type, index: index, addressable: addressable})
		}
	}
	return ancestors
}
