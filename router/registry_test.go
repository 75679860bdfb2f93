package router

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reflect"
	"testing"
)

func testStringHandler(t *testing.T, target *stringRecorder) *Handler {
	t.Helper()
	h, err := NewHandler(target, "HandleString", target.HandleString, false)
	require.NoError(t, err)
	return h
}

func TestRegistry_AddRemoveHandler(t *testing.T) {
	var (
		reg        = newRegistry()
		stringType = reflect.TypeFor[string]()
		a, b       = new(stringRecorder), new(stringRecorder)
		ha, hb     = testStringHandler(t, a), testStringHandler(t, b)
	)
	assert.Empty(t, reg.liveHandlers(stringType))
	assert.True(t, reg.addHandler(ha))
	assert.True(t, reg.addHandler(hb))
	assert.False(t, reg.addHandler(testStringHandler(t, a)), "Equal handler should not be added twice")

	snapshot := reg.liveHandlers(stringType)
	require.Len(t, snapshot, 2)
	assert.Same(t, ha, snapshot[0], "Handlers should be kept in registration order")
	assert.Same(t, hb, snapshot[1])
	assert.True(t, reg.hasHandler(stringType, ha.key))

	removed, err := reg.removeHandler(stringType, testStringHandler(t, a).key)
	require.NoError(t, err)
	assert.Same(t, ha, removed, "The live handler should be removed, not the lookup copy")
	assert.False(t, ha.Valid(), "Removed handler should be invalidated")
	assert.True(t, hb.Valid())
	assert.Len(t, snapshot, 2, "Earlier snapshots should not be modified")
	assert.Equal(t, []*Handler{hb}, reg.liveHandlers(stringType))

	_, err = reg.removeHandler(stringType, ha.key)
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = reg.removeHandler(reflect.TypeFor[int](), ha.key)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegistry_Producers(t *testing.T) {
	var (
		reg        = newRegistry()
		stringType = reflect.TypeFor[string]()
		first      = new(stringProducer)
		second     = new(stringProducer)
	)
	p1, err := NewProducer(first, "ProduceString", first.ProduceString, false)
	require.NoError(t, err)
	p2, err := NewProducer(second, "ProduceString", second.ProduceString, false)
	require.NoError(t, err)

	assert.Nil(t, reg.liveProducer(stringType))
	require.NoError(t, reg.addProducer(p1))
	assert.ErrorIs(t, reg.addProducer(p2), ErrDuplicateProducer)
	assert.Same(t, p1, reg.liveProducer(stringType))
	assert.True(t, reg.isProducer(stringType, p1.key))
	assert.False(t, reg.isProducer(stringType, p2.key))

	_, err = reg.removeProducer(stringType, p2.key)
	assert.ErrorIs(t, err, ErrNotRegistered, "Only the owner of the live producer may remove it")
	assert.True(t, p1.Valid())

	removed, err := reg.removeProducer(stringType, p1.key)
	require.NoError(t, err)
	assert.Same(t, p1, removed)
	assert.False(t, p1.Valid())
	assert.Nil(t, reg.liveProducer(stringType))

	_, err = reg.removeProducer(stringType, p1.key)
	assert.ErrorIs(t, err, ErrNotRegistered)
	require.NoError(t, reg.addProducer(p2), "Type should accept a new producer once the old one is removed")
}

func TestRegistry_InterfaceTypes(t *testing.T) {
	reg := newRegistry()
	target := new(namedRecorder)
	h, err := NewHandler(target, "HandleNamed", target.HandleNamed, true)
	require.NoError(t, err)
	reg.addHandler(h)
	reg.addHandler(testStringHandler(t, new(stringRecorder)))
	assert.Equal(t, []reflect.Type{reflect.TypeFor[Named]()}, reg.interfaceTypes())

	_, err = reg.removeHandler(reflect.TypeFor[Named](), h.key)
	require.NoError(t, err)
	assert.Len(t, reg.interfaceTypes(), 1, "Interface types are remembered even without live handlers")
	assert.Empty(t, reg.liveHandlers(reflect.TypeFor[Named]()))
}
