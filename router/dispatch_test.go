package router

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reflect"
	"testing"
)

func testDeliveries(vals ...string) []delivery {
	ds := make([]delivery, len(vals))
	for i, val := range vals {
		ds[i] = delivery{event: reflect.ValueOf(val)}
	}
	return ds
}

func TestDeliveryQueue(t *testing.T) {
	var q deliveryQueue
	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push(testDeliveries("a", "b")...)
	assert.Equal(t, 2, q.Len())
	d, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", d.event.String())

	q.Push(testDeliveries("c")...)
	for _, expected := range []string{"b", "c"} {
		d, ok = q.Pop()
		require.True(t, ok)
		assert.Equal(t, expected, d.event.String())
	}
	assert.Equal(t, 0, q.Len())
	_, ok = q.Pop()
	assert.False(t, ok)

	q.Push(testDeliveries("d", "e")...)
	q.Clear()
	assert.Equal(t, 0, q.Len())
}

func TestDispatchState_Transitions(t *testing.T) {
	state := new(dispatchState)
	assert.False(t, state.enqueueIfDraining(testDeliveries("early")), "Idle state should not accept deliveries")

	state.start(testDeliveries("a"))
	assert.True(t, state.enqueueIfDraining(testDeliveries("b")))

	d, ok := state.next()
	require.True(t, ok)
	assert.Equal(t, "a", d.event.String())
	d, ok = state.next()
	require.True(t, ok)
	assert.Equal(t, "b", d.event.String())

	_, ok = state.next()
	assert.False(t, ok)
	assert.False(t, state.draining, "Empty queue should return the state to idle")
	assert.False(t, state.enqueueIfDraining(testDeliveries("late")))
	assert.Equal(t, 0, state.queue.Len())
}

func TestDispatchState_Abandon(t *testing.T) {
	state := new(dispatchState)
	state.start(testDeliveries("a", "b", "c"))
	_, _ = state.next()
	assert.Equal(t, 2, state.abandon())
	assert.False(t, state.draining)
	assert.Equal(t, 0, state.queue.Len())
}

func TestDispatchState_ScopedToRouter(t *testing.T) {
	var (
		a, b  = MustNew(), MustNew()
		state = new(dispatchState)
		ctx   = withDispatchState(context.Background(), a, state)
	)
	assert.Same(t, state, dispatchStateFrom(ctx, a))
	assert.Nil(t, dispatchStateFrom(ctx, b))
	assert.Nil(t, dispatchStateFrom(context.Background(), a))
}
