package metrics

import (
	"context"
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/saylorsolutions/typebus/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

type words struct {
	name string
}

func (w *words) HandleWord(string) {}

type picky struct {
	name string
}

func (p *picky) HandleWord(word string) error {
	if word == "bad" {
		return errors.New("bad word")
	}
	return nil
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	var (
		ctx = context.Background()
		r   = router.MustNew(router.WithIdentifier("counted"), router.WithObserver(m))
	)
	require.NoError(t, r.Register(ctx, new(words)))
	require.NoError(t, r.Register(ctx, new(picky)))

	require.NoError(t, r.Post(ctx, "good"))
	require.Error(t, r.Post(ctx, "bad"))
	require.NoError(t, r.Post(ctx, 42))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Posted().WithLabelValues("counted", "string")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Posted().WithLabelValues("counted", "int")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Delivered().WithLabelValues("counted", "string")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failed().WithLabelValues("counted", "string")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dead().WithLabelValues("counted", "int")))

	expected := `
# HELP typebus_dead_events_total Number of posted events that matched no handlers.
# TYPE typebus_dead_events_total counter
typebus_dead_events_total{event_type="int",router="counted"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "typebus_dead_events_total"))
}

func TestNew_Reregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err, "Registering twice should reuse the existing collectors")
	assert.Same(t, first.Posted(), second.Posted())

	_, err = New(nil)
	assert.ErrorIs(t, err, router.ErrInvalidArgument)
}

func TestNew_Conflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_posted_total",
		Help:      "Something else entirely.",
	})))
	_, err := New(reg)
	assert.Error(t, err)
}
