package router

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"reflect"
	"testing"
)

func TestRouter_Concurrent_Post(t *testing.T) {
	const (
		posters = 8
		posts   = 200
	)
	var (
		ctx     = context.Background()
		r       = MustNew()
		counter = new(intCounter)
	)
	require.NoError(t, r.Register(ctx, counter))

	grp, ctx := errgroup.WithContext(ctx)
	for i := 0; i < posters; i++ {
		grp.Go(func() error {
			for j := 0; j < posts; j++ {
				if err := r.Post(ctx, j); err != nil {
					return err
				}
			}
			return nil
		})
	}
	// Churn registrations of other types while posting.
	grp.Go(func() error {
		for j := 0; j < posts; j++ {
			rec := new(stringRecorder)
			if err := r.Register(ctx, rec); err != nil {
				return err
			}
			if err := r.Unregister(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, grp.Wait())
	assert.Equal(t, int64(posters*posts), counter.count.Load())
}

func TestRouter_Concurrent_Register(t *testing.T) {
	const subscribers = 64
	var (
		ctx      = context.Background()
		r        = MustNew()
		producer = &stringProducer{value: "seed"}
		recs     = make([]*stringRecorder, subscribers)
	)
	require.NoError(t, r.Register(ctx, producer))

	var grp errgroup.Group
	for i := range recs {
		recs[i] = new(stringRecorder)
		rec := recs[i]
		grp.Go(func() error {
			return r.Register(ctx, rec)
		})
	}
	require.NoError(t, grp.Wait())
	for _, rec := range recs {
		assert.Equal(t, []string{"seed"}, rec.values(), "Each subscriber should receive the produced value exactly once")
	}
	assert.Equal(t, int32(subscribers), producer.calls.Load())
	assert.Len(t, r.registry.liveHandlers(reflect.TypeFor[string]()), subscribers)
}
