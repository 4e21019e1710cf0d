package sse_test

import (
	"context"
	"ms-events/internal/models"
	"ms-events/internal/sse"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan models.EventChange) models.EventChange {
	t.Helper()
	select {
	case change := <-ch:
		return change
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
	return models.EventChange{}
}

func TestEmitReachesAllAndMatchingSubscribers(t *testing.T) {
	emitter := sse.NewChangeEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := emitter.SubscribeAll(ctx)
	one := emitter.SubscribeToEvent(ctx, 1)
	two := emitter.SubscribeToEvent(ctx, 2)
	assert.Equal(t, 3, emitter.ClientCount())

	emitter.Emit(models.NewEventChange(models.ChangeUpdated, 1, nil))

	assert.Equal(t, int64(1), receive(t, all).EventID)
	assert.Equal(t, int64(1), receive(t, one).EventID)
	select {
	case <-two:
		t.Fatal("subscriber of event 2 received a change for event 1")
	default:
	}
}

func TestUnsubscribeOnContextDone(t *testing.T) {
	emitter := sse.NewChangeEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	all := emitter.SubscribeAll(ctx)
	one := emitter.SubscribeToEvent(ctx, 7)
	cancel()

	require.Eventually(t, func() bool { return emitter.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-all
	assert.False(t, open)
	_, open = <-one
	assert.False(t, open)

	// emitting with no subscribers must not panic on closed channels
	emitter.Emit(models.NewEventChange(models.ChangeDeleted, 7, nil))
}

func TestEmitDoesNotBlockOnSlowSubscriber(t *testing.T) {
	emitter := sse.NewChangeEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = emitter.SubscribeAll(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			emitter.Emit(models.NewEventChange(models.ChangeCreated, int64(i), nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber buffer")
	}
}
