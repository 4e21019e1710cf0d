package event_api

import (
	"bytes"
	"context"
	"ms-events/internal/logger"
	"ms-events/internal/sse"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamLogsSubscriberCount(t *testing.T) {
	var buf bytes.Buffer
	emitter := sse.NewChangeEmitter()
	h := &Handler{Emitter: emitter, Logger: logger.NewConsoleLogger(&buf)}

	other, cancelOther := context.WithCancel(context.Background())
	defer cancelOther()
	emitter.SubscribeToEvent(other, 9)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.StreamAll(rec, req)
	}()

	require.Eventually(t, func() bool { return emitter.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, buf.String(), "Client connected to event change stream (2 subscribers)")
	assert.Contains(t, rec.Body.String(), "event: connected")
}
