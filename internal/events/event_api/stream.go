package event_api

import (
	"encoding/json"
	"fmt"
	"ms-events/internal/models"
	"net/http"
)

// StreamAll streams every event change as Server-Sent Events until the client leaves.
func (h *Handler) StreamAll(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	changes := h.Emitter.SubscribeAll(r.Context())
	setupSSEHeaders(w)
	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to event change stream (%d subscribers)", h.Emitter.ClientCount()))
	h.stream(w, r, flusher, changes, "all")
}

// StreamEvent streams changes of a single event. Unknown ids are accepted so a
// client may subscribe before the event exists.
func (h *Handler) StreamEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	changes := h.Emitter.SubscribeToEvent(r.Context(), id)
	setupSSEHeaders(w)
	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"eventId\":%d}\n\n", id)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to change stream of event %d (%d subscribers)", id, h.Emitter.ClientCount()))
	h.stream(w, r, flusher, changes, fmt.Sprintf("event %d", id))
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, flusher http.Flusher, changes <-chan models.EventChange, scope string) {
	ctx := r.Context()
	for {
		select {
		case change, ok := <-changes:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for %s", scope))
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize event change: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Type, data)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from %s", scope))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}
