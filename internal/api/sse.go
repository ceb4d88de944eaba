package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StreamEvents handles GET /api/v1/surveys/{id}/events.
// It streams progress updates as server-sent events until the campaign
// completes or the client disconnects.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	st := h.tracker.Check(r.Context(), sv.ID, false, false)

	// If already complete, send the final event and close immediately.
	if st.Complete {
		writeSSEEvent(w, flusher, "result", st)
		return
	}

	// Subscribe before starting so the first tick cannot be missed.
	ch := h.monitor.Subscribe(sv.ID)
	defer h.monitor.Unsubscribe(sv.ID, ch)
	h.monitor.Start(sv.ID, nil)

	// Send the current status so the client has an initial state.
	writeSSEEvent(w, flusher, "status", st)

	for {
		select {
		case ev, open := <-ch:
			if !open {
				return
			}
			if ev.Done {
				writeSSEEvent(w, flusher, "result", ev.Status)
				return
			}
			writeSSEEvent(w, flusher, "status", ev.Status)
		case <-r.Context().Done():
			return
		}
	}
}

// writeSSEEvent serialises data as JSON and writes a single SSE event frame.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
