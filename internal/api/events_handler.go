package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api/shared"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/logger"
)

// SSE event names
const (
	sseEventSnapshot = "snapshot"
	sseEventJob      = "job"
)

// Events handles GET /api/tools/{tool}/events. The stream opens with a
// snapshot of the queue and then carries every job event for the tool.
// Slow clients may miss events; the seq field reveals the gap and a client
// can reload the snapshot.
func (h *StudioHandler) Events(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Subscribe before taking the snapshot so no change falls in between.
	ch, unsubscribe := h.broadcaster.Subscribe(d.Tool())
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, sseEventSnapshot, queueState(d)); err != nil {
		log.Debug("event stream closed", "error", err)
		return
	}
	flusher.Flush()
	log.Debug("event stream opened", "tool", d.Tool())

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("event stream closed by client", "tool", d.Tool())
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-ch:
			if !open {
				return
			}
			if err := writeJobEvent(w, event); err != nil {
				log.Debug("event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeJobEvent(w http.ResponseWriter, e events.JobEvent) error {
	if _, err := fmt.Fprintf(w, "id: %d\n", e.Seq); err != nil {
		return err
	}
	return writeSSE(w, sseEventJob, e)
}

func writeSSE(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
