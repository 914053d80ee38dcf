package seeding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"ragseed/internal/config"
	"ragseed/internal/middleware"
	"ragseed/internal/seed"
	"ragseed/internal/worker"
)

// streamBuffer bounds how far the pipeline may run ahead of a slow client.
const streamBuffer = 64

type SourceSelector interface {
	Select(ctx context.Context, ids []string) ([]seed.Source, error)
}

type Batcher interface {
	Run(ctx context.Context, sources []seed.Source, sink seed.Sink) []seed.Outcome
	Stream(ctx context.Context, sources []seed.Source, buffer int) (*seed.ChanSink, <-chan []seed.Outcome)
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

type Handler struct {
	sources SourceSelector
	batcher Batcher
	pub     Publisher
}

// NewHandler wires the seeding endpoints. pub may be nil, in which case
// async requests are rejected.
func NewHandler(sources SourceSelector, batcher Batcher, pub Publisher) *Handler {
	return &Handler{sources: sources, batcher: batcher, pub: pub}
}

type seedRequest struct {
	SourceIDs []string `json:"source_ids"`
}

func decodeRequest(r *http.Request) (seedRequest, error) {
	var req seedRequest
	if r.Body == nil {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

func (h *Handler) selectSources(w http.ResponseWriter, r *http.Request, ids []string) ([]seed.Source, bool) {
	ctx := r.Context()
	sources, err := h.sources.Select(ctx, ids)
	if err != nil {
		slog.ErrorContext(ctx, "failed to select sources", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if len(sources) == 0 {
		h.writeError(ctx, w, "NO_SOURCES", "No sources", http.StatusBadRequest)
		return nil, false
	}
	return sources, true
}

// Seed runs the batch inside the request and answers with every outcome.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeRequest(r)
	if err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	sources, ok := h.selectSources(w, r, req.SourceIDs)
	if !ok {
		return
	}

	outcomes := h.batcher.Run(ctx, sources, seed.Discard)

	failed := 0
	for _, o := range outcomes {
		if !o.OK {
			failed++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": outcomes,
		"meta": map[string]int{"count": len(outcomes), "ok": len(outcomes) - failed, "failed": failed},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Stream runs the batch and relays every progress event as a server-sent
// event. A client that disconnects only stops the relay; the batch keeps
// running and still records every outcome.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(ctx, w, "INTERNAL_ERROR", "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sources, ok := h.selectSources(w, r, r.URL.Query()["id"])
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink, _ := h.batcher.Stream(context.WithoutCancel(ctx), sources, streamBuffer)
	for {
		select {
		case ev, open := <-sink.Events():
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				slog.WarnContext(ctx, "progress stream write failed", "error", err)
				sink.Detach()
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			slog.InfoContext(ctx, "progress consumer disconnected, batch continues")
			sink.Detach()
			return
		}
	}
}

func writeEvent(w io.Writer, ev seed.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data:%s\n\n", data)
	return err
}

// Enqueue hands the request to the seed worker over NSQ.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.pub == nil {
		h.writeError(ctx, w, "UNAVAILABLE", "seed worker queue is not configured", http.StatusServiceUnavailable)
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	correlationID := middleware.GetCorrelationID(ctx)
	body, err := json.Marshal(worker.SeedRequest{SourceIDs: req.SourceIDs, CorrelationID: correlationID})
	if err != nil {
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.pub.Publish(config.TopicSeedRequest, body); err != nil {
		slog.ErrorContext(ctx, "failed to publish seed request", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to queue seed request", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(ctx, "seed request queued", "sources", len(req.SourceIDs))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]string{"status": "queued", "correlationId": correlationID},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
