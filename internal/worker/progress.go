package worker

import (
	"encoding/json"
	"log/slog"

	"ragseed/internal/config"
	"ragseed/internal/seed"
)

// ProgressPublisher is a seed.Sink that republishes every event to NSQ.
// Publish failures are logged and dropped.
type ProgressPublisher struct {
	pub           Publisher
	topic         string
	batchID       string
	correlationID string
}

func NewProgressPublisher(pub Publisher, batchID, correlationID string) *ProgressPublisher {
	return &ProgressPublisher{
		pub:           pub,
		topic:         config.TopicSeedProgress,
		batchID:       batchID,
		correlationID: correlationID,
	}
}

func (p *ProgressPublisher) Send(ev seed.Event) {
	body, err := json.Marshal(ProgressPayload{
		Event:         ev,
		BatchID:       p.batchID,
		CorrelationID: p.correlationID,
	})
	if err != nil {
		slog.Error("failed to marshal progress event", "error", err, "type", ev.Type)
		return
	}
	if err := p.pub.Publish(p.topic, body); err != nil {
		slog.Warn("failed to publish progress event", "error", err, "type", ev.Type, "source_id", ev.ID, "batch_id", p.batchID)
	}
}
