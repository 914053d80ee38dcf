package worker

import "ragseed/internal/seed"

// SeedRequest asks the worker to seed the given sources, or every pending
// source when SourceIDs is empty.
type SeedRequest struct {
	SourceIDs     []string `json:"source_ids,omitempty"`
	CorrelationID string   `json:"correlation_id"`
}

// ProgressPayload is a progress event as published on the progress topic.
type ProgressPayload struct {
	seed.Event
	BatchID       string `json:"batch_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
