package queue

import (
	"encoding/json"
	"time"
)

type QueueConfig struct {
	Workers      int
	RetryLimit   int
	RetryDelay   time.Duration // first retry delay; later attempts back off exponentially
	PollInterval time.Duration // how often due retries are promoted
}

// Message is the stored envelope of one job invocation.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
