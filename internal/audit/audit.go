// Package audit captures mutating requests for a compliance trail. Records
// are emitted to a sink asynchronously so audit delivery never delays the
// response already computed for the client.
package audit

import (
	"context"
	"time"
)

// Record describes one audited request. Records are write-once; sinks append
// them and never update or delete.
type Record struct {
	RequestID string        `json:"request_id"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Actor     string        `json:"actor,omitempty"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}

// Sink receives audit records. Delivery is best-effort; a failing sink is
// logged by the recorder and never surfaces to the request path.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Write(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
