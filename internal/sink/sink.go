// Package sink writes accepted events to the delivery stream.
//
// Every implementation frames a record the same way: compact JSON, UTF-8,
// terminated by a single newline. Stream consumers split on that newline.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Sink durably appends one event record. Implementations are safe for concurrent use.
type Sink interface {
	PutEvent(ctx context.Context, payload map[string]any) error
}

// Named is implemented by sinks that report a label for logs and metrics.
type Named interface {
	Name() string
}

// DeliveryError is returned when the underlying stream rejects a write.
type DeliveryError struct {
	Sink    string
	EventID string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver event %s to %s: %v", e.EventID, e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Encode renders payload as one newline-terminated compact JSON record.
// HTML characters are not escaped and non-ASCII text is written as UTF-8.
func Encode(payload map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func eventID(payload map[string]any) string {
	id, _ := payload["event_id"].(string)
	return id
}
