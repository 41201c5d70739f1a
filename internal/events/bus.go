package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is an in-process domain event. The gateway owns no persistence, so
// events live only for the duration of the fan-out.
type Event struct {
	ID         uuid.UUID
	Topic      string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// Notifier reacts to emitted events (logging, metrics, future webhooks).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus fans emitted events out to the configured notifiers. The pricing core
// never touches the bus; only orchestration layers emit.
type Bus struct {
	Notifiers []Notifier
	Now       func() time.Time
}

func (b *Bus) now() time.Time {
	if b != nil && b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Emit dispatches the event to all configured notifiers. Notifier failures
// are joined and returned but do not stop the fan-out.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev := Event{
		ID:         uuid.New(),
		Topic:      topic,
		OccurredAt: b.now(),
		Payload:    encoded,
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	case []byte:
		return encodePayload(json.RawMessage(v))
	default:
		return json.Marshal(v)
	}
}
