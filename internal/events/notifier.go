package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every emitted event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, event Event) error {
	l.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("topic", event.Topic).
		Time("occurred_at", event.OccurredAt).
		RawJSON("payload", event.Payload).
		Msg("domain_event")
	return nil
}
