package events

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-catalog-orders/internal/tracing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"strconv"
	"time"
)

// Sink accepts an encoded message for a topic without blocking the caller.
type Sink interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Emitter wraps payloads in an Envelope and hands them to a Sink. A nil
// Emitter, or one without a Sink, drops events.
type Emitter struct {
	Sink     Sink
	Producer string
	Log      zerolog.Logger
	Now      func() time.Time
}

func (e *Emitter) Emit(ctx context.Context, topic, eventType, key string, payload any) {
	if e == nil || e.Sink == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		e.Log.Error().Err(err).Str("event_type", eventType).Msg("encode event payload")
		return
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now().UTC(),
		Producer:      e.Producer,
		TraceID:       tracing.TraceID(ctx),
		CorrelationID: key,
		Payload:       raw,
	}
	value, err := json.Marshal(env)
	if err != nil {
		e.Log.Error().Err(err).Str("event_type", eventType).Msg("encode envelope")
		return
	}
	e.Sink.Publish(topic, PartitionKey(key), value,
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}
