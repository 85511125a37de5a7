package events

import (
	"context"
	"encoding/json"
	kafkago "github.com/segmentio/kafka-go"
	"sync"
	"testing"
	"time"
)

type captured struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafkago.Header
}

type fakeSink struct {
	mu   sync.Mutex
	msgs []captured
}

func (f *fakeSink) Publish(topic string, key, value []byte, headers ...kafkago.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, captured{topic, key, value, headers})
}

func TestEmitWrapsPayload(t *testing.T) {
	sink := &fakeSink{}
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	em := &Emitter{Sink: sink, Producer: "catalog-service", Now: func() time.Time { return fixed }}

	em.Emit(context.Background(), TopicStockReserved, TypeStockReserved, "p1",
		StockReservedPayload{Lines: []StockLine{{ProductID: "p1", StockQty: 2}}})

	if len(sink.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(sink.msgs))
	}
	m := sink.msgs[0]
	if m.topic != TopicStockReserved || string(m.key) != "p1" {
		t.Fatalf("topic/key = %s/%s", m.topic, m.key)
	}
	if len(m.headers) != 2 || string(m.headers[0].Value) != TypeStockReserved {
		t.Fatalf("headers = %+v", m.headers)
	}

	var env Envelope
	if err := json.Unmarshal(m.value, &env); err != nil {
		t.Fatal(err)
	}
	if env.EventID == "" || env.Producer != "catalog-service" || !env.OccurredAt.Equal(fixed) {
		t.Fatalf("envelope = %+v", env)
	}
	p, err := Decode[StockReservedPayload](env)
	if err != nil || len(p.Lines) != 1 || p.Lines[0].StockQty != 2 {
		t.Fatalf("payload = %+v err=%v", p, err)
	}
}

func TestNilEmitterIsNoop(t *testing.T) {
	var em *Emitter
	em.Emit(context.Background(), TopicOrderCreated, TypeOrderCreated, "o1", struct{}{})
	(&Emitter{}).Emit(context.Background(), TopicOrderCreated, TypeOrderCreated, "o1", struct{}{})
}
