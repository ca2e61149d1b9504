package producer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"

	"user-account-service/internal/telemetry/domain"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestNewKafkaProducer_Disabled(t *testing.T) {
	if p := NewKafkaProducer(nil, "account-events"); p != nil {
		t.Error("producer without brokers should be nil")
	}
	if p := NewKafkaProducer([]string{"localhost:9092"}, ""); p != nil {
		t.Error("producer without topic should be nil")
	}
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaProducerWith(w)
	event := domain.NewEvent(domain.TypeUserStatusChanged, "user-1", "admin@example.com")
	event.Metadata = map[string]string{"isActive": "false"}

	if err := p.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.messages))
	}
	msg := w.messages[0]
	if string(msg.Key) != "user-1" {
		t.Errorf("key = %q, want %q", msg.Key, "user-1")
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != domain.TypeUserStatusChanged {
		t.Errorf("headers = %v, want event_type header", msg.Headers)
	}
	var got map[string]any
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if got["eventType"] != domain.TypeUserStatusChanged {
		t.Errorf("eventType = %v, want %q", got["eventType"], domain.TypeUserStatusChanged)
	}
	if got["actor"] != "admin@example.com" {
		t.Errorf("actor = %v, want admin@example.com", got["actor"])
	}
}

func TestKafkaProducer_EmitWithoutUserHasNoKey(t *testing.T) {
	w := &fakeWriter{}
	if err := NewKafkaProducerWith(w).Emit(context.Background(), domain.NewEvent("system.start", "", "")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if w.messages[0].Key != nil {
		t.Errorf("key = %q, want nil", w.messages[0].Key)
	}
}

func TestKafkaProducer_EmitError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	err := NewKafkaProducerWith(w).Emit(context.Background(), domain.NewEvent(domain.TypeUserUpdated, "u1", ""))
	if err == nil {
		t.Fatal("Emit should return the writer error")
	}
}

func TestKafkaProducer_NilSafe(t *testing.T) {
	var p *KafkaProducer
	if err := p.Emit(context.Background(), domain.NewEvent(domain.TypeUserUpdated, "u1", "")); err != nil {
		t.Errorf("nil Emit: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
	w := &fakeWriter{}
	if err := NewKafkaProducerWith(w).Emit(context.Background(), nil); err != nil || len(w.messages) != 0 {
		t.Errorf("nil event: err=%v messages=%d", err, len(w.messages))
	}
}

func TestKafkaProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	if err := NewKafkaProducerWith(w).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !w.closed {
		t.Error("writer should be closed")
	}
}
