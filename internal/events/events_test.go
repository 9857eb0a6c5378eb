package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/crm-service/internal/config"
	"github.com/crmdesk/crm-service/internal/domain"
)

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventLeadStageChanged, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestSubscribeAllReceivesEveryType(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	seen := map[EventType]bool{}
	SubscribeAll(d, func(_ context.Context, e Event) error {
		seen[e.Type] = true
		return nil
	})
	for _, et := range AllEventTypes {
		require.NoError(t, d.Publish(context.Background(), Event{Type: et}))
	}
	assert.Len(t, seen, len(AllEventTypes))
}

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaForwarderKeysByRecord(t *testing.T) {
	w := &recordingWriter{}
	f := NewKafkaForwarderWithWriter(w, nil)
	d := NewInMemoryDispatcher(nil)
	f.Attach(d)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, d.Publish(context.Background(), Event{
		ID:         "e1",
		Type:       EventLeadStageChanged,
		RecordType: domain.RecordLead,
		RecordID:   "lead-1",
		Timestamp:  ts,
		Payload:    StageChangedPayload{FromStage: domain.StageNew, ToStage: domain.StageContact},
	}))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "lead-1", string(msg.Key))
	assert.Equal(t, ts, msg.Time)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, string(EventLeadStageChanged), string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "lead_stage_changed", decoded["type"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "contato", payload["to_stage"])
}

func TestKafkaForwarderAfterClose(t *testing.T) {
	w := &recordingWriter{}
	f := NewKafkaForwarderWithWriter(w, nil)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.True(t, w.closed)

	err := f.Forward(context.Background(), Event{Type: EventTicketCreated})
	assert.ErrorIs(t, err, ErrForwarderClosed)
}

func TestNewKafkaForwarderWithoutBrokers(t *testing.T) {
	assert.Nil(t, NewKafkaForwarder(config.KafkaConfig{}, nil))

	var f *KafkaForwarder
	f.Attach(NewInMemoryDispatcher(nil))
	assert.NoError(t, f.Close())
}
