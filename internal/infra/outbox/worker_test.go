package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appoutbox "carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	infraoutbox "carrental/internal/infra/outbox"
	"carrental/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type recordingProducer struct {
	mu   sync.Mutex
	fail error
	sent []published
}

func (p *recordingProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func commitRecord(t *testing.T, store *memory.Store, rec appoutbox.EventRecord) {
	t.Helper()
	ctx := context.Background()
	unit, err := memory.Factory{Store: store}.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Outbox().Add(ctx, rec))
	require.NoError(t, unit.Commit(ctx))
}

func TestFlushPublishesCloudEvent(t *testing.T) {
	store := memory.NewStore()
	commitRecord(t, store, appoutbox.EventRecord{
		ID:         "evt-1",
		Name:       "booking.created",
		Payload:    []byte(`{"booking_id":"bk-1"}`),
		OccurredAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Aggregate:  "bk-1",
	})
	producer := &recordingProducer{}
	w := &infraoutbox.Worker{Store: store, Producer: producer, TopicPrefix: "dev."}

	require.NoError(t, w.Flush(context.Background()))
	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	require.Equal(t, "dev.booking.events.v1", msg.topic)
	require.Equal(t, "bk-1", msg.key)
	require.Equal(t, "application/cloudevents+json", msg.headers["content-type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	require.Equal(t, "evt-1", evt["id"])
	require.Equal(t, "booking.created.v1", evt["type"])
	require.Equal(t, "bk-1", evt["data"].(map[string]any)["booking_id"])
	require.Equal(t, infraoutbox.StateSent, store.OutboxStates()["evt-1"])
}

func TestFlushMarksFailedOnPublishError(t *testing.T) {
	store := memory.NewStore()
	commitRecord(t, store, appoutbox.EventRecord{ID: "evt-1", Name: "payment.confirmed", Payload: []byte(`{}`)})
	w := &infraoutbox.Worker{
		Store:    store,
		Producer: &recordingProducer{fail: errors.New("broker down")},
		Backoff:  []time.Duration{time.Hour},
	}

	require.NoError(t, w.Flush(context.Background()))
	require.Equal(t, infraoutbox.StateFailed, store.OutboxStates()["evt-1"])

	// backoff keeps the record out of the next flush
	producer := &recordingProducer{}
	w.Producer = producer
	require.NoError(t, w.Flush(context.Background()))
	require.Empty(t, producer.sent)
}

func TestFlushRejectsMalformedPayload(t *testing.T) {
	store := memory.NewStore()
	commitRecord(t, store, appoutbox.EventRecord{ID: "evt-1", Name: "booking.created", Payload: []byte(`not json`)})
	producer := &recordingProducer{}
	w := &infraoutbox.Worker{Store: store, Producer: producer}

	require.NoError(t, w.Flush(context.Background()))
	require.Empty(t, producer.sent)
	require.Equal(t, infraoutbox.StateFailed, store.OutboxStates()["evt-1"])
}

func TestWorkerRequiresDependencies(t *testing.T) {
	w := &infraoutbox.Worker{}
	require.ErrorIs(t, w.Flush(context.Background()), infraoutbox.ErrWorkerNotConfigured)
	require.ErrorIs(t, w.Run(context.Background()), infraoutbox.ErrWorkerNotConfigured)
}
