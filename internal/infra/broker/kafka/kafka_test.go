package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"carrental/internal/app/notify"
	"carrental/internal/app/uow"
	domainnotification "carrental/internal/domain/notification"
	"carrental/internal/infra/storage/memory"
)

func TestProducerPublishesPayload(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"ok":true}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	p := NewProducerWith(sp)
	require.NoError(t, p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{"ok":true}`), map[string]string{"b": "2", "a": "1"}))
	require.NoError(t, p.Close())
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p := NewProducerWith(sp)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
	require.NoError(t, p.Close())

	var closed *Producer
	require.ErrorIs(t, closed.Publish(context.Background(), "t", "k", nil, nil), ErrProducerClosed)
}

type capturePublisher struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

func (c *capturePublisher) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	c.topic, c.key, c.payload, c.headers = topic, key, payload, headers
	return nil
}

type failingSink struct{ err error }

func (f failingSink) Notify(context.Context, domainnotification.Notification) error { return f.err }

func sampleNotification() domainnotification.Notification {
	return domainnotification.Notification{
		ID:        "n-1",
		UserID:    "user-1",
		Title:     "Payment Confirmed",
		Message:   "paid",
		Type:      domainnotification.TypePayment,
		CreatedAt: time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func consumed(pub *capturePublisher) *sarama.ConsumerMessage {
	msg := &sarama.ConsumerMessage{Topic: pub.topic, Value: pub.payload}
	for k, v := range pub.headers {
		msg.Headers = append(msg.Headers, &sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return msg
}

func TestNotificationRoundTripDedupes(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	require.NoError(t, NotificationSink{Publisher: pub}.Notify(ctx, sampleNotification()))
	require.Equal(t, NotificationsTopic, pub.topic)
	require.Equal(t, "user-1", pub.key)

	var body map[string]any
	require.NoError(t, json.Unmarshal(pub.payload, &body))
	require.Equal(t, "payment", body["type"])

	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	h := NotificationHandler{
		Inbox: memory.Inbox{Store: store, Consumer: "notifications"},
		Store: notify.StoreSink{Factory: factory},
	}
	require.NoError(t, h.Handle(ctx, consumed(pub)))
	require.NoError(t, h.Handle(ctx, consumed(pub)))

	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	items, err := unit.Notifications().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Payment Confirmed", items[0].Title)
}

func TestNotificationHandlerReleasesOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	require.NoError(t, NotificationSink{Publisher: pub}.Notify(ctx, sampleNotification()))

	store := memory.NewStore()
	box := memory.Inbox{Store: store, Consumer: "notifications"}
	h := NotificationHandler{Inbox: box, Store: failingSink{err: errors.New("db down")}}
	require.Error(t, h.Handle(ctx, consumed(pub)))

	seen, err := box.Seen(ctx, "n-1")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestNotificationHandlerDropsMalformed(t *testing.T) {
	h := NotificationHandler{Store: failingSink{err: errors.New("must not be called")}}
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}))
}
