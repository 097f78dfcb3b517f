package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	domainnotification "carrental/internal/domain/notification"
	"carrental/internal/infra/inbox"
)

// NotificationsTopic carries user notifications between the booking core and the inbox writer.
const NotificationsTopic = "notifications.v1"

type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

type notificationMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationSink publishes notifications keyed by user so one user's messages stay ordered.
type NotificationSink struct {
	Publisher Publisher
	Topic     string
}

func (s NotificationSink) Notify(ctx context.Context, n domainnotification.Notification) error {
	payload, err := json.Marshal(notificationMessage{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		CreatedAt: n.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	headers := map[string]string{
		"content-type": "application/json",
		"ce-id":        n.ID,
	}
	return s.Publisher.Publish(ctx, s.topic(), n.UserID, payload, headers)
}

func (s NotificationSink) topic() string {
	if s.Topic != "" {
		return s.Topic
	}
	return NotificationsTopic
}

var ErrMalformedNotification = errors.New("kafka: malformed notification message")

// NotificationHandler stores consumed notifications once per event id.
type NotificationHandler struct {
	Inbox  inbox.Inbox
	Store  domainnotification.Sink
	Logger *slog.Logger
}

func (h NotificationHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var m notificationMessage
	if err := json.Unmarshal(msg.Value, &m); err != nil || m.ID == "" || m.UserID == "" {
		// a poison message is acknowledged so it does not block the partition
		h.logger().Error("notification message dropped", "topic", msg.Topic, "offset", msg.Offset, "error", ErrMalformedNotification)
		return nil
	}
	eventID := headerValue(msg, "ce-id")
	if eventID == "" {
		eventID = m.ID
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, eventID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	err := h.Store.Notify(ctx, domainnotification.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Message:   m.Message,
		Type:      domainnotification.Type(m.Type),
		CreatedAt: m.CreatedAt,
	})
	if err != nil && h.Inbox != nil {
		if relErr := h.Inbox.Release(context.WithoutCancel(ctx), eventID); relErr != nil {
			h.logger().Error("inbox release failed", "event_id", eventID, "error", relErr)
		}
	}
	return err
}

func (h NotificationHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func headerValue(msg *sarama.ConsumerMessage, key string) string {
	for _, hdr := range msg.Headers {
		if hdr != nil && string(hdr.Key) == key {
			return string(hdr.Value)
		}
	}
	return ""
}

var (
	_ domainnotification.Sink = NotificationSink{}
	_ MessageHandler          = NotificationHandler{}
	_ Publisher               = (*Producer)(nil)
)
