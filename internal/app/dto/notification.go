package dto

import (
	"time"

	domainnotification "carrental/internal/domain/notification"
)

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationCollection struct {
	Items  []Notification `json:"items"`
	Unread int            `json:"unread"`
}

func MapNotifications(items []domainnotification.Notification) NotificationCollection {
	out := NotificationCollection{Items: make([]Notification, 0, len(items))}
	for _, n := range items {
		if !n.Read {
			out.Unread++
		}
		out.Items = append(out.Items, Notification{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      string(n.Type),
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
