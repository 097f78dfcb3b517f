package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainnotification "carrental/internal/domain/notification"
)

type NotificationRepository struct {
	col      *mongo.Collection
	readOnly bool
}

type notificationDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Title     string    `bson:"title"`
	Message   string    `bson:"message"`
	Type      string    `bson:"type"`
	Read      bool      `bson:"is_read"`
	CreatedAt time.Time `bson:"created_at"`
}

// Add upserts with $setOnInsert so a redelivered notification keeps its read flag.
func (r *NotificationRepository) Add(ctx context.Context, n domainnotification.Notification) error {
	if r.readOnly {
		return ErrReadOnlyUnit
	}
	doc := notificationDocument{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC(),
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	return translate(err)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]domainnotification.Notification, error) {
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate(err)
	}
	var docs []notificationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]domainnotification.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainnotification.Notification{
			ID:        d.ID,
			UserID:    d.UserID,
			Title:     d.Title,
			Message:   d.Message,
			Type:      domainnotification.Type(d.Type),
			Read:      d.Read,
			CreatedAt: d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	if r.readOnly {
		return ErrReadOnlyUnit
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return domainnotification.ErrNotFound
	}
	return nil
}
