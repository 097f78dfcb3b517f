package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"carrental/internal/app/apperr"
)

var ErrReadOnlyUnit = errors.New("mongo: write in read-only unit")

// translate turns driver timeouts and network failures into store unavailability.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return apperr.Unavailable(err)
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return apperr.Unavailable(err)
	}
	return err
}
