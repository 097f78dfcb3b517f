package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carrental/internal/domain/booking"
	"carrental/internal/domain/shared/events"
	"carrental/internal/domain/shared/money"
)

type captureOutbox struct {
	records []EventRecord
	err     error
}

func (c *captureOutbox) Add(_ context.Context, rec EventRecord) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, rec)
	return nil
}

func TestEncodeUsesSnakeCasePayloadAndUserHeader(t *testing.T) {
	at := time.Date(2030, 1, 1, 9, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	rec, err := JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}.Encode(booking.BookingCancelled{
		BookingID: "bk-1",
		UserID:    "user-1",
		ActorID:   "admin-1",
		Refunded:  true,
		At:        at,
	})
	require.NoError(t, err)
	require.Equal(t, "evt-1", rec.ID)
	require.Equal(t, "booking.cancelled", rec.Name)
	require.Equal(t, "bk-1", rec.Aggregate)
	require.Equal(t, time.UTC, rec.OccurredAt.Location())
	require.Equal(t, "user-1", rec.Headers["user-id"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Payload, &body))
	require.Equal(t, "bk-1", body["booking_id"])
	require.Equal(t, "admin-1", body["actor_id"])
	require.Equal(t, true, body["refunded"])
}

func TestEncodeRejectsEventWithoutAggregate(t *testing.T) {
	_, err := JSONEventEncoder{}.Encode(booking.BookingModified{Total: money.Zero("INR")})
	require.Error(t, err)
}

func TestRecordDomainEventsAddsCorrelation(t *testing.T) {
	box := &captureOutbox{}
	ctx := WithCorrelation(context.Background(), "req-42")
	evs := []events.DomainEvent{
		booking.BookingCreated{BookingID: "bk-1", UserID: "user-1"},
		booking.PaymentFailedRecorded{BookingID: "bk-1", Reason: "declined"},
	}
	require.NoError(t, RecordDomainEvents(ctx, box, nil, evs))
	require.Len(t, box.records, 2)
	for _, rec := range box.records {
		require.Equal(t, "req-42", rec.Headers["correlation-id"])
	}
	_, scoped := box.records[1].Headers["user-id"]
	require.False(t, scoped)
}

func TestRecordDomainEventsStopsOnAddError(t *testing.T) {
	box := &captureOutbox{err: errors.New("full")}
	err := RecordDomainEvents(context.Background(), box, nil, []events.DomainEvent{booking.BookingCreated{BookingID: "bk-1"}})
	require.EqualError(t, err, "full")
	require.NoError(t, RecordDomainEvents(context.Background(), nil, nil, nil))
	require.Empty(t, CorrelationFrom(context.Background()))
}
