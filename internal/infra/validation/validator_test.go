package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carrental/internal/app/apperr"
)

type sample struct {
	CarID    string    `validate:"required"`
	PickupAt time.Time `validate:"required"`
	ReturnAt time.Time `validate:"required,gtfield=PickupAt"`
	Discount int64     `validate:"gte=0"`
}

func TestValidateReportsSnakeCaseField(t *testing.T) {
	v := New()
	now := time.Now()

	err := v.Validate(context.Background(), sample{PickupAt: now, ReturnAt: now.Add(time.Hour)})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	require.Equal(t, "car_id", apperr.FieldOf(err))

	err = v.Validate(context.Background(), &sample{CarID: "c", PickupAt: now, ReturnAt: now})
	require.Equal(t, "return_at", apperr.FieldOf(err))
	require.Contains(t, err.Error(), "after pickup_at")

	err = v.Validate(context.Background(), sample{CarID: "c", PickupAt: now, ReturnAt: now.Add(time.Hour), Discount: -1})
	require.Equal(t, "discount", apperr.FieldOf(err))

	require.NoError(t, v.Validate(context.Background(), sample{CarID: "c", PickupAt: now, ReturnAt: now.Add(time.Hour)}))
}

func TestValidateIgnoresNonStructs(t *testing.T) {
	v := New()
	require.NoError(t, v.Validate(context.Background(), nil))
	require.NoError(t, v.Validate(context.Background(), "string"))
	var nilPtr *sample
	require.NoError(t, v.Validate(context.Background(), nilPtr))
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"PickupAt":       "pickup_at",
		"CarID":          "car_id",
		"BookingID":      "booking_id",
		"NotificationID": "notification_id",
		"ID":             "id",
		"HTTPStatus":     "http_status",
	}
	for in, want := range cases {
		require.Equal(t, want, snakeCase(in), in)
	}
}
