package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domaintransaction "carrental/internal/domain/transaction"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{Validation("return_at", "must be after pickup_at"), http.StatusBadRequest, "invalid_return_at"},
		{fmt.Errorf("load: %w", domaincars.ErrCarNotFound), http.StatusNotFound, "car_not_found"},
		{ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{domainbooking.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
		{domaintransaction.ErrDuplicatePayment, http.StatusConflict, "duplicate_payment"},
		{&IntegrityError{OrderID: "o", PaymentID: "p", Err: domaincars.ErrCarNotFound}, http.StatusInternalServerError, "booking_creation_failed"},
		{Unavailable(errors.New("dial tcp")), http.StatusServiceUnavailable, "store_unavailable"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		_, code := Classify(tc.err)
		require.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
		require.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestIntegrityWinsOverWrappedKind(t *testing.T) {
	err := &IntegrityError{Err: domaincars.ErrCarNotFound}
	require.Equal(t, KindIntegrity, KindOf(err))
	require.ErrorIs(t, err, domaincars.ErrCarNotFound)
	require.False(t, Retryable(err))
}

func TestFieldAndRetryable(t *testing.T) {
	require.Equal(t, "car_id", FieldOf(fmt.Errorf("wrap: %w", Validation("car_id", "required"))))
	require.Empty(t, FieldOf(errors.New("plain")))
	require.True(t, Retryable(Unavailable(errors.New("reset"))))
	require.Nil(t, Unavailable(nil))
	require.Empty(t, KindOf(nil))
}
