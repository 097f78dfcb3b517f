package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainnotification "carrental/internal/domain/notification"
	domainpricing "carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/interval"
	"carrental/internal/domain/shared/money"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindIntegrity     Kind = "integrity"
	KindUnavailable   Kind = "unavailable"
	KindInternal      Kind = "internal"
)

// Error is a classified application error. Sentinels built with Define compare by identity.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Define creates a sentinel application error.
func Define(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrForbidden        = Define(KindAuthorization, "forbidden", "app: forbidden")
	ErrUnauthenticated  = Define(KindAuthorization, "unauthenticated", "app: authentication required")
	ErrStoreUnavailable = Define(KindUnavailable, "store_unavailable", "app: store unavailable")
)

// Validation reports a bad input field.
func Validation(field, message string) error {
	return &Error{Kind: KindValidation, Code: "invalid_" + field, Field: field, Message: message}
}

// Unavailable wraps a store failure so callers can classify and retry it.
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)
}

// IntegrityError signals money captured without a matching booking. It needs an operator.
type IntegrityError struct {
	OrderID   string
	PaymentID string
	Err       error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity: payment %s (order %s) verified but booking not created: %v", e.PaymentID, e.OrderID, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

type classification struct {
	kind Kind
	code string
}

var domainErrors = map[error]classification{
	domainpricing.ErrInvalidInterval:          {KindValidation, "invalid_interval"},
	domainpricing.ErrInvalidRate:              {KindValidation, "invalid_rate"},
	domainpricing.ErrNegativeDiscount:         {KindValidation, "invalid_discount"},
	domainpricing.ErrNegativeDriverFee:        {KindValidation, "invalid_driver_fee"},
	domainpricing.ErrCurrencyMismatch:         {KindValidation, "currency_mismatch"},
	interval.ErrInvalidInterval:               {KindValidation, "invalid_interval"},
	money.ErrInvalidCurrency:                  {KindValidation, "invalid_currency"},
	money.ErrCurrencyMismatch:                 {KindValidation, "currency_mismatch"},
	domainbooking.ErrUserRequired:             {KindValidation, "user_required"},
	domainbooking.ErrCarRequired:              {KindValidation, "car_required"},
	domainbooking.ErrPickupInPast:             {KindValidation, "pickup_in_past"},
	domainbooking.ErrNegativeTotal:            {KindValidation, "negative_total"},
	domainbooking.ErrPaymentRefMissing:        {KindValidation, "payment_reference_required"},
	domaintransaction.ErrBookingRequired:      {KindValidation, "booking_required"},
	domaintransaction.ErrNegativeAmount:       {KindValidation, "negative_amount"},
	domaintransaction.ErrUnknownStatus:        {KindValidation, "unknown_status"},
	domainuser.ErrInvalidRole:                 {KindValidation, "invalid_role"},
	domainbooking.ErrBookingNotFound:          {KindNotFound, "booking_not_found"},
	domaincars.ErrCarNotFound:                 {KindNotFound, "car_not_found"},
	domaincars.ErrPricingNotConfigured:        {KindNotFound, "pricing_not_configured"},
	domainnotification.ErrNotFound:            {KindNotFound, "notification_not_found"},
	domainuser.ErrNotFound:                    {KindNotFound, "user_not_found"},
	domainbooking.ErrAlreadyCancelled:         {KindConflict, "already_cancelled"},
	domainbooking.ErrInvalidState:             {KindConflict, "invalid_state"},
	domainbooking.ErrConcurrentUpdate:         {KindConflict, "concurrent_update"},
	domainbooking.ErrCancellationWindowClosed: {KindConflict, "cancellation_window_closed"},
	domaintransaction.ErrDuplicatePayment:     {KindConflict, "duplicate_payment"},
}

// KindOf classifies any error returned by the application layer.
func KindOf(err error) Kind {
	kind, _ := Classify(err)
	return kind
}

// Classify returns the kind and a stable machine-readable code.
func Classify(err error) (Kind, string) {
	if err == nil {
		return "", ""
	}
	var integrity *IntegrityError
	if errors.As(err, &integrity) {
		return KindIntegrity, "booking_creation_failed"
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, appErr.Code
	}
	for sentinel, c := range domainErrors {
		if errors.Is(err, sentinel) {
			return c.kind, c.code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable, "timeout"
	}
	return KindInternal, "internal"
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// HTTPStatus maps a classified error onto the transport status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		if errors.Is(err, ErrUnauthenticated) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether an idempotent caller may retry after backoff.
func Retryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
