package payments_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carrental/internal/app/apperr"
	"carrental/internal/app/ledger"
	"carrental/internal/app/notify"
	"carrental/internal/app/outbox"
	"carrental/internal/app/payments"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainnotification "carrental/internal/domain/notification"
	domainpricing "carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/interval"
	"carrental/internal/domain/shared/money"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
	"carrental/internal/infra/storage/memory"
)

var renter = domainuser.Principal{ID: "user-1", Role: domainuser.RoleUser}

// countingFactory records how many units were begun.
type countingFactory struct {
	inner  uow.UoWFactory
	begins atomic.Int32
}

func (f *countingFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	f.begins.Add(1)
	return f.inner.Begin(ctx, opts)
}

type failingSink struct{}

func (failingSink) Notify(context.Context, domainnotification.Notification) error {
	return errors.New("smtp down")
}

type fixture struct {
	store      *memory.Store
	factory    *countingFactory
	signer     payments.Signer
	reconciler *payments.Reconciler
	now        time.Time
}

func newFixture(t *testing.T, sink domainnotification.Sink) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutCar(&domaincars.Car{ID: "car-1", OwnerID: "admin-1", Make: "Tata", Model: "Nexon", HourlyRate: money.Must(100, "INR")})
	factory := &countingFactory{inner: memory.Factory{Store: store}}
	if sink == nil {
		sink = notify.StoreSink{Factory: factory}
	}
	signer, err := payments.NewSigner("rzp_secret")
	require.NoError(t, err)

	f := &fixture{store: store, factory: factory, signer: signer, now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	notifier := &notify.Notifier{Sink: sink, Now: clock}
	l := &ledger.Ledger{
		Factory:  factory,
		Quoter:   domainpricing.Quoter{Policy: domainpricing.DefaultPolicy()},
		Encoder:  outbox.JSONEventEncoder{},
		Notifier: notifier,
		Now:      clock,
	}
	f.reconciler = &payments.Reconciler{Signer: signer, Factory: factory, Ledger: l, Encoder: outbox.JSONEventEncoder{}, Notifier: notifier, Now: clock}
	return f
}

func (f *fixture) draft(t *testing.T) payments.Draft {
	t.Helper()
	ri, err := interval.New(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 13, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	return payments.Draft{CarID: "car-1", Interval: ri}
}

func (f *fixture) confirmInput(t *testing.T, orderID, paymentID string) payments.ConfirmInput {
	return payments.ConfirmInput{
		Actor:     renter,
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: f.signer.Sign(orderID, paymentID),
		Draft:     f.draft(t),
	}
}

func (f *fixture) notifications(t *testing.T) []domainnotification.Notification {
	t.Helper()
	unit, err := memory.Factory{Store: f.store}.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	items, err := unit.Notifications().ListByUser(context.Background(), renter.ID)
	require.NoError(t, err)
	return items
}

func TestSignerRoundTrip(t *testing.T) {
	signer, err := payments.NewSigner("secret")
	require.NoError(t, err)
	sig := signer.Sign("order_1", "pay_1")
	require.NoError(t, signer.Verify("order_1", "pay_1", sig))
	require.ErrorIs(t, signer.Verify("order_1", "pay_2", sig), payments.ErrSignatureMismatch)
	require.ErrorIs(t, signer.Verify("order_1", "pay_1", "zz"), payments.ErrSignatureMismatch)
	require.ErrorIs(t, signer.Verify("", "pay_1", sig), payments.ErrSignatureMismatch)

	_, err = payments.NewSigner("")
	require.ErrorIs(t, err, payments.ErrSecretMissing)
}

func TestTamperedSignatureNeverTouchesStore(t *testing.T) {
	f := newFixture(t, nil)
	in := f.confirmInput(t, "order_1", "pay_1")
	in.Signature = f.signer.Sign("order_1", "pay_other")

	_, err := f.reconciler.VerifyAndConfirm(context.Background(), in)
	require.ErrorIs(t, err, payments.ErrSignatureMismatch)
	require.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	require.Zero(t, f.factory.begins.Load())
	require.Zero(t, f.store.BookingCount())
	require.Empty(t, f.store.Transactions())
}

func TestSignatureGateIgnoresUnsignedMessages(t *testing.T) {
	f := newFixture(t, nil)
	gate := payments.SignatureGate{Signer: f.signer}
	require.NoError(t, gate.Authorize(context.Background(), struct{}{}))
}

func TestVerifyAndConfirmCreatesPaidBooking(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.reconciler.VerifyAndConfirm(context.Background(), f.confirmInput(t, "order_1", "pay_1"))
	require.NoError(t, err)

	require.Equal(t, domainbooking.StateConfirmed, res.Booking.State)
	require.Equal(t, domainbooking.PaymentPaid, res.Booking.PaymentStatus)
	require.Equal(t, "order_1", res.Booking.PaymentOrderID)
	require.Equal(t, int64(420), res.Transaction.Amount.Amount)
	require.Equal(t, domaintransaction.StatusPaid, res.Transaction.Status)
	require.Equal(t, "pay_1", res.Transaction.PaymentRef)

	require.Equal(t, 1, f.store.BookingCount())
	require.Len(t, f.store.Transactions(), 1)

	notes := f.notifications(t)
	require.Len(t, notes, 1)
	require.Equal(t, "Payment Confirmed", notes[0].Title)
	require.Equal(t, domainnotification.TypePayment, notes[0].Type)
}

func TestDuplicatePaymentIsConflict(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.reconciler.VerifyAndConfirm(context.Background(), f.confirmInput(t, "order_1", "pay_1"))
	require.NoError(t, err)

	_, err = f.reconciler.VerifyAndConfirm(context.Background(), f.confirmInput(t, "order_1", "pay_1"))
	require.ErrorIs(t, err, domaintransaction.ErrDuplicatePayment)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.Equal(t, 1, f.store.BookingCount())
	require.Len(t, f.store.Transactions(), 1)
}

func TestBookingFailureAfterVerificationIsIntegrityError(t *testing.T) {
	f := newFixture(t, nil)
	in := f.confirmInput(t, "order_1", "pay_1")
	in.Draft.CarID = "car-gone"

	_, err := f.reconciler.VerifyAndConfirm(context.Background(), in)
	var integrity *apperr.IntegrityError
	require.ErrorAs(t, err, &integrity)
	require.Equal(t, "pay_1", integrity.PaymentID)
	require.ErrorIs(t, err, domaincars.ErrCarNotFound)
	require.Equal(t, apperr.KindIntegrity, apperr.KindOf(err))
	require.Zero(t, f.store.BookingCount())
	require.Empty(t, f.store.Transactions())
}

func TestNotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, failingSink{})
	res, err := f.reconciler.VerifyAndConfirm(context.Background(), f.confirmInput(t, "order_1", "pay_1"))
	require.NoError(t, err)
	require.Equal(t, domainbooking.StateConfirmed, res.Booking.State)
	require.Empty(t, f.notifications(t))
}

func TestReportFailureThenRetryExistingBooking(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b, err := f.reconciler.Ledger.Create(ctx, ledger.CreateInput{Actor: renter, CarID: "car-1", Interval: f.draft(t).Interval})
	require.NoError(t, err)

	failed, err := f.reconciler.ReportFailure(ctx, payments.FailureInput{
		Actor:     renter,
		BookingID: string(b.ID),
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: f.signer.Sign("order_1", "pay_1"),
		Reason:    "card declined",
	})
	require.NoError(t, err)
	require.Equal(t, domainbooking.StatePaymentFailed, failed.Booking.State)
	require.Equal(t, domaintransaction.StatusFailed, failed.Transaction.Status)

	_, err = f.reconciler.ReportFailure(ctx, payments.FailureInput{
		Actor:     domainuser.Principal{ID: "user-2"},
		BookingID: string(b.ID),
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: f.signer.Sign("order_1", "pay_1"),
	})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	in := f.confirmInput(t, "order_2", "pay_2")
	in.Draft = payments.Draft{BookingID: string(b.ID)}
	res, err := f.reconciler.VerifyAndConfirm(ctx, in)
	require.NoError(t, err)
	require.Equal(t, b.ID, res.Booking.ID)
	require.Equal(t, domainbooking.StateConfirmed, res.Booking.State)
	require.Equal(t, 1, f.store.BookingCount())
	require.Len(t, f.store.Transactions(), 2)
}
