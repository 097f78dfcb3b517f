package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carrental/internal/domain/shared/money"
)

func TestNewDefaultsMethodAndValidates(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))
	tx, err := New(NewParams{ID: "tx-1", BookingID: "bk-1", Amount: money.Must(420, "INR"), Status: StatusPaid, At: at})
	require.NoError(t, err)
	require.Equal(t, MethodRazorpay, tx.PaymentMethod)
	require.Equal(t, time.UTC, tx.TransactionDate.Location())

	_, err = New(NewParams{Amount: money.Must(1, "INR"), Status: StatusPaid})
	require.ErrorIs(t, err, ErrBookingRequired)
	_, err = New(NewParams{BookingID: "bk-1", Amount: money.Must(-1, "INR"), Status: StatusPaid})
	require.ErrorIs(t, err, ErrNegativeAmount)
	_, err = New(NewParams{BookingID: "bk-1", Status: "pending"})
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestCapturedNetsRefundsAndIgnoresFailures(t *testing.T) {
	row := func(status Status, amount int64) *Transaction {
		return &Transaction{BookingID: "bk-1", Status: status, Amount: money.Must(amount, "INR")}
	}
	held, err := Captured([]*Transaction{row(StatusFailed, 420), row(StatusPaid, 420)}, "INR")
	require.NoError(t, err)
	require.Equal(t, int64(420), held.Amount)

	held, err = Captured([]*Transaction{row(StatusPaid, 420), row(StatusRefunded, 420)}, "INR")
	require.NoError(t, err)
	require.True(t, held.IsZero())

	held, err = Captured(nil, "INR")
	require.NoError(t, err)
	require.Equal(t, "INR", held.Currency)

	_, err = Captured([]*Transaction{{Status: StatusPaid, Amount: money.Must(1, "USD")}}, "INR")
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
}
