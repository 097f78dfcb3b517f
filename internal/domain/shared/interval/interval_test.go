package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestHoursCeil(t *testing.T) {
	cases := []struct {
		pickup, ret string
		want        int64
	}{
		{"2024-01-01T10:00:00Z", "2024-01-01T13:30:00Z", 4},
		{"2024-01-01T10:00:00Z", "2024-01-01T13:00:00Z", 3},
		{"2024-01-01T10:00:00Z", "2024-01-01T10:00:01Z", 1},
		{"2024-01-01T10:00:00Z", "2024-01-02T10:00:00Z", 24},
	}
	for _, tc := range cases {
		ri, err := New(at(tc.pickup), at(tc.ret))
		require.NoError(t, err)
		require.Equal(t, tc.want, ri.Hours(), "%s -> %s", tc.pickup, tc.ret)
	}
}

func TestNewRejectsNonPositiveSpan(t *testing.T) {
	_, err := New(at("2024-01-01T10:00:00Z"), at("2024-01-01T10:00:00Z"))
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = New(at("2024-01-01T10:00:00Z"), at("2024-01-01T09:00:00Z"))
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = New(time.Time{}, at("2024-01-01T09:00:00Z"))
	require.ErrorIs(t, err, ErrInvalidInterval)
}

func TestElapsedAndStarted(t *testing.T) {
	ri, err := New(at("2024-01-01T10:00:00Z"), at("2024-01-01T12:00:00Z"))
	require.NoError(t, err)

	require.False(t, ri.Started(at("2024-01-01T09:59:59Z")))
	require.True(t, ri.Started(at("2024-01-01T10:00:00Z")))
	require.False(t, ri.Elapsed(at("2024-01-01T11:59:59Z")))
	require.True(t, ri.Elapsed(at("2024-01-01T12:00:00Z")))
}
