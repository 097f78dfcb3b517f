package user

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Asha", Profile{ID: "1", Name: " Asha ", Email: "a@x.in"}.DisplayName())
	require.Equal(t, "ravi.k", Profile{ID: "2", Email: "ravi.k@example.com"}.DisplayName())
	require.Equal(t, "user 3", Profile{ID: "3"}.DisplayName())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("ADMIN")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, role)

	role, err = ParseRole("")
	require.NoError(t, err)
	require.Equal(t, RoleUser, role)

	_, err = ParseRole("root")
	require.ErrorIs(t, err, ErrInvalidRole)
}
