package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"carrental/internal/app/apperr"
	domainuser "carrental/internal/domain/user"
)

func TestVerifyRoundTrip(t *testing.T) {
	v, err := NewTokenVerifier("top-secret")
	require.NoError(t, err)
	token, err := v.Issue(domainuser.Principal{ID: "admin-1", Role: domainuser.RoleAdmin}, time.Minute)
	require.NoError(t, err)

	p, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "admin-1", p.ID)
	require.True(t, p.IsAdmin())
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v, err := NewTokenVerifier("top-secret")
	require.NoError(t, err)

	_, err = v.Verify("")
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	other, err := NewTokenVerifier("other-secret")
	require.NoError(t, err)
	forged, err := other.Issue(domainuser.Principal{ID: "user-1", Role: domainuser.RoleUser}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(forged)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	expired, err := v.Issue(domainuser.Principal{ID: "user-1"}, -time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(unsigned)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	badRole, err := v.Issue(domainuser.Principal{ID: "user-1", Role: "root"}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(badRole)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestSecretRequired(t *testing.T) {
	_, err := NewTokenVerifier(" ")
	require.ErrorIs(t, err, ErrSecretRequired)
}
