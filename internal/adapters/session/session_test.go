package session_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_backoffice/internal/adapters/session"
	"hotel_backoffice/internal/domain"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestNewManager_RejectsShortSecret(t *testing.T) {
	_, err := session.NewManager([]byte("short"), time.Hour)
	assert.Error(t, err)

	s, err := session.RandomSecret()
	require.NoError(t, err)
	_, err = session.NewManager(s, time.Hour)
	assert.NoError(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	m, err := session.NewManager(secret, 0)
	require.NoError(t, err)
	m.WithClock(func() time.Time { return now })
	assert.Equal(t, session.DefaultTTL, m.TTL())

	tok, issued, err := m.Issue(domain.Identity{UserID: 7, Email: "ops@hotel.test", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, now.Add(24*time.Hour).Equal(issued.ExpiresAt))

	got, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "ops@hotel.test", got.Email)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.True(t, issued.ExpiresAt.Equal(got.ExpiresAt))
}

func TestVerify_Expired(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	m, err := session.NewManager(secret, time.Hour)
	require.NoError(t, err)
	m.WithClock(func() time.Time { return now })

	tok, _, err := m.Issue(domain.Identity{UserID: 1, Email: "a@hotel.test", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)

	now = now.Add(61 * time.Minute)
	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "session expired", domain.Message(err))
}

func TestVerify_RejectsForgedTokens(t *testing.T) {
	m, err := session.NewManager(secret, time.Hour)
	require.NoError(t, err)
	tok, _, err := m.Issue(domain.Identity{UserID: 1, Email: "a@hotel.test", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)

	other, err := session.NewManager([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue(domain.Identity{UserID: 1, Email: "a@hotel.test", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "role": "super_admin", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, bad := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"other secret": foreign,
		"tampered":     tampered,
		"alg none":     none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(bad)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}
