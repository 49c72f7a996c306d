// Package session issues and verifies the signed tokens carried in the admin
// session cookie. Sessions are stateless: there is no server-side revocation.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hotel_backoffice/internal/domain"
)

const (
	CookieName = "hotel_session"
	DefaultTTL = 24 * time.Hour
)

type claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

type Manager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewManager(secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{key: secret, ttl: ttl, now: time.Now}, nil
}

// RandomSecret returns a fresh 32-byte key for processes started without one.
// Sessions signed with it do not survive a restart.
func RandomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return b, nil
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for id. The returned identity carries the expiry.
func (m *Manager) Issue(id domain.Identity) (string, domain.Identity, error) {
	now := m.now().UTC().Truncate(time.Second)
	exp := now.Add(m.ttl)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: id.Email,
		Role:  id.Role,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.key)
	if err != nil {
		return "", domain.Identity{}, fmt.Errorf("sign session: %w", err)
	}
	id.ExpiresAt = exp
	return tok, id, nil
}

// Verify checks signature, algorithm and expiry and returns the embedded identity.
func (m *Manager) Verify(token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.Unauthorized("authentication required")
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, domain.Unauthorized("session expired")
		}
		return domain.Identity{}, domain.Unauthorized("invalid session")
	}
	uid, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || uid <= 0 || !c.Role.Valid() {
		return domain.Identity{}, domain.Unauthorized("invalid session")
	}
	return domain.Identity{
		UserID:    uid,
		Email:     c.Email,
		Role:      c.Role,
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}, nil
}
