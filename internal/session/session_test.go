package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

func TestOpen(t *testing.T) {
	t.Run("jwt claims", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"sub":         "42",
			"name":        "Marta Reis",
			"permissions": []string{"payroll.approve"},
			"exp":         now.Add(time.Hour).Unix(),
		})

		s, err := Open("Bearer "+token, now)
		require.NoError(t, err)

		assert.Equal(t, token, s.Token)
		assert.Equal(t, "Marta Reis", s.Operator)
		assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
		assert.True(t, s.Can("PAYROLL.APPROVE"))
		assert.False(t, s.Can("payroll.pay"))
		assert.NotEqual(t, uuid.Nil, s.ID)
	})

	t.Run("operator falls back to email then subject", func(t *testing.T) {
		s, err := Open(signToken(t, jwt.MapClaims{"sub": "7", "email": "ops@haul.example"}), now)
		require.NoError(t, err)
		assert.Equal(t, "ops@haul.example", s.Operator)

		s, err = Open(signToken(t, jwt.MapClaims{"sub": "7"}), now)
		require.NoError(t, err)
		assert.Equal(t, "7", s.Operator)
	})

	t.Run("opaque token", func(t *testing.T) {
		s, err := Open("abc123", now)
		require.NoError(t, err)

		assert.Equal(t, "abc123", s.Token)
		assert.Empty(t, s.Operator)
		assert.True(t, s.ExpiresAt.IsZero())
		assert.False(t, s.Can("payroll.approve"))
	})

	t.Run("expired", func(t *testing.T) {
		_, err := Open(signToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), now)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("empty", func(t *testing.T) {
		for _, token := range []string{"", "   ", "  Bearer  ", "Bearer", "Bearer ", "bearer\t", "BEARER"} {
			_, err := Open(token, now)
			assert.ErrorIs(t, err, ErrEmptyToken, "token %q", token)
		}
	})

	t.Run("scheme is stripped case-insensitively", func(t *testing.T) {
		s, err := Open("  bearer   abc123 ", now)
		require.NoError(t, err)
		assert.Equal(t, "abc123", s.Token)
	})

	t.Run("token starting with the scheme letters is kept", func(t *testing.T) {
		s, err := Open("BearerXYZ", now)
		require.NoError(t, err)
		assert.Equal(t, "BearerXYZ", s.Token)
	})
}

func TestSession_Bearer(t *testing.T) {
	var missing *Session

	_, err := missing.Bearer()
	assert.ErrorIs(t, err, ErrNoSession)

	expired := &Session{Token: "t", ExpiresAt: time.Now().Add(-time.Second)}
	_, err = expired.Bearer()
	assert.ErrorIs(t, err, ErrExpired)

	live := &Session{Token: "t"}
	token, err := live.Bearer()
	require.NoError(t, err)
	assert.Equal(t, "t", token)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	m := NewManager(store)
	m.now = func() time.Time { return now }

	s, err := m.Login(ctx, signToken(t, jwt.MapClaims{"name": "Marta", "exp": now.Add(time.Hour).Unix()}))
	require.NoError(t, err)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marta", got.Operator)

	t.Run("unknown id", func(t *testing.T) {
		_, err := m.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("expired session is removed", func(t *testing.T) {
		m.now = func() time.Time { return now.Add(2 * time.Hour) }
		defer func() { m.now = func() time.Time { return now } }()

		_, err := m.Get(ctx, s.ID)
		assert.ErrorIs(t, err, ErrExpired)

		_, err = store.Get(ctx, s.ID)
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	s, err := m.Login(ctx, "opaque")
	require.NoError(t, err)

	m.Invalidate(ctx, s)
	m.Invalidate(ctx, nil)

	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, m.Logout(ctx, s.ID))
}

func TestContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	s := &Session{ID: uuid.New(), Token: "t"}

	got, err := FromContext(WithContext(context.Background(), s))
	require.NoError(t, err)
	assert.Same(t, s, got)
}
