package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 24)
	token, err := svc.Generate(42, "olive@example.com", "organizer")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "olive@example.com", claims.Email)
	assert.Equal(t, "organizer", claims.Role)
	assert.NotEmpty(t, claims.ID)

	id, role, err := svc.ValidateSocket(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "organizer", role)
}

func TestJWTRejects(t *testing.T) {
	svc := NewJWTService("secret", 24)

	other, err := NewJWTService("other-secret", 24).Generate(1, "a@example.com", "attendee")
	require.NoError(t, err)
	_, err = svc.Validate(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTService("secret", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Generate(1, "a@example.com", "attendee")
	require.NoError(t, err)
	_, err = svc.Validate(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Validate(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = svc.ValidateSocket("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
