package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"kanbanlive/internal/auth"
)

const testSecret = "test-secret-key"

func TestGenerateAndParseToken(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(testSecret, userID, 24*time.Hour)

	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedUserID, err := auth.ParseToken(testSecret, token)

	assert.NoError(t, err)
	assert.Equal(t, userID.String(), parsedUserID)
}

func TestParseToken_InvalidToken(t *testing.T) {
	_, err := auth.ParseToken(testSecret, "invalid-token")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("another-secret", uuid.New(), time.Hour)
	assert.NoError(t, err)

	_, err = auth.ParseToken(testSecret, token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_ExpiredToken(t *testing.T) {
	// Токен истек 1 час назад
	token, err := auth.GenerateToken(testSecret, uuid.New(), -time.Hour)
	assert.NoError(t, err)

	_, err = auth.ParseToken(testSecret, token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_MissingClaims(t *testing.T) {
	claims := jwt.MapClaims{
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenWithoutUserID, _ := token.SignedString([]byte(testSecret))

	_, err := auth.ParseToken(testSecret, tokenWithoutUserID)

	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}
