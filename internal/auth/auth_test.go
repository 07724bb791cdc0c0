package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botToken = "123456:ABC-DEF"

func loginPayload(authDate time.Time) map[string]string {
	data := map[string]string{
		"id":         "42",
		"first_name": "Ada",
		"username":   "ada",
		"auth_date":  strconv.FormatInt(authDate.Unix(), 10),
	}
	data["hash"] = SignLogin(data, botToken)
	return data
}

func TestDataCheckString(t *testing.T) {
	got := dataCheckString(map[string]string{"b": "2", "a": "1", "hash": "x"})
	assert.Equal(t, "a=1\nb=2", got)
}

func TestCheckTelegramAuth(t *testing.T) {
	data := loginPayload(time.Now())
	assert.True(t, CheckTelegramAuth(data, botToken))
	assert.False(t, CheckTelegramAuth(data, "other:token"))

	tampered := loginPayload(time.Now())
	tampered["id"] = "43"
	assert.False(t, CheckTelegramAuth(tampered, botToken))

	delete(data, "hash")
	assert.False(t, CheckTelegramAuth(data, botToken))
}

func TestVerifyLogin(t *testing.T) {
	now := time.Now()

	assert.NoError(t, VerifyLogin(loginPayload(now.Add(-time.Hour)), botToken, 24*time.Hour, now))
	assert.ErrorIs(t, VerifyLogin(loginPayload(now.Add(-48*time.Hour)), botToken, 24*time.Hour, now), ErrExpired)
	assert.ErrorIs(t, VerifyLogin(map[string]string{"id": "1"}, botToken, 0, now), ErrMissingHash)
	assert.ErrorIs(t, VerifyLogin(map[string]string{"id": "1", "hash": "00"}, botToken, 0, now), ErrBadHash)
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")

	tok, err := GenerateToken("42", secret, time.Hour)
	require.NoError(t, err)

	id, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	_, err = ParseToken(tok, []byte("other"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = GenerateToken("42", nil, time.Hour)
	assert.ErrorIs(t, err, ErrSecretMissing)
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := GenerateToken("42", secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{TelegramID: "42"}).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireJWT(t *testing.T) {
	secret := []byte("s3cret")
	app := fiber.New()
	app.Get("/me", RequireJWT(secret), func(c *fiber.Ctx) error {
		return c.SendString(TelegramID(c))
	})

	tok, err := GenerateToken("42", secret, time.Hour)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
