package serverutils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestParseUserID(t *testing.T) {
	userID := uuid.New()
	valid := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(time.Minute).Unix()})

	got, err := ParseUserID(valid, "secret")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = ParseUserID(valid, "other")
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(-time.Minute).Unix()})
	_, err = ParseUserID(expired, "secret")
	assert.ErrorIs(t, err, ErrUnauthorized)

	noUser := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"user_id": "root"})
	_, err = ParseUserID(noUser, "secret")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, StatusOf(NotFound("post")))
	assert.Equal(t, fiber.StatusBadRequest, StatusOf(fmt.Errorf("%w: bad", ErrValidation)))
	assert.Equal(t, fiber.StatusConflict, StatusOf(fmt.Errorf("save: %w", ErrConflict)))
	assert.Equal(t, fiber.StatusForbidden, StatusOf(ErrForbidden))
	assert.Equal(t, fiber.StatusTeapot, StatusOf(fiber.NewError(fiber.StatusTeapot, "tea")))
	assert.Equal(t, fiber.StatusInternalServerError, StatusOf(errors.New("boom")))
}

type sampleRequest struct {
	Name string `json:"name" validate:"required,max=3"`
	Kind string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Name: "abc"}))

	err := ValidateRequest(sampleRequest{Name: "abcd", Kind: "c"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Name must satisfy max=3")
	assert.Contains(t, err.Error(), "Kind must satisfy oneof=a b")
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(ctx *fiber.Ctx) error { return NotFound("post") })
	app.Get("/boom", func(ctx *fiber.Ctx) error { return errors.New("db password leaked") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "password")
}

func TestJwtMiddlewareSetsUser(t *testing.T) {
	userID := uuid.New()
	app := fiber.New()
	app.Use(JwtMiddleware("secret"))
	app.Get("/me", func(ctx *fiber.Ctx) error { return ctx.SendString(UserID(ctx).String()) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"user_id": userID.String()}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, userID.String(), string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
