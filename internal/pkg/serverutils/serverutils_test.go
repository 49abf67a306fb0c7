package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, resp *http.Response) Response[any] {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out Response[any]
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(JwtMiddleware("secret"))
	app.Get("/me", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("ok", UserID(ctx)))
	})

	good, err := SignToken("secret", "user-1", time.Hour)
	require.NoError(t, err)
	forged, err := SignToken("other", "user-1", time.Hour)
	require.NoError(t, err)
	expired, err := SignToken("secret", "user-1", -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + good, want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + forged, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want == http.StatusOK {
				assert.Equal(t, "user-1", decode(t, resp).Data)
			}
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(nil))
	app.Get("/conflict", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "busy")
	})
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return errors.New("db exploded")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/conflict", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode(t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, "busy", body.Message)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", decode(t, resp).Message)
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Text string `validate:"required,max=5"`
	}
	assert.NoError(t, ValidateRequest(req{Text: "hi"}))

	err := ValidateRequest(req{})
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.Contains(t, fe.Message, "Text must satisfy required")
}

func TestParseToken(t *testing.T) {
	good, err := SignToken("secret", "user-1", time.Hour)
	require.NoError(t, err)
	id, err := ParseToken("secret", good)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	noUser, err := SignToken("secret", "", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("secret", noUser)
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = ParseToken("secret", "not-a-token")
	assert.Error(t, err)
}
