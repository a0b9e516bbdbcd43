package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/muhvmmv/Tyche-Betting/internal/auth"
	"github.com/muhvmmv/Tyche-Betting/internal/logging"
)

var testSecret = []byte("test-secret")

func whoAmI(c *fiber.Ctx) error {
	return c.SendString(UserID(c))
}

func TestJWTAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/me", JWTAuth(testSecret), whoAmI)

	token, err := auth.Sign("user-42", time.Minute, testSecret)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestAdminAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("op-token"), bcrypt.MinCost)
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/admin", AdminAuth(string(hash)), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	disabled := fiber.New()
	disabled.Post("/admin", AdminAuth(""), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	call := func(a *fiber.App, token string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		if token != "" {
			req.Header.Set(adminTokenHeader, token)
		}
		resp, err := a.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, call(app, ""))
	assert.Equal(t, http.StatusForbidden, call(app, "wrong"))
	assert.Equal(t, http.StatusNoContent, call(app, "op-token"))
	assert.Equal(t, http.StatusForbidden, call(disabled, "op-token"))
}

func TestPlacementRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/wagers", func(c *fiber.Ctx) error {
		c.Locals(userIDLocal, "u1")
		return c.Next()
	}, PlacementRateLimit(cache, 2, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusCreated)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/wagers", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestPlacementRateLimitWithoutRedisIsNoop(t *testing.T) {
	app := fiber.New()
	app.Post("/wagers", PlacementRateLimit(nil, 1, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusCreated)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/wagers", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Header.Get(requestIDHeader))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}
