package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/chatly-app/chatly-api/internal/config"
)

func newRouterTestApp() *fiber.App {
	app := fiber.New()
	cfg := config.Config{AppName: "Chatly API", AppEnv: "test", AppPort: "8080"}
	Register(app, cfg, Dependencies{})
	return app
}

func TestHealthEndpoint(t *testing.T) {
	app := newRouterTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Chatly API", resp.Header.Get("X-Application"))
}

func TestMetricsEndpointServesCollectors(t *testing.T) {
	app := newRouterTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "go_goroutines")
	require.Contains(t, string(body), "socket_connections")
	require.Contains(t, string(body), "presence_online_users")
}
