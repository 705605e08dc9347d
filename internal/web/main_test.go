package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store/memory"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/handler/login"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	settings, errs := auth.LoadSettings(config.Map{})
	require.Empty(t, errs)

	st := memory.New()
	authService := auth.NewService(settings, st, nil, nil)

	_, err := authService.Local().CreateUser(context.Background(),
		store.Reference{Wiki: "xwiki", Space: store.DefaultSpace, Name: "Admin"}, "changeme", nil)
	require.NoError(t, err)

	cfg := &config.Config{
		Title:     "ldapauth",
		Webserver: config.Webserver{JWTSecret: "secret", TokenExpiry: time.Hour, URL: "http://localhost", Port: 8080},
	}

	s, err := New(cfg, authService)
	require.NoError(t, err)

	return s
}

func TestCheckAlive(t *testing.T) {
	s := newTestService(t)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, CheckAlivePath, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	_ = resp.Body.Close()

	s.alive.Store(false)

	resp, err = s.App.Test(httptest.NewRequest(http.MethodGet, CheckAlivePath, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestMetricsCountLogins(t *testing.T) {
	s := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, login.Path,
		strings.NewReader(`{"login":"Admin","password":"changeme"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := s.App.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body login.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()

	assert.Equal(t, "xwiki:XWiki.Admin", body.Principal.Name)
	assert.Equal(t, auth.SourceLocal, body.Principal.Source)

	resp, err = s.App.Test(httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `auth_attempts_total{result="success",source="local"}`)
}

func TestUnknownRouteAnswersJSON(t *testing.T) {
	s := newTestService(t)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)

	_, err = New(&config.Config{}, nil)
	require.Error(t, err)
}
