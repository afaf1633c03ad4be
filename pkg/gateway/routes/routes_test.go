package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/gateway/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRouter(t *testing.T) (*mux.Router, *auth.SessionManager) {
	t.Helper()
	logger.Silence()
	sessions, err := auth.NewSessionManager("0123456789abcdef", "salespulse", time.Hour)
	require.NoError(t, err)

	r := mux.NewRouter()
	NewSessionHandler(sessions, "hunter22").Register(r)
	return r, sessions
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSessionIssuesAdminToken(t *testing.T) {
	r, sessions := sessionRouter(t)

	rec := post(r, "/admin/session", `{"password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := sessions.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "admin", claims.Subject)
}

func TestSessionRejectsBadInput(t *testing.T) {
	r, _ := sessionRouter(t)

	cases := map[string]struct {
		body   string
		status int
	}{
		"wrong password": {`{"password":"nope"}`, http.StatusUnauthorized},
		"empty password": {`{"password":"  "}`, http.StatusBadRequest},
		"malformed json": {`{`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(r, "/admin/session", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), "token")
		})
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	logger.Silence()
	r := mux.NewRouter()
	NewHealthHandler("leaderboard-api", map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "unavailable", body.Checks["redis"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "salespulse_")
}
