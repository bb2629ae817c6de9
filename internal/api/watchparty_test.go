package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watchparty/server/internal/catalog"
	"github.com/watchparty/server/internal/config"
	"github.com/watchparty/server/internal/database"
	"github.com/watchparty/server/internal/server"
	"github.com/watchparty/server/internal/session"
	"github.com/watchparty/server/internal/stats"
	"github.com/watchparty/server/internal/testutil"
)

func newTestApp(t *testing.T, db database.WatchPartyRepository) *WatchPartyApp {
	t.Helper()

	logger := testutil.TestLogger(t)

	reg, err := session.NewRegistry(logger, nil, nil, time.Hour)
	require.NoError(t, err, "expected registry to initialize")

	cfg := &config.Config{
		ServerAddr:     "localhost:8080",
		SigningKey:     []byte("secret"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	ws := server.NewWatchServer(logger, &stats.MockStatsUpdater{})
	ws.SetRegistry(reg)

	return NewWatchPartyApp(http.NewServeMux(), logger, ws, reg, catalog.NewService(logger, db), db, cfg)
}

func TestNewWatchPartyApp(t *testing.T) {
	db := &database.MockWatchPartyRepository{}
	app := newTestApp(t, db)

	assert.NotNil(t, app, "expected app to be initialized")
	assert.NotNil(t, app.mux, "expected mux to be initialized")
	assert.NotNil(t, app.log, "expected logger to be set")
	assert.NotNil(t, app.registry, "expected registry to be set")
	assert.NotNil(t, app.ws, "expected watch server to be set")
	assert.Equal(t, app.db, database.WatchPartyRepository(db), "expected db to be set")
	assert.Equal(t, []byte("secret"), app.signingKey, "expected signing key to be set")
	assert.Equal(t, "localhost:8080", app.mux.Addr, "expected server address to match config")
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockWatchPartyRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", &bytes.Buffer{})
			app.healthCheck(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
				assert.Equal(t, "OK", rr.Body.String(), "expected response body to be 'OK'")
			}
		})
	}
}
