package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signal_engine/internal/modules/health/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyzFollowsState(t *testing.T) {
	state := service.NewState()
	srv := httptest.NewServer(NewMux(state))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	state.SetReady(true)
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthzReportsCounters(t *testing.T) {
	state := service.NewState()
	state.SetReady(true)
	state.SetActiveSignals(3)
	state.TouchScan(time.Unix(1741950000, 0))

	srv := httptest.NewServer(NewMux(state))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ready"])
	assert.EqualValues(t, 3, body["activeSignals"])
	assert.EqualValues(t, 1741950000, body["lastScanUnix"])
}

func TestLivezAlwaysOK(t *testing.T) {
	srv := httptest.NewServer(NewMux(service.NewState()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
