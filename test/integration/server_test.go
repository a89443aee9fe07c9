package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSwithSiam/demo-websocket-project/internal/server"
	"github.com/DSwithSiam/demo-websocket-project/test/testhelpers"
)

func TestCreateServerConfiguration(t *testing.T) {
	handler := http.NewServeMux()
	srv := server.CreateServer(":9090", handler)

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)
	// WebSocket connections outlive any write timeout, so none is set.
	assert.Zero(t, srv.WriteTimeout)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testhelpers.StartChatServer(t)

	resp, err := http.Get(srv.HTTP.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Chat server is running!", string(body))
}

func TestStatsTrackLiveConnections(t *testing.T) {
	srv := testhelpers.StartChatServer(t)

	resp, err := http.Get(srv.HTTP.URL + "/stats")
	require.NoError(t, err)
	var initial map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&initial))
	_ = resp.Body.Close()
	assert.Equal(t, float64(0), initial["groups"])
	assert.Equal(t, float64(0), initial["connections"])

	conn := testhelpers.Dial(t, srv.WSURL("/chat/lobby/"))
	testhelpers.WaitForEvent(t, conn, "notification")

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.HTTP.URL + "/stats")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()

		var body map[string]float64
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		return body["groups"] == 1 && body["connections"] == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestUnknownRouteReturns404(t *testing.T) {
	srv := testhelpers.StartChatServer(t)

	resp, err := http.Get(srv.HTTP.URL + "/nope")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
