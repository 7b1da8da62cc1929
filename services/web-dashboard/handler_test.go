package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	handler  *WebHandler
	dash     *Dashboard
	dialer   *fakeDialer
	shutdown context.CancelFunc
}

func newTestServer(t *testing.T, layoutName string) *testServer {
	t.Helper()
	layout := mustLayout(t, layoutName)
	logger := discardLogger()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	dialer := &fakeDialer{}
	transport := NewTransport(dialer, BrokerConfig{URL: "tcp://broker:1883", ClientID: "test"}, layout.Topics(), logger)
	dash := NewDashboard(layout, transport, NewStore(), metrics, time.UTC, logger)

	ctx, cancel := context.WithCancel(context.Background())
	h, err := NewWebHandler(ctx, dash, metrics, reg, logger)
	require.NoError(t, err)
	h.tick = time.Hour

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(func() {
		cancel()
		srv.Close()
		dash.Close()
	})
	return &testServer{Server: srv, handler: h, dash: dash, dialer: dialer, shutdown: cancel}
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHandler_Index(t *testing.T) {
	srv := newTestServer(t, LayoutMulti)

	resp, body := srv.get(t, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "<title>Weather Station Dashboard</title>")
	assert.Contains(t, body, "Environment (BME680)")
	assert.Contains(t, body, Placeholder)
	assert.Contains(t, body, `"status_text":"Disconnected"`)
}

func TestHandler_Snapshot(t *testing.T) {
	srv := newTestServer(t, LayoutSingle)
	require.NoError(t, srv.dash.Connect(context.Background()))
	srv.dialer.last().deliver("weather/air-quality", "42")

	resp, body := srv.get(t, "/api/snapshot")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var view View
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, StatusConnected, view.Status)
	row := findRow(t, view.Cards, "Air Quality", "Air Quality")
	assert.Equal(t, "42", row.Value)
	assert.Equal(t, "Good", row.Description)
}

func TestHandler_Status(t *testing.T) {
	srv := newTestServer(t, LayoutMulti)

	resp, body := srv.get(t, "/api/status")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got statusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, StatusDisconnected, got.Connection.Status)
	assert.Equal(t, LayoutMulti, got.Layout)
	assert.Contains(t, got.Topics, "weather/summary")
	assert.Positive(t, got.Process.Goroutines)
}

func TestHandler_CorsPreflight(t *testing.T) {
	srv := newTestServer(t, LayoutMulti)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/reconnect", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Zero(t, srv.dialer.dials())
}

func TestHandler_Reconnect(t *testing.T) {
	srv := newTestServer(t, LayoutMulti)
	require.NoError(t, srv.dash.Connect(context.Background()))
	srv.dialer.last().deliver("weather/light/infrared", "300")

	resp, err := http.Post(srv.URL+"/api/reconnect", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var st StatusInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, StatusConnected, st.Status)
	assert.Equal(t, 2, srv.dialer.dials())
	assert.Len(t, srv.dialer.open(), 1)
	assert.Equal(t, Snapshot{}, srv.dash.store.Snapshot())
}

func TestHandler_ReconnectFailure(t *testing.T) {
	srv := newTestServer(t, LayoutMulti)
	srv.dialer.fail(errors.New("connection refused"))

	resp, err := http.Post(srv.URL+"/api/reconnect", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var st StatusInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, StatusInfo{Status: StatusDisconnected, Error: "connection refused"}, st)
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, LayoutMulti)
	require.NoError(t, srv.dash.Connect(context.Background()))
	srv.dialer.last().deliver("weather/bogus/x", "1")

	resp, body := srv.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	resp, body = srv.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `weather_messages_total{result="dropped"} 1`)
	assert.Contains(t, body, `weather_connection_state{state="connected"} 1`)
}

func dialLive(t *testing.T, srv *testServer) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readView(t *testing.T, conn *websocket.Conn) View {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var v View
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

func TestHandler_LivePushesChanges(t *testing.T) {
	srv := newTestServer(t, LayoutMulti)
	require.NoError(t, srv.dash.Connect(context.Background()))
	conn := dialLive(t, srv)

	first := readView(t, conn)
	assert.Equal(t, StatusConnected, first.Status)
	assert.Equal(t, Placeholder, findRow(t, first.Cards, "Atmosphere (BME280)", "Pressure").Value)
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.handler.metrics.liveClients))

	srv.dialer.last().deliver("weather/bme280/pressure", "1008.4")

	// Změny se slévají, některý z dalších View musí hodnotu obsahovat.
	deadline := time.Now().Add(3 * time.Second)
	for {
		v := readView(t, conn)
		if findRow(t, v.Cards, "Atmosphere (BME280)", "Pressure").Value == "1008.4" {
			break
		}
		require.True(t, time.Now().Before(deadline), "hodnota nedorazila")
	}
}

func TestHandler_LiveClosesOnShutdown(t *testing.T) {
	srv := newTestServer(t, LayoutSingle)
	conn := dialLive(t, srv)
	readView(t, conn)

	srv.shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "err: %v", err)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(srv.handler.metrics.liveClients) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_LiveRejectsOversizedFrames(t *testing.T) {
	srv := newTestServer(t, LayoutMulti)
	conn := dialLive(t, srv)
	readView(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 4*liveMaxMessageSize))))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), "err: %v", err)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(srv.handler.metrics.liveClients) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
