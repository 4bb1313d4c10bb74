// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianGraph/services/graphd/dispatch"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAdmin(t *testing.T, cfg Config, ws bool) (*Admin, *dispatch.Dispatcher, *Server) {
	t.Helper()
	d := dispatch.New(nil)
	srv := New(cfg, d, nil)
	return NewAdmin(AdminConfig{WebsocketSessions: ws}, srv, d, nil), d, srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// =============================================================================
// HTTP Endpoint Tests
// =============================================================================

func TestAdmin_Health(t *testing.T) {
	admin, _, _ := newTestAdmin(t, Config{}, false)

	w := get(t, admin.Handler(), "/v1/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAdmin_Stats(t *testing.T) {
	admin, d, _ := newTestAdmin(t, Config{}, false)
	ctx := context.Background()
	d.Handle(ctx, "ADD NODE a")
	d.Handle(ctx, "ADD NODE b")
	d.Handle(ctx, "ADD EDGE a b 3")

	w := get(t, admin.Handler(), "/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatsResponse{Nodes: 2, Edges: 1, ActiveSessions: 0}, body)
}

func TestAdmin_Nodes(t *testing.T) {
	admin, d, _ := newTestAdmin(t, Config{}, false)
	ctx := context.Background()
	d.Handle(ctx, "ADD NODE zeta")
	d.Handle(ctx, "ADD NODE alpha")

	w := get(t, admin.Handler(), "/v1/nodes")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Nodes []string `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"alpha", "zeta"}, body.Nodes)
}

func TestAdmin_Metrics(t *testing.T) {
	admin, _, _ := newTestAdmin(t, Config{}, false)
	acceptErrors.Add(0)

	w := get(t, admin.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graphd_server_accept_errors_total")
}

func TestAdmin_SessionRouteDisabled(t *testing.T) {
	admin, _, _ := newTestAdmin(t, Config{}, false)

	w := get(t, admin.Handler(), "/v1/session")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_ListenAndServeStops(t *testing.T) {
	d := dispatch.New(nil)
	admin := NewAdmin(AdminConfig{ListenAddress: "127.0.0.1:0"}, New(Config{}, d, nil), d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- admin.ListenAndServe(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("admin did not stop")
	}
}

// =============================================================================
// Websocket Session Tests
// =============================================================================

func dialSession(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/session"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	return string(data)
}

func sendText(t *testing.T, conn *websocket.Conn, line string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(line)))
}

func TestAdmin_WebsocketSession(t *testing.T) {
	admin, d, _ := newTestAdmin(t, Config{}, true)
	ts := httptest.NewServer(admin.Handler())
	defer ts.Close()

	conn := dialSession(t, ts)
	assert.Regexp(t, greetingLine, readText(t, conn))

	sendText(t, conn, "HI, I'M Lovelace")
	assert.Equal(t, "HI Lovelace", readText(t, conn))

	sendText(t, conn, "ADD NODE a")
	assert.Equal(t, "NODE ADDED", readText(t, conn))
	sendText(t, conn, "ADD NODE b")
	assert.Equal(t, "NODE ADDED", readText(t, conn))
	sendText(t, conn, "ADD EDGE a b 4")
	assert.Equal(t, "EDGE ADDED", readText(t, conn))
	sendText(t, conn, "SHORTEST PATH a b")
	assert.Equal(t, "4", readText(t, conn))

	sendText(t, conn, "BYE MATE!")
	m := farewellLine.FindStringSubmatch(readText(t, conn))
	require.NotNil(t, m)
	assert.Equal(t, "Lovelace", m[1])

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	assert.Equal(t, 2, d.Stats().Nodes)
}

func TestAdmin_WebsocketTooManySessions(t *testing.T) {
	admin, _, srv := newTestAdmin(t, Config{MaxSessions: 1}, true)
	ts := httptest.NewServer(admin.Handler())
	defer ts.Close()

	first := dialSession(t, ts)
	assert.Regexp(t, greetingLine, readText(t, first))
	require.Eventually(t, func() bool { return srv.ActiveSessions() == 1 }, time.Second, 5*time.Millisecond)

	before := testutil.ToFloat64(sessionsRejected.WithLabelValues(transportWebsocket))

	second := dialSession(t, ts)
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "got %v", err)
	assert.Equal(t, websocket.CloseTryAgainLater, closeErr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(sessionsRejected.WithLabelValues(transportWebsocket)))
}

// =============================================================================
// Stream Adapter Tests
// =============================================================================

func TestWSStream_SplitsWritesIntoMessages(t *testing.T) {
	received := make(chan string, 8)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		stream := newWSStream(conn)
		// One write holding two lines and a partial third.
		_, _ = stream.Write([]byte("first\nsecond\nthi"))
		_, _ = stream.Write([]byte("rd\n"))
		_ = stream.Close()
	}))
	defer ts.Close()

	conn := dialSession(t, ts)
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		received <- string(data)
	}
	close(received)

	var got []string
	for line := range received {
		got = append(got, line)
	}
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestWSStream_ReadTerminatesMessages(t *testing.T) {
	lines := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		stream := newWSStream(conn)
		var sb strings.Builder
		buf := make([]byte, 3)
		for {
			n, err := stream.Read(buf)
			sb.Write(buf[:n])
			if err != nil {
				break
			}
		}
		lines <- sb.String()
		_ = conn.Close()
	}))
	defer ts.Close()

	conn := dialSession(t, ts)
	sendText(t, conn, "ADD NODE a")
	sendText(t, conn, "")
	sendText(t, conn, "BYE")
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	select {
	case got := <-lines:
		assert.Equal(t, "ADD NODE a\n\nBYE\n", got)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not finish reading")
	}
}
