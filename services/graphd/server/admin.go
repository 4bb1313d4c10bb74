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
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/services/graphd/graph"
	"github.com/AleutianAI/AleutianGraph/services/graphd/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	adminShutdownTimeout = 5 * time.Second
	adminHeaderTimeout   = 10 * time.Second
)

// StatsSource reports the graph for the admin endpoints.
// *dispatch.Dispatcher satisfies it.
type StatsSource interface {
	Stats() graph.Stats
	Nodes() []string
}

// AdminConfig controls the HTTP admin surface.
type AdminConfig struct {
	ListenAddress string

	// WebsocketSessions enables GET /v1/session.
	WebsocketSessions bool
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	Nodes          int `json:"nodes"`
	Edges          int `json:"edges"`
	ActiveSessions int `json:"active_sessions"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Admin serves health, stats, metrics and websocket sessions over HTTP.
type Admin struct {
	cfg    AdminConfig
	server *Server
	stats  StatsSource
	logger *logging.Logger
	router *gin.Engine
}

// NewAdmin builds the admin router.
//
// Inputs:
//
//	cfg - Listen address and websocket toggle.
//	srv - Runs websocket sessions and reports active sessions.
//	stats - Graph statistics source.
//	logger - Parent logger. Nil disables logging.
func NewAdmin(cfg AdminConfig, srv *Server, stats StatsSource, logger *logging.Logger) *Admin {
	if logger == nil {
		logger = logging.Nop()
	}
	a := &Admin{
		cfg:    cfg,
		server: srv,
		stats:  stats,
		logger: logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("graphd"))

	router.GET("/metrics", gin.WrapH(metricsHandler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/health", a.health)
		v1.GET("/stats", a.statsHandler)
		v1.GET("/nodes", a.nodes)
		if cfg.WebsocketSessions {
			v1.GET("/session", a.session)
		}
	}

	a.router = router
	return a
}

// Handler returns the admin router.
func (a *Admin) Handler() http.Handler {
	return a.router
}

// ListenAndServe serves the admin surface until ctx is cancelled.
//
// Description:
//
//	Request contexts derive from ctx, so websocket sessions see the same
//	shutdown signal as TCP sessions. Returns nil on a clean shutdown.
func (a *Admin) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              a.cfg.ListenAddress,
		Handler:           a.router,
		ReadHeaderTimeout: adminHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("admin shutdown incomplete", "error", err)
		}
	})
	defer stop()

	a.logger.Info("admin listening", "address", a.cfg.ListenAddress,
		"websocket_sessions", a.cfg.WebsocketSessions)

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *Admin) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *Admin) statsHandler(c *gin.Context) {
	st := a.stats.Stats()
	c.JSON(http.StatusOK, StatsResponse{
		Nodes:          st.Nodes,
		Edges:          st.Edges,
		ActiveSessions: a.server.ActiveSessions(),
	})
}

func (a *Admin) nodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": a.stats.Nodes()})
}

// session upgrades to a websocket and runs a protocol session over it.
func (a *Admin) session(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	stream := newWSStream(conn)
	err = a.server.ServeStream(c.Request.Context(), stream, transportWebsocket)
	if errors.Is(err, ErrTooManySessions) {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many sessions")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		_ = conn.Close()
	}
}

// metricsHandler prefers the handler installed by telemetry.Init.
func metricsHandler() http.Handler {
	if h := telemetry.MetricsHandler(); h != nil {
		return h
	}
	return promhttp.Handler()
}
