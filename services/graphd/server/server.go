// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server accepts client connections and runs one session per
// connection against a shared handler.
//
// Two transports are offered: the raw TCP line protocol (Server) and, via
// the admin surface, websocket text frames (Admin). Both go through
// ServeStream so they share the session limit and metrics.
//
// # Shutdown
//
// Cancelling the context passed to Serve closes the listener. Every live
// session observes the same context, interrupts its pending read and
// sends its farewell before its stream is closed. Serve returns
// ErrServerClosed once all sessions have finished.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/services/graphd/session"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var (
	// ErrServerClosed is returned by Serve after its context is cancelled.
	ErrServerClosed = errors.New("server closed")

	// ErrTooManySessions is returned by ServeStream when max_sessions is
	// reached.
	ErrTooManySessions = errors.New("too many sessions")
)

// acceptRetryInterval paces Accept retries after transient errors such as
// running out of file descriptors.
const acceptRetryInterval = 100 * time.Millisecond

// Config controls the TCP acceptor.
type Config struct {
	// ListenAddress is the host:port to bind, e.g. ":50000".
	ListenAddress string

	// IdleTimeout bounds every session read. 0 disables it.
	IdleTimeout time.Duration

	// MaxSessions caps concurrent sessions across transports. 0 means
	// unbounded.
	MaxSessions int

	// ReuseAddress sets SO_REUSEADDR on unix platforms.
	ReuseAddress bool
}

// Server runs sessions for accepted connections.
//
// Thread Safety: Safe for concurrent use.
type Server struct {
	cfg     Config
	handler session.Handler
	logger  *logging.Logger
	sem     *semaphore.Weighted

	idleTimeout atomic.Int64
	active      atomic.Int64
	wg          sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server.
//
// Inputs:
//
//	cfg - Acceptor settings.
//	handler - Shared by every session; usually *dispatch.Dispatcher.
//	logger - Parent logger. Nil disables logging.
func New(cfg Config, handler session.Handler, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
	if cfg.MaxSessions > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxSessions))
	}
	s.idleTimeout.Store(int64(cfg.IdleTimeout))
	return s
}

// SetIdleTimeout changes the idle timeout for sessions started afterwards.
func (s *Server) SetIdleTimeout(d time.Duration) {
	s.idleTimeout.Store(int64(d))
}

// IdleTimeout returns the idle timeout applied to new sessions.
func (s *Server) IdleTimeout() time.Duration {
	return time.Duration(s.idleTimeout.Load())
}

// ActiveSessions returns the number of running sessions.
func (s *Server) ActiveSessions() int {
	return int(s.active.Load())
}

// Addr returns the bound listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds cfg.ListenAddress and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := listenConfig(s.cfg.ReuseAddress)
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
//
// Description:
//
//	Each accepted connection runs a session in its own goroutine. When
//	MaxSessions is set, Serve stops accepting while the limit is reached,
//	leaving further clients in the kernel backlog. Transient Accept errors
//	are logged and retried at a bounded rate.
//
// Outputs:
//
//	error - ErrServerClosed after ctx is cancelled and every session has
//	        finished. Any other error means the listener failed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.logger.Info("listening", "address", ln.Addr().String(),
		"idle_timeout", s.IdleTimeout().String(),
		"max_sessions", s.cfg.MaxSessions,
	)

	retry := rate.NewLimiter(rate.Every(acceptRetryInterval), 1)

	for {
		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return s.closed()
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			s.release()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return s.closed()
			}
			acceptErrors.Inc()
			s.logger.Warn("accept failed, retrying", "error", err)
			if err := retry.Wait(ctx); err != nil {
				return s.closed()
			}
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			s.run(ctx, conn, transportTCP)
		}()
	}
}

// ServeStream runs one session over an already-established stream and
// blocks until it ends.
//
// Description:
//
//	Used by non-TCP transports. Unlike the TCP acceptor it does not wait
//	for a free slot: when MaxSessions is reached it fails immediately.
//
// Errors:
//
//	ErrTooManySessions - the session limit is reached
//	Otherwise the error returned by session.Run.
func (s *Server) ServeStream(ctx context.Context, stream io.ReadWriter, transport string) error {
	if s.sem != nil && !s.sem.TryAcquire(1) {
		sessionsRejected.WithLabelValues(transport).Inc()
		return ErrTooManySessions
	}
	defer s.release()

	return s.run(ctx, stream, transport)
}

// run executes one session with accounting.
func (s *Server) run(ctx context.Context, stream io.ReadWriter, transport string) error {
	s.active.Add(1)
	sessionsActive.WithLabelValues(transport).Inc()
	start := time.Now()
	defer func() {
		s.active.Add(-1)
		sessionsActive.WithLabelValues(transport).Dec()
		sessionDuration.WithLabelValues(transport).Observe(time.Since(start).Seconds())
	}()

	sess := session.Begin(stream, s.handler,
		session.WithLogger(s.logger.With("transport", transport)),
		session.WithIdleTimeout(s.IdleTimeout()),
	)

	err := sess.Run(ctx)
	switch {
	case err == nil:
		sessionsTotal.WithLabelValues(transport, "ok").Inc()
	case errors.Is(err, session.ErrIdleTimeout):
		sessionsTotal.WithLabelValues(transport, "idle_timeout").Inc()
		s.logger.Info("session timed out", "session_id", sess.ID(), "client_name", sess.Name())
	default:
		sessionsTotal.WithLabelValues(transport, "error").Inc()
		s.logger.Warn("session ended with error", "session_id", sess.ID(), "error", err)
	}
	return err
}

func (s *Server) release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

// closed waits for live sessions and reports shutdown.
func (s *Server) closed() error {
	s.wg.Wait()
	s.logger.Info("server stopped")
	return ErrServerClosed
}
