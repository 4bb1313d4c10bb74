// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package client is the interactive line-protocol client behind
// `graphd client`.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/pkg/ux"
)

// DefaultDialTimeout bounds the TCP connect in Dial.
const DefaultDialTimeout = 5 * time.Second

// Option configures Relay.
type Option func(*relay)

// WithPrompt prints "client > " after every server line.
func WithPrompt(enabled bool) Option {
	return func(r *relay) {
		r.prompt = enabled
	}
}

// WithLogger sets the logger for connection diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(r *relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type relay struct {
	conn    io.ReadWriter
	in      io.Reader
	printer *ux.Printer
	prompt  bool
	logger  *logging.Logger
}

// Dial connects to a graphd server.
func Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return conn, nil
}

// Relay copies lines from in to the server and prints every server line
// with the "server > " prefix.
//
// Description:
//
//	Relay returns when the server closes the connection or ctx is
//	cancelled. When in reaches EOF the write half of conn is closed (if
//	supported) and Relay keeps printing until the server hangs up. A
//	final line without a terminator is still printed.
//
// Outputs:
//
//	error - nil when the server closed the connection or ctx was
//	        cancelled, otherwise the read error.
func Relay(ctx context.Context, conn io.ReadWriter, in io.Reader, printer *ux.Printer, opts ...Option) error {
	r := &relay{
		conn:    conn,
		in:      in,
		printer: printer,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if closer, ok := conn.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { closer.Close() })
		defer stop()
	}

	go r.pump()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			r.printer.ServerLine(strings.TrimRight(line, "\r\n"))
			if r.prompt && err == nil {
				r.printer.Prompt()
			}
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			r.logger.Debug("server closed the connection")
			return nil
		}
		return fmt.Errorf("read from server: %w", err)
	}
}

// pump forwards input lines until in is exhausted or a write fails.
func (r *relay) pump() {
	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		if _, err := io.WriteString(r.conn, scanner.Text()+"\n"); err != nil {
			r.logger.Debug("send failed", "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("reading input failed", "error", err)
	}

	if hc, ok := r.conn.(interface{ CloseWrite() error }); ok {
		if err := hc.CloseWrite(); err != nil {
			r.logger.Debug("half-close failed", "error", err)
		}
	}
}
