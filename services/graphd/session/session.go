// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session implements the per-connection line protocol of graphd.
//
// A session greets the client, learns its name, relays every further line
// to a Handler until the client says goodbye or the stream ends, and then
// sends a farewell carrying the session's duration.
//
// # Lifecycle
//
//	AwaitingName -> Active -> Closed
//
// The farewell is sent at most once, and only when a name was bound. It is
// attempted on every path into Closed: client farewell, EOF, I/O error,
// idle timeout and server shutdown.
//
// # Thread Safety
//
// A Session is driven by exactly one goroutine calling Run. The accessors
// (ID, Name, State) are safe to call from other goroutines.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("graphd.session")

// ErrIdleTimeout is returned by Run when the client stayed silent longer
// than the idle timeout.
var ErrIdleTimeout = errors.New("session idle timeout")

// ErrLineTooLong ends a session whose client sent more than MaxLineBytes
// without a line terminator.
var ErrLineTooLong = errors.New("line too long")

// DefaultIdleTimeout bounds each read when no option overrides it.
const DefaultIdleTimeout = 30 * time.Second

// MaxLineBytes caps a single input line, terminator excluded.
const MaxLineBytes = 64 * 1024

// Handler produces the reply line for one input line.
//
// *dispatch.Dispatcher implements Handler.
type Handler interface {
	Handle(ctx context.Context, line string) string
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, line string) string

// Handle calls f(ctx, line).
func (f HandlerFunc) Handle(ctx context.Context, line string) string {
	return f(ctx, line)
}

// State is the protocol phase of a session.
type State int32

const (
	// StateAwaitingName is the phase between greeting and introduction.
	StateAwaitingName State = iota
	// StateActive relays commands.
	StateActive
	// StateClosed is terminal.
	StateClosed
)

// String returns the phase name.
func (s State) String() string {
	switch s {
	case StateAwaitingName:
		return "awaiting_name"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the parent logger. The session logs through a child
// carrying session_id and remote_addr.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIdleTimeout bounds every read. Zero or negative disables the bound.
// Only effective when the stream supports SetReadDeadline.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.idleTimeout = d
	}
}

// WithClock overrides the time source used for the session duration.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// readDeadliner is implemented by net.Conn and the websocket adapter.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// writeDeadliner is implemented by net.Conn and the websocket adapter.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// remoteAddresser is implemented by net.Conn.
type remoteAddresser interface {
	RemoteAddr() net.Addr
}

// Session is one client conversation over a byte stream.
type Session struct {
	id          string
	stream      io.ReadWriter
	handler     Handler
	scanner     *bufio.Scanner
	writer      *bufio.Writer
	logger      *logging.Logger
	idleTimeout time.Duration
	now         func() time.Time
	started     time.Time

	mu    sync.Mutex
	state State
	name  string
	bound bool

	farewellOnce sync.Once
}

// Begin creates a session for a freshly accepted stream.
//
// Description:
//
//	Assigns a random UUID as session id and records the start time. No
//	bytes are exchanged until Run is called.
//
// Inputs:
//
//	stream - The client byte stream. Closed by Run if it is an io.Closer.
//	handler - Produces replies for command lines.
//	opts - Optional settings.
//
// Outputs:
//
//	*Session - Ready to Run, in StateAwaitingName.
func Begin(stream io.ReadWriter, handler Handler, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		stream:      stream,
		handler:     handler,
		scanner:     newLineScanner(stream),
		writer:      bufio.NewWriter(stream),
		logger:      logging.Nop(),
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		state:       StateAwaitingName,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()

	attrs := []any{"session_id", s.id}
	if ra, ok := stream.(remoteAddresser); ok && ra.RemoteAddr() != nil {
		attrs = append(attrs, "remote_addr", ra.RemoteAddr().String())
	}
	s.logger = s.logger.With(attrs...)
	return s
}

// ID returns the session identifier sent in the greeting.
func (s *Session) ID() string {
	return s.id
}

// Name returns the bound client name, empty before the introduction.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// State returns the current protocol phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run drives the session to completion.
//
// Description:
//
//	Sends the greeting, reads the introduction, then relays lines to the
//	handler until the client's farewell or the end of the stream. On the
//	way out the farewell is sent (if a name was bound) and the stream is
//	closed. Cancelling ctx interrupts a blocked read; the session then
//	closes as if the client had gone away.
//
// Inputs:
//
//	ctx - Cancellation for server shutdown. Passed to the handler.
//
// Outputs:
//
//	error - Nil on client farewell, EOF or shutdown. ErrIdleTimeout if
//	        the client went silent. Otherwise the transport error.
func (s *Session) Run(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "Session.Run",
		trace.WithAttributes(attribute.String("session.id", s.id)),
	)
	defer span.End()

	stop := context.AfterFunc(ctx, s.interrupt)
	defer stop()

	s.logger.Info("session started")
	defer func() {
		s.close()
		span.SetAttributes(attribute.String("session.client", s.Name()))
		if err != nil {
			span.RecordError(err)
		}
	}()

	if err := s.writeLine(greeting(s.id)); err != nil {
		return s.transportError(ctx, "send greeting", err)
	}

	line, err := s.readLine(ctx)
	if err != nil {
		return s.transportError(ctx, "read introduction", err)
	}

	name, ok := parseIntroduction(line)
	if !ok {
		s.logger.Warn("unable to parse client name", "line", line)
	}
	s.bind(name)

	if err := s.writeLine(acknowledgement(name)); err != nil {
		return s.transportError(ctx, "send acknowledgement", err)
	}

	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return s.transportError(ctx, "read command", err)
		}
		if isFarewell(line) {
			s.logger.Debug("client said goodbye")
			return nil
		}

		reply := s.handler.Handle(ctx, line)
		s.logger.Debug("command handled", "request", line, "reply", reply)

		if err := s.writeLine(reply); err != nil {
			return s.transportError(ctx, "send reply", err)
		}
	}
}

// bind records the client name and enters StateActive.
func (s *Session) bind(name string) {
	s.mu.Lock()
	s.name = name
	s.bound = true
	s.state = StateActive
	s.mu.Unlock()

	s.logger = s.logger.With("client_name", name)
}

// close enters StateClosed, sends the farewell once and releases the
// stream.
func (s *Session) close() {
	s.mu.Lock()
	s.state = StateClosed
	name, bound := s.name, s.bound
	s.mu.Unlock()

	elapsed := s.now().Sub(s.started)
	if bound {
		s.farewellOnce.Do(func() {
			// A prior interrupt may have expired the read deadline only;
			// writes get their own deadline in writeLine.
			if err := s.writeLine(farewell(name, elapsed)); err != nil {
				s.logger.Warn("failed to send farewell", "error", err)
			}
		})
	}

	if c, ok := s.stream.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Debug("close stream", "error", err)
		}
	}
	s.logger.Info("session finished", "duration_ms", elapsed.Milliseconds())
}

// interrupt unblocks a pending read after ctx is cancelled.
func (s *Session) interrupt() {
	if rd, ok := s.stream.(readDeadliner); ok {
		_ = rd.SetReadDeadline(time.Now())
		return
	}
	if c, ok := s.stream.(io.Closer); ok {
		_ = c.Close()
	}
}

// readLine reads one line without its terminator.
//
// A final line without a trailing newline is still returned; the next
// call then reports io.EOF. A line longer than MaxLineBytes fails with
// ErrLineTooLong and the stream is not read any further.
func (s *Session) readLine(ctx context.Context) (string, error) {
	if rd, ok := s.stream.(readDeadliner); ok {
		var deadline time.Time
		if s.idleTimeout > 0 {
			deadline = time.Now().Add(s.idleTimeout)
		}
		if err := rd.SetReadDeadline(deadline); err != nil {
			return "", err
		}
	}
	// Checked after arming the deadline so a concurrent interrupt cannot
	// be overwritten.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !s.scanner.Scan() {
		err := s.scanner.Err()
		switch {
		case err == nil:
			return "", io.EOF
		case errors.Is(err, bufio.ErrTooLong):
			return "", fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, MaxLineBytes)
		default:
			return "", err
		}
	}
	return s.scanner.Text(), nil
}

// newLineScanner splits stream into lines of at most MaxLineBytes. CRLF
// terminators are accepted.
func newLineScanner(stream io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineBytes+2)
	return scanner
}

// writeLine writes one line and flushes it.
func (s *Session) writeLine(line string) error {
	if wd, ok := s.stream.(writeDeadliner); ok {
		var deadline time.Time
		if s.idleTimeout > 0 {
			deadline = time.Now().Add(s.idleTimeout)
		}
		if err := wd.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if _, err := s.writer.WriteString(line + "\n"); err != nil {
		return err
	}
	return s.writer.Flush()
}

// transportError classifies the error that ended the session.
func (s *Session) transportError(ctx context.Context, op string, err error) error {
	switch {
	case ctx.Err() != nil:
		s.logger.Debug("session interrupted by shutdown", "op", op)
		return nil
	case errors.Is(err, io.EOF):
		s.logger.Debug("client closed the stream", "op", op)
		return nil
	case isTimeout(err):
		return fmt.Errorf("%w: %s", ErrIdleTimeout, op)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// isTimeout reports whether err is a deadline expiry.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
