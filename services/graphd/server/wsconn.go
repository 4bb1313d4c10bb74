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
	"bytes"
	"errors"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// closeGrace bounds the close handshake write.
const closeGrace = time.Second

// wsStream presents a websocket connection as a line-oriented byte stream.
//
// Each incoming message is one line: its payload is followed by '\n'.
// Each '\n'-terminated chunk written is sent as one text message without
// the terminator. Not safe for concurrent Reads or concurrent Writes,
// which matches how a session uses its stream.
type wsStream struct {
	conn   *websocket.Conn
	reader io.Reader
	eol    bool
	wbuf   bytes.Buffer
}

func newWSStream(conn *websocket.Conn) *wsStream {
	return &wsStream{conn: conn}
}

// Read implements io.Reader.
func (w *wsStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if w.eol {
			w.eol = false
			p[0] = '\n'
			return 1, nil
		}

		if w.reader == nil {
			_, r, err := w.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			w.reader = r
		}

		n, err := w.reader.Read(p)
		if errors.Is(err, io.EOF) {
			w.reader = nil
			w.eol = true
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write implements io.Writer.
func (w *wsStream) Write(p []byte) (int, error) {
	w.wbuf.Write(p)
	for {
		idx := bytes.IndexByte(w.wbuf.Bytes(), '\n')
		if idx < 0 {
			return len(p), nil
		}
		line := w.wbuf.Next(idx + 1)
		if err := w.conn.WriteMessage(websocket.TextMessage, line[:idx]); err != nil {
			return 0, err
		}
	}
}

// Close sends a normal close frame and closes the connection.
func (w *wsStream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	return w.conn.Close()
}

// SetReadDeadline implements the session's read deadline hook.
func (w *wsStream) SetReadDeadline(t time.Time) error {
	return w.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements the session's write deadline hook.
func (w *wsStream) SetWriteDeadline(t time.Time) error {
	return w.conn.SetWriteDeadline(t)
}

// RemoteAddr returns the peer address.
func (w *wsStream) RemoteAddr() net.Addr {
	return w.conn.RemoteAddr()
}
