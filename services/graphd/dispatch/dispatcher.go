// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dispatch executes parsed commands against the shared graph and
// renders their reply lines.
//
// # Thread Safety
//
// Dispatcher is safe for concurrent use. Every command, queries included,
// runs under a single mutex, so each one observes and produces a
// consistent graph. There is no reader/writer split: a long shortest-path
// pass blocks mutations from other sessions until it finishes.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/services/graphd/command"
	"github.com/AleutianAI/AleutianGraph/services/graphd/graph"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher guards the one graph of the process and turns commands into
// reply lines.
type Dispatcher struct {
	mu     sync.Mutex
	graph  *graph.Graph
	logger *logging.Logger
}

// New creates a dispatcher owning a fresh, empty graph.
//
// Inputs:
//
//	logger - Logger for rejected commands and internal errors. Nil
//	         disables logging.
func New(logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		graph:  graph.New(),
		logger: logger,
	}
}

// Handle parses one input line and executes it.
//
// Description:
//
//	This is the single entry point used by sessions. A line the grammar
//	does not understand yields ReplyNotUnderstood and leaves the graph
//	untouched.
//
// Outputs:
//
//	string - Exactly one reply line, without terminator.
func (d *Dispatcher) Handle(ctx context.Context, line string) string {
	cmd, ok := command.Parse(line)
	if !ok {
		unparsedTotal.Inc()
		d.logger.Debug("unparsed line", "line", line)
		return ReplyNotUnderstood
	}
	return d.Execute(ctx, cmd)
}

// Execute runs an already-parsed command under the graph lock.
//
// Outputs:
//
//	string - The reply line for the command's outcome.
func (d *Dispatcher) Execute(ctx context.Context, cmd command.Command) string {
	ctx, span := tracer.Start(ctx, "Dispatcher.Execute",
		trace.WithAttributes(
			attribute.String("command.kind", cmd.Kind()),
			attribute.String("command.text", cmd.String()),
		),
	)
	defer span.End()
	start := time.Now()

	d.mu.Lock()
	reply, err := d.execute(ctx, cmd)
	d.mu.Unlock()

	outcome := outcomeOK
	if err != nil {
		outcome = outcomeRejected
		span.SetAttributes(attribute.String("command.rejected", err.Error()))
		d.logger.Debug("command rejected", "command", cmd.String(), "error", err)
	}
	span.SetAttributes(attribute.String("command.outcome", outcome))
	recordCommand(cmd.Kind(), outcome, time.Since(start).Seconds())

	return reply
}

// execute switches over the closed command set. Callers must hold d.mu.
//
// A non-nil error means the command was rejected; the returned reply is
// still the line to send.
func (d *Dispatcher) execute(ctx context.Context, cmd command.Command) (string, error) {
	switch c := cmd.(type) {
	case command.AddNode:
		if !d.graph.AddNode(c.Name) {
			return ReplyNodeExists, fmt.Errorf("node %s already exists", c.Name)
		}
		return ReplyNodeAdded, nil

	case command.AddEdge:
		if err := d.graph.AddEdge(c.From, c.To, c.Weight); err != nil {
			return d.notFound(err)
		}
		return ReplyEdgeAdded, nil

	case command.RemoveNode:
		if !d.graph.RemoveNode(c.Name) {
			return ReplyNodeNotFound, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, c.Name)
		}
		return ReplyNodeRemoved, nil

	case command.RemoveEdge:
		if err := d.graph.RemoveEdge(c.From, c.To); err != nil {
			return d.notFound(err)
		}
		return ReplyEdgeRemoved, nil

	case command.ShortestPath:
		dist, err := d.graph.ShortestPath(ctx, c.From, c.To)
		if err != nil {
			return d.notFound(err)
		}
		return formatDistance(dist), nil

	case command.CloserThan:
		names, err := d.graph.CloserThan(ctx, c.Origin, int64(c.Threshold))
		if err != nil {
			return d.notFound(err)
		}
		return formatNames(names), nil

	default:
		d.logger.Error("unhandled command type", "type", fmt.Sprintf("%T", cmd))
		return ReplyNotUnderstood, fmt.Errorf("unhandled command type %T", cmd)
	}
}

// notFound maps a graph error to its reply line.
func (d *Dispatcher) notFound(err error) (string, error) {
	if errors.Is(err, graph.ErrNodeNotFound) {
		return ReplyNodeNotFound, err
	}
	d.logger.Error("unexpected graph error", "error", err)
	return ReplyNotUnderstood, err
}

// Stats returns the current node and edge counts.
func (d *Dispatcher) Stats() graph.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.graph.Stats()
}

// Nodes returns every node name in ascending order.
func (d *Dispatcher) Nodes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.graph.Nodes()
}
