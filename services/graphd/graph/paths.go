// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/katalvlaran/lvlath/graph/algorithms"
)

// Unreachable is the distance reported when both nodes exist but no path
// connects them. It is the largest 32-bit signed integer, the value clients
// of the line protocol have always seen.
const Unreachable int64 = math.MaxInt32

// ShortestPath returns the minimum total weight of a path from -> to.
//
// Description:
//
//	Runs Dijkstra from scratch on every call; the graph mutates between
//	queries so no index is kept. Returns 0 when from == to and Unreachable
//	when both nodes exist but no path connects them.
//
// Inputs:
//
//	ctx - Context for tracing. The pass is never abandoned half-way.
//	from - Source node name.
//	to - Target node name.
//
// Errors:
//
//	ErrFromNotFound - source node doesn't exist
//	ErrToNotFound - target node doesn't exist
func (g *Graph) ShortestPath(ctx context.Context, from, to string) (int64, error) {
	ctx, span := startQuerySpan(ctx, "ShortestPath", from)
	defer span.End()
	start := time.Now()

	if err := g.checkEndpoints(from, to); err != nil {
		return 0, err
	}

	if from == to {
		recordQueryMetrics(ctx, "shortest_path", time.Since(start), 1)
		return 0, nil
	}

	dist, err := g.distances(from)
	if err != nil {
		return 0, err
	}
	d, ok := dist[to]
	if !ok || d == math.MaxInt64 {
		d = Unreachable
	}

	setQuerySpanResult(span, reached(dist))
	recordQueryMetrics(ctx, "shortest_path", time.Since(start), 1)
	return d, nil
}

// CloserThan lists the nodes whose shortest distance from origin is
// strictly less than threshold.
//
// Description:
//
//	Computes single-source distances from origin. The origin itself and
//	unreachable nodes are excluded. The result is ordered by name, not by
//	distance.
//
// Errors:
//
//	ErrOriginNotFound - origin node doesn't exist
func (g *Graph) CloserThan(ctx context.Context, origin string, threshold int64) ([]string, error) {
	ctx, span := startQuerySpan(ctx, "CloserThan", origin)
	defer span.End()
	start := time.Now()

	if !g.store.HasVertex(origin) {
		return nil, fmt.Errorf("%w: %s", ErrOriginNotFound, origin)
	}

	dist, err := g.distances(origin)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(dist))
	for name, d := range dist {
		if name == origin || d == math.MaxInt64 {
			continue
		}
		if d < threshold {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	setQuerySpanResult(span, reached(dist))
	recordQueryMetrics(ctx, "closer_than", time.Since(start), len(names))
	return names, nil
}

// distances runs lvlath's Dijkstra from source. Unreachable nodes map to
// math.MaxInt64. Weights are never negative and source always exists, so
// an error here means the store itself is broken.
func (g *Graph) distances(source string) (map[string]int64, error) {
	dist, _, err := algorithms.Dijkstra(g.store, source)
	if err != nil {
		return nil, fmt.Errorf("dijkstra from %s: %w", source, err)
	}
	return dist, nil
}

// reached counts the nodes with a finite distance.
func reached(dist map[string]int64) int {
	n := 0
	for _, d := range dist {
		if d != math.MaxInt64 {
			n++
		}
	}
	return n
}
