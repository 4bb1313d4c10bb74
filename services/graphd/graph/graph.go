// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the shared directed, weighted graph served by graphd.
//
// Nodes are identified by their name; edges are directed arcs carrying a
// non-negative integer weight. At most one edge exists per ordered
// (from, to) pair.
//
// Storage and shortest paths are delegated to lvlath: a directed, weighted
// core.Graph holds the adjacency and dijkstra computes distances.
//
// # Thread Safety
//
// lvlath locks its own RWMutex per call, which keeps single calls
// consistent but not whole operations. AddEdge checks then inserts, and a
// path query reads the graph for the length of a Dijkstra pass. The
// command dispatcher's mutex is what makes each operation atomic; every
// caller must go through it.
//
// # Lifecycle
//
// One Graph is created per process with New() and lives for the process
// lifetime. There is no reset, checkpoint or undo.
package graph

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlath/graph/core"
)

// Edge is a directed, weighted arc between two nodes.
//
// Edge values are immutable: re-adding an existing (From, To) pair never
// changes the recorded Weight.
type Edge struct {
	From   string
	To     string
	Weight int
}

// String renders the edge as "from->to:weight".
func (e Edge) String() string {
	return fmt.Sprintf("%s->%s:%d", e.From, e.To, e.Weight)
}

// Stats summarizes the graph's size.
type Stats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Graph is the directed, weighted graph.
type Graph struct {
	store *core.Graph
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		store: core.NewGraph(true, true),
	}
}

// AddNode inserts a node.
//
// Outputs:
//
//	bool - True if inserted, false if a node with that name already exists.
func (g *Graph) AddNode(name string) bool {
	if g.store.HasVertex(name) {
		return false
	}
	g.store.AddVertex(&core.Vertex{ID: name, Metadata: make(map[string]interface{})})
	return true
}

// RemoveNode removes a node and every edge where it is source or target.
//
// Outputs:
//
//	bool - True if the node existed, false otherwise.
func (g *Graph) RemoveNode(name string) bool {
	if !g.store.HasVertex(name) {
		return false
	}
	g.store.RemoveVertex(name)
	return true
}

// HasNode reports whether a node with that name exists.
func (g *Graph) HasNode(name string) bool {
	return g.store.HasVertex(name)
}

// AddEdge creates the directed edge from -> to with the given weight.
//
// Description:
//
//	Both endpoints must already exist. If the ordered pair already has an
//	edge the call succeeds without touching it, so the original weight is
//	kept. lvlath would otherwise append a parallel edge. Weight must be
//	non-negative; the command grammar guarantees it.
//
// Errors:
//
//	ErrFromNotFound - source node doesn't exist
//	ErrToNotFound - target node doesn't exist
func (g *Graph) AddEdge(from, to string, weight int) error {
	if err := g.checkEndpoints(from, to); err != nil {
		return err
	}
	if g.store.HasEdge(from, to) {
		return nil
	}
	g.store.AddEdge(from, to, int64(weight))
	return nil
}

// RemoveEdge removes the edge from -> to.
//
// Description:
//
//	Only endpoint existence is checked: removing an edge that was never
//	there, between two existing nodes, still succeeds.
//
// Errors:
//
//	ErrFromNotFound - source node doesn't exist
//	ErrToNotFound - target node doesn't exist
func (g *Graph) RemoveEdge(from, to string) error {
	if err := g.checkEndpoints(from, to); err != nil {
		return err
	}
	g.store.RemoveEdge(from, to)
	return nil
}

// checkEndpoints reports the first missing endpoint, source first.
func (g *Graph) checkEndpoints(from, to string) error {
	if !g.store.HasVertex(from) {
		return fmt.Errorf("%w: %s", ErrFromNotFound, from)
	}
	if !g.store.HasVertex(to) {
		return fmt.Errorf("%w: %s", ErrToNotFound, to)
	}
	return nil
}

// Edge returns the edge from -> to, if present.
func (g *Graph) Edge(from, to string) (Edge, bool) {
	arcs := g.store.AdjacencyList()[from][to]
	if len(arcs) == 0 {
		return Edge{}, false
	}
	return Edge{From: from, To: to, Weight: int(arcs[0].Weight)}, true
}

// Edges returns all edges sorted by (From, To).
func (g *Graph) Edges() []Edge {
	arcs := g.store.Edges()
	edges := make([]Edge, 0, len(arcs))
	for _, e := range arcs {
		edges = append(edges, Edge{From: e.From.ID, To: e.To.ID, Weight: int(e.Weight)})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// Nodes returns all node names in ascending order.
func (g *Graph) Nodes() []string {
	vertices := g.store.Vertices()
	names := make([]string, 0, len(vertices))
	for _, v := range vertices {
		names = append(names, v.ID)
	}
	sort.Strings(names)
	return names
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.store.Vertices())
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.store.Edges())
}

// Stats returns node and edge counts.
func (g *Graph) Stats() Stats {
	return Stats{Nodes: g.NodeCount(), Edges: g.EdgeCount()}
}
