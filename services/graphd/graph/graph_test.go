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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Nodes
// =============================================================================

func TestAddNode_Duplicate(t *testing.T) {
	g := New()

	assert.True(t, g.AddNode("Mark"))
	assert.False(t, g.AddNode("Mark"), "second add must report failure")
	assert.Equal(t, []string{"Mark"}, g.Nodes())
	assert.Equal(t, 1, g.NodeCount())
}

func TestRemoveNode(t *testing.T) {
	g := New()

	assert.False(t, g.RemoveNode("ghost"))

	require.True(t, g.AddNode("a"))
	assert.True(t, g.RemoveNode("a"))
	assert.False(t, g.HasNode("a"))
	assert.False(t, g.RemoveNode("a"))
}

func TestRemoveNode_RemovesIncidentEdges(t *testing.T) {
	g := New()
	for _, n := range []string{"a", "b", "c"} {
		require.True(t, g.AddNode(n))
	}
	require.NoError(t, g.AddEdge("a", "b", 1))
	require.NoError(t, g.AddEdge("b", "a", 2))
	require.NoError(t, g.AddEdge("c", "a", 3))
	require.NoError(t, g.AddEdge("b", "c", 4))
	require.Equal(t, 4, g.EdgeCount())

	require.True(t, g.RemoveNode("a"))

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []Edge{{From: "b", To: "c", Weight: 4}}, g.Edges())

	// Re-adding the node must not resurrect old edges.
	require.True(t, g.AddNode("a"))
	_, ok := g.Edge("b", "a")
	assert.False(t, ok)
	_, ok = g.Edge("c", "a")
	assert.False(t, ok)
}

func TestRemoveNode_SelfLoop(t *testing.T) {
	g := New()
	require.True(t, g.AddNode("a"))
	require.True(t, g.AddNode("b"))
	require.NoError(t, g.AddEdge("a", "a", 1))
	require.NoError(t, g.AddEdge("a", "b", 1))
	require.Equal(t, 2, g.EdgeCount())

	require.True(t, g.RemoveNode("a"))
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, Stats{Nodes: 1, Edges: 0}, g.Stats())
}

// =============================================================================
// Edges
// =============================================================================

func TestAddEdge_MissingEndpoints(t *testing.T) {
	g := New()
	require.True(t, g.AddNode("a"))

	err := g.AddEdge("x", "a", 1)
	assert.ErrorIs(t, err, ErrFromNotFound)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	err = g.AddEdge("a", "y", 1)
	assert.ErrorIs(t, err, ErrToNotFound)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	assert.False(t, errors.Is(err, ErrFromNotFound))

	assert.Equal(t, 0, g.EdgeCount())
}

func TestAddEdge_ExistingPairKeepsWeight(t *testing.T) {
	g := New()
	require.True(t, g.AddNode("a"))
	require.True(t, g.AddNode("b"))

	require.NoError(t, g.AddEdge("a", "b", 5))
	require.NoError(t, g.AddEdge("a", "b", 1), "re-adding an edge reports success")

	e, ok := g.Edge("a", "b")
	require.True(t, ok)
	assert.Equal(t, 5, e.Weight)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestRemoveEdge(t *testing.T) {
	g := New()
	require.True(t, g.AddNode("a"))
	require.True(t, g.AddNode("b"))
	require.NoError(t, g.AddEdge("a", "b", 5))

	require.NoError(t, g.RemoveEdge("a", "b"))
	_, ok := g.Edge("a", "b")
	assert.False(t, ok)
	assert.Equal(t, 0, g.EdgeCount())
}

func TestRemoveEdge_NoEdgeBetweenExistingNodes(t *testing.T) {
	g := New()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		require.True(t, g.AddNode(n))
	}
	require.NoError(t, g.AddEdge("a", "b", 1))

	for _, from := range names {
		for _, to := range names {
			if from == "a" && to == "b" {
				continue
			}
			assert.NoError(t, g.RemoveEdge(from, to), "%s -> %s", from, to)
		}
	}
	assert.Equal(t, 1, g.EdgeCount())
}

func TestRemoveEdge_MissingEndpoints(t *testing.T) {
	g := New()
	require.True(t, g.AddNode("a"))

	assert.ErrorIs(t, g.RemoveEdge("x", "a"), ErrFromNotFound)
	assert.ErrorIs(t, g.RemoveEdge("a", "y"), ErrToNotFound)
}

func TestEdge_String(t *testing.T) {
	assert.Equal(t, "a->b:3", Edge{From: "a", To: "b", Weight: 3}.String())
}
