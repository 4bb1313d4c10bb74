// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package command

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"add node", "ADD NODE Mark", AddNode{Name: "Mark"}},
		{"add node lower case", "add node phase2-node-1", AddNode{Name: "phase2-node-1"}},
		{"add node padded", "  Add   Node\tx  ", AddNode{Name: "x"}},
		{"add edge", "ADD EDGE a b 5", AddEdge{From: "a", To: "b", Weight: 5}},
		{"add edge zero weight", "ADD EDGE a b 0", AddEdge{From: "a", To: "b", Weight: 0}},
		{"add edge max weight", "ADD EDGE a b 2147483647", AddEdge{From: "a", To: "b", Weight: 2147483647}},
		{"add edge leading zeros", "ADD EDGE a b 007", AddEdge{From: "a", To: "b", Weight: 7}},
		{"add edge no separator", "ADD EDGE ab 5", AddEdge{From: "a", To: "b", Weight: 5}},
		{"remove node", "REMOVE NODE Mark", RemoveNode{Name: "Mark"}},
		{"remove edge", "remove edge a b", RemoveEdge{From: "a", To: "b"}},
		{"shortest path", "SHORTEST PATH start end", ShortestPath{From: "start", To: "end"}},
		{"closer than", "CLOSER THAN 8 Mark", CloserThan{Threshold: 8, Origin: "Mark"}},
		{"closer than mixed case", "Closer Than 8 Mark", CloserThan{Threshold: 8, Origin: "Mark"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.line)
			require.True(t, ok, "line %q should parse", tt.line)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"HELLO",
		"ADD NODE",
		"ADD NODE a b",
		"ADD NODE a_b",
		"ADD NODE Mark!",
		"ADD EDGE a b",
		"ADD EDGE a b -1",
		"ADD EDGE a b five",
		"ADD EDGE a b 2147483648",
		"ADD EDGE a b 99999999999999999999",
		"REMOVE EDGE a",
		"SHORTEST PATH a",
		"SHORTEST PATH a b c",
		"CLOSER THAN Mark 8",
		"CLOSER THAN 2147483648 Mark",
		"please ADD NODE a",
		"BYE MATE!",
		"ADD NODE \u212A",
		"ADD NODE \u017Fam",
		"\u017FHORTEST PATH a b",
		"ADD NODE caf\u00e9",
		"REMOVE EDGE \u212A a",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			cmd, ok := Parse(line)
			assert.False(t, ok)
			assert.Nil(t, cmd)
		})
	}
}

func TestKeyword(t *testing.T) {
	re := regexp.MustCompile(`^` + Keyword("SHORTEST") + `$`)
	for _, ok := range []string{"SHORTEST", "shortest", "ShOrTeSt"} {
		assert.True(t, re.MatchString(ok), ok)
	}
	assert.False(t, re.MatchString("\u017FHORTEST"))

	kelvin := regexp.MustCompile(`^` + Keyword("K") + `$`)
	assert.True(t, kelvin.MatchString("k"))
	assert.False(t, kelvin.MatchString("\u212A"))

	assert.Equal(t, `[Ii]'[Mm]`, Keyword("I'M"))
}

func TestParse_NodeNamesKeepCase(t *testing.T) {
	cmd, ok := Parse("add node MixedCase")
	require.True(t, ok)
	assert.Equal(t, AddNode{Name: "MixedCase"}, cmd)
}

func TestParse_CanonicalRoundTrip(t *testing.T) {
	cmds := []Command{
		AddNode{Name: "a"},
		AddEdge{From: "a", To: "b-2", Weight: 42},
		RemoveNode{Name: "a"},
		RemoveEdge{From: "a", To: "b"},
		ShortestPath{From: "x", To: "y"},
		CloserThan{Threshold: 3, Origin: "o"},
	}

	for _, c := range cmds {
		t.Run(c.Kind(), func(t *testing.T) {
			got, ok := Parse(c.String())
			require.True(t, ok, "canonical form %q should parse", c.String())
			assert.Equal(t, c, got)
		})
	}
}

func TestCommand_Kind(t *testing.T) {
	assert.Equal(t, KindAddNode, AddNode{}.Kind())
	assert.Equal(t, KindAddEdge, AddEdge{}.Kind())
	assert.Equal(t, KindRemoveNode, RemoveNode{}.Kind())
	assert.Equal(t, KindRemoveEdge, RemoveEdge{}.Kind())
	assert.Equal(t, KindShortestPath, ShortestPath{}.Kind())
	assert.Equal(t, KindCloserThan, CloserThan{}.Kind())
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "ADD EDGE a b 5", AddEdge{From: "a", To: "b", Weight: 5}.String())
	assert.Equal(t, "CLOSER THAN 8 Mark", CloserThan{Threshold: 8, Origin: "Mark"}.String())
}
