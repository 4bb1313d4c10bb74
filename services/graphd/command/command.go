// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package command defines the typed graph commands and the line grammar
// that produces them.
//
// Command is a closed set: the six concrete types in this file are the only
// implementations, enforced by an unexported marker method. Consumers switch
// on the concrete type.
package command

import (
	"fmt"
)

// Kind values, stable across releases. Used as metric and log labels.
const (
	KindAddNode      = "add_node"
	KindAddEdge      = "add_edge"
	KindRemoveNode   = "remove_node"
	KindRemoveEdge   = "remove_edge"
	KindShortestPath = "shortest_path"
	KindCloserThan   = "closer_than"
)

// Command is one parsed graph command.
type Command interface {
	// Kind returns the stable snake_case name of the command.
	Kind() string

	// String renders the command in its canonical upper-case form. Parsing
	// the result yields an equal command.
	String() string

	command()
}

// AddNode inserts a node.
type AddNode struct {
	Name string
}

// AddEdge inserts a directed edge From -> To.
type AddEdge struct {
	From   string
	To     string
	Weight int
}

// RemoveNode deletes a node and its incident edges.
type RemoveNode struct {
	Name string
}

// RemoveEdge deletes the directed edge From -> To.
type RemoveEdge struct {
	From string
	To   string
}

// ShortestPath asks for the minimum path weight From -> To.
type ShortestPath struct {
	From string
	To   string
}

// CloserThan asks for every node strictly closer than Threshold to Origin.
type CloserThan struct {
	Threshold int
	Origin    string
}

func (AddNode) command()      {}
func (AddEdge) command()      {}
func (RemoveNode) command()   {}
func (RemoveEdge) command()   {}
func (ShortestPath) command() {}
func (CloserThan) command()   {}

func (AddNode) Kind() string      { return KindAddNode }
func (AddEdge) Kind() string      { return KindAddEdge }
func (RemoveNode) Kind() string   { return KindRemoveNode }
func (RemoveEdge) Kind() string   { return KindRemoveEdge }
func (ShortestPath) Kind() string { return KindShortestPath }
func (CloserThan) Kind() string   { return KindCloserThan }

func (c AddNode) String() string {
	return "ADD NODE " + c.Name
}

func (c AddEdge) String() string {
	return fmt.Sprintf("ADD EDGE %s %s %d", c.From, c.To, c.Weight)
}

func (c RemoveNode) String() string {
	return "REMOVE NODE " + c.Name
}

func (c RemoveEdge) String() string {
	return fmt.Sprintf("REMOVE EDGE %s %s", c.From, c.To)
}

func (c ShortestPath) String() string {
	return fmt.Sprintf("SHORTEST PATH %s %s", c.From, c.To)
}

func (c CloserThan) String() string {
	return fmt.Sprintf("CLOSER THAN %d %s", c.Threshold, c.Origin)
}
