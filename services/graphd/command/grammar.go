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
	"strconv"
	"strings"
	"unicode"
)

// Grammar building blocks. Whitespace between tokens is optional, so
// "ADD EDGE ab 5" reads as an edge a -> b.
const (
	ws     = `\s*`
	nodeRe = `([-a-zA-Z0-9]+)`
	wtRe   = `(\d+)`
)

// shape pairs one anchored pattern with the constructor for its command.
type shape struct {
	pattern *regexp.Regexp
	build   func(groups []string) (Command, bool)
}

// Keyword returns a pattern matching word with its ASCII letters in
// either case. Unlike (?i), it never matches Unicode fold variants such as
// the Kelvin sign for K or the long s for S.
func Keyword(word string) string {
	var b strings.Builder
	for _, r := range word {
		lower, upper := unicode.ToLower(r), unicode.ToUpper(r)
		if r > unicode.MaxASCII || lower == upper {
			b.WriteString(regexp.QuoteMeta(string(r)))
			continue
		}
		b.WriteString("[" + string(upper) + string(lower) + "]")
	}
	return b.String()
}

// line builds a fully anchored pattern from tokens separated by optional
// whitespace. Only keywords fold case; node names are matched as written.
func line(tokens ...string) *regexp.Regexp {
	return regexp.MustCompile(`^` + ws + strings.Join(tokens, ws) + ws + `$`)
}

var (
	kwAdd      = Keyword("ADD")
	kwRemove   = Keyword("REMOVE")
	kwNode     = Keyword("NODE")
	kwEdge     = Keyword("EDGE")
	kwShortest = Keyword("SHORTEST")
	kwPath     = Keyword("PATH")
	kwCloser   = Keyword("CLOSER")
	kwThan     = Keyword("THAN")
)

// shapes are tried in order; the first match wins.
var shapes = []shape{
	{
		pattern: line(kwAdd, kwNode, nodeRe),
		build: func(g []string) (Command, bool) {
			return AddNode{Name: g[1]}, true
		},
	},
	{
		pattern: line(kwAdd, kwEdge, nodeRe, nodeRe, wtRe),
		build: func(g []string) (Command, bool) {
			w, ok := parseWeight(g[3])
			if !ok {
				return nil, false
			}
			return AddEdge{From: g[1], To: g[2], Weight: w}, true
		},
	},
	{
		pattern: line(kwRemove, kwNode, nodeRe),
		build: func(g []string) (Command, bool) {
			return RemoveNode{Name: g[1]}, true
		},
	},
	{
		pattern: line(kwRemove, kwEdge, nodeRe, nodeRe),
		build: func(g []string) (Command, bool) {
			return RemoveEdge{From: g[1], To: g[2]}, true
		},
	},
	{
		pattern: line(kwShortest, kwPath, nodeRe, nodeRe),
		build: func(g []string) (Command, bool) {
			return ShortestPath{From: g[1], To: g[2]}, true
		},
	},
	{
		pattern: line(kwCloser, kwThan, wtRe, nodeRe),
		build: func(g []string) (Command, bool) {
			w, ok := parseWeight(g[1])
			if !ok {
				return nil, false
			}
			return CloserThan{Threshold: w, Origin: g[2]}, true
		},
	},
}

// Parse turns one input line into a Command.
//
// Description:
//
//	Keywords are ASCII case-insensitive, node names are runs of letters, digits
//	and '-', weights are unsigned decimal integers. The whole line must
//	match one shape. Shapes are tried in a fixed order and the first match
//	wins. A shape that matches textually but carries a weight outside the
//	32-bit signed range makes the whole line unparseable; later shapes are
//	not consulted.
//
// Inputs:
//
//	text - One line, without its terminator.
//
// Outputs:
//
//	Command - The parsed command, nil if unparseable.
//	bool - True if the line was understood.
func Parse(text string) (Command, bool) {
	for _, s := range shapes {
		groups := s.pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		return s.build(groups)
	}
	return nil, false
}

// parseWeight parses a base-10 weight into the 32-bit signed range.
func parseWeight(s string) (int, bool) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
