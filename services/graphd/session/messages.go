// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianGraph/services/graphd/command"
)

// AnonymousName is bound when the client's first line is not a valid
// introduction.
const AnonymousName = "anonymous"

var (
	// introductionPattern matches "HI, I'M <name>". The name is free text
	// to the end of the line.
	introductionPattern = regexp.MustCompile(
		`^\s*` + command.Keyword("HI") + `\s*,\s*` + command.Keyword("I'M") + `\s*(.*)$`)

	// farewellPattern matches "BYE MATE!" with any spacing and ASCII case.
	farewellPattern = regexp.MustCompile(
		`^\s*` + command.Keyword("BYE") + `\s*` + command.Keyword("MATE") + `\s*!\s*$`)
)

// greeting is the first line the server sends.
func greeting(id string) string {
	return "HI, I'M " + id
}

// acknowledgement answers the client's introduction.
func acknowledgement(name string) string {
	return "HI " + name
}

// farewell closes the session with its duration in whole milliseconds.
func farewell(name string, elapsed time.Duration) string {
	return fmt.Sprintf("BYE %s, WE SPOKE FOR %d MS", name, elapsed.Milliseconds())
}

// parseIntroduction extracts the client's name.
//
// Outputs:
//
//	string - The trimmed name, or AnonymousName.
//	bool - True if the line was a valid introduction with a non-empty name.
func parseIntroduction(line string) (string, bool) {
	m := introductionPattern.FindStringSubmatch(line)
	if m == nil {
		return AnonymousName, false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return AnonymousName, false
	}
	return name, true
}

// isFarewell reports whether the line ends the session.
func isFarewell(line string) bool {
	return farewellPattern.MatchString(line)
}
