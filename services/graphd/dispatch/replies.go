// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"strconv"
	"strings"
)

// Reply lines. These are wire protocol and must not change.
const (
	ReplyNodeAdded     = "NODE ADDED"
	ReplyNodeRemoved   = "NODE REMOVED"
	ReplyEdgeAdded     = "EDGE ADDED"
	ReplyEdgeRemoved   = "EDGE REMOVED"
	ReplyNodeExists    = "ERROR: NODE ALREADY EXISTS"
	ReplyNodeNotFound  = "ERROR: NODE NOT FOUND"
	ReplyNotUnderstood = "SORRY, I DIDN'T UNDERSTAND THAT"
)

// formatDistance renders a shortest-path result as a decimal integer.
func formatDistance(d int64) string {
	return strconv.FormatInt(d, 10)
}

// formatNames renders a sorted name list as a comma-joined line. An empty
// list renders as the empty string.
func formatNames(names []string) string {
	return strings.Join(names, ",")
}
