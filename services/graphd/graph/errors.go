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
	"fmt"
)

// Sentinel errors for graph operations.
var (
	// ErrNodeNotFound is the root of every "missing endpoint" failure.
	// Test with errors.Is(err, ErrNodeNotFound).
	ErrNodeNotFound = errors.New("node not found")

	// ErrFromNotFound is returned when the source node of an edge or path
	// query does not exist.
	ErrFromNotFound = fmt.Errorf("%w: source", ErrNodeNotFound)

	// ErrToNotFound is returned when the target node of an edge or path
	// query does not exist.
	ErrToNotFound = fmt.Errorf("%w: target", ErrNodeNotFound)

	// ErrOriginNotFound is returned when the origin of a reachability
	// query does not exist.
	ErrOriginNotFound = fmt.Errorf("%w: origin", ErrNodeNotFound)
)
