// elAlign: a high-performance tool for aligning long noisy reads to sequence graphs.
// Copyright (c) 2020-2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elalign/blob/master/LICENSE.txt>.

package utils

import "github.com/google/uuid"

const (
	// ProgramName is "elalign"
	ProgramName = "elalign"

	// ProgramVersion is the version of the elalign binary
	ProgramVersion = "1.0.2"

	// ProgramURL is the repository for the elalign source code
	ProgramURL = "http://github.com/exascience/elalign"
)

// RunID identifies one invocation of the program. It is logged at
// startup and recorded in augmented-graph output so that runs can be
// told apart when outputs are merged.
var RunID = uuid.New().String()
