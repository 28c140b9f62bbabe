// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package risk

import (
	"slices"
	"strings"

	"github.com/poiesic/clausewise/core"
)

// DefaultMarker wraps highlighted spans in plain-text reports.
const DefaultMarker = "***"

// Mark renders clause with each highlighted span wrapped in before and after.
// Overlapping or touching spans are merged into one. Highlights whose offsets
// do not fit the clause are ignored.
func Mark(clause string, highlights []core.RiskHighlight, before, after string) string {
	type span struct{ start, end int }

	spans := make([]span, 0, len(highlights))
	for _, h := range highlights {
		if h.Start < 0 || h.Start >= h.End || h.End > len(clause) {
			continue
		}
		spans = append(spans, span{h.Start, h.End})
	}
	if len(spans) == 0 {
		return clause
	}

	slices.SortFunc(spans, func(a, b span) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return a.end - b.end
	})

	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			last.end = max(last.end, sp.end)
			continue
		}
		merged = append(merged, sp)
	}

	var b strings.Builder
	b.Grow(len(clause) + len(merged)*(len(before)+len(after)))
	prev := 0
	for _, sp := range merged {
		b.WriteString(clause[prev:sp.start])
		b.WriteString(before)
		b.WriteString(clause[sp.start:sp.end])
		b.WriteString(after)
		prev = sp.end
	}
	b.WriteString(clause[prev:])
	return b.String()
}
