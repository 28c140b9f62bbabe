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

package core

import (
	"fmt"
	"strings"
)

// Severity is a risk tier. Higher values are more severe.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Risk score thresholds.
const (
	RiskFloor         = 0.3
	MediumThreshold   = 0.50
	HighThreshold     = 0.70
	CriticalThreshold = 0.85
)

// Severities lists every tier from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityLow:
		return "LOW"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity converts a tier name (any case) to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical, nil
	case "HIGH":
		return SeverityHigh, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "LOW":
		return SeverityLow, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// CategoryForScore maps a risk score onto its tier.
func CategoryForScore(score float64) Severity {
	switch {
	case score >= CriticalThreshold:
		return SeverityCritical
	case score >= HighThreshold:
		return SeverityHigh
	case score >= MediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Provenance records which indices produced a retrieval candidate.
type Provenance uint8

const (
	ProvenanceLexical Provenance = 1 << iota
	ProvenanceSemantic
)

// Has reports whether all bits of other are set.
func (p Provenance) Has(other Provenance) bool {
	return p&other == other && other != 0
}

func (p Provenance) String() string {
	switch {
	case p.Has(ProvenanceSemantic | ProvenanceLexical):
		return "semantic+lexical"
	case p.Has(ProvenanceSemantic):
		return "semantic"
	case p.Has(ProvenanceLexical):
		return "lexical"
	default:
		return "none"
	}
}
