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
)

// ValidateClauseRecord validates a ClauseRecord according to domain rules.
//
// Validation rules:
//   - ID must be set
//   - Text must not be empty
//   - RiskScore must lie in [RiskFloor, 1]
//   - RiskCategory must equal CategoryForScore(RiskScore)
//   - every highlight must slice the clause text exactly
//
// NOT validated:
//   - Embedding (absent until the embedding collaborator succeeds)
func ValidateClauseRecord(record *ClauseRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidClauseRecord)
	}

	if record.ID.IsNil() {
		return fmt.Errorf("%w: %w", ErrInvalidClauseRecord, ErrMissingID)
	}

	if record.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidClauseRecord, ErrEmptyContent)
	}

	if record.RiskScore < RiskFloor || record.RiskScore > 1 {
		return fmt.Errorf("%w: %w: %v", ErrInvalidClauseRecord, ErrRiskScoreRange, record.RiskScore)
	}

	if CategoryForScore(record.RiskScore) != record.RiskCategory {
		return fmt.Errorf("%w: %w: %s for %v", ErrInvalidClauseRecord, ErrCategoryMismatch,
			record.RiskCategory, record.RiskScore)
	}

	for i := range record.Highlights {
		if err := ValidateHighlight(record.Text, &record.Highlights[i]); err != nil {
			return fmt.Errorf("%w: highlight %d: %w", ErrInvalidClauseRecord, i, err)
		}
	}

	return nil
}

// ValidateHighlight checks that a highlight's offsets slice clause to exactly its text.
func ValidateHighlight(clause string, h *RiskHighlight) error {
	if h.Start < 0 || h.Start >= h.End || h.End > len(clause) {
		return fmt.Errorf("%w: [%d,%d) outside clause of length %d", ErrHighlightOffsets, h.Start, h.End, len(clause))
	}
	if clause[h.Start:h.End] != h.Text {
		return fmt.Errorf("%w: %q != %q", ErrHighlightOffsets, clause[h.Start:h.End], h.Text)
	}
	return nil
}

// ValidateRiskPattern validates a single lexicon entry.
func ValidateRiskPattern(p RiskPattern) error {
	if p.Phrase == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRiskPattern, ErrEmptyContent)
	}
	if p.Weight <= 0 || p.Weight > 1 {
		return fmt.Errorf("%w: weight %v for %q must be in (0, 1]", ErrInvalidRiskPattern, p.Weight, p.Phrase)
	}
	if p.Severity < SeverityLow || p.Severity > SeverityCritical {
		return fmt.Errorf("%w: %w: %d", ErrInvalidRiskPattern, ErrInvalidSeverity, p.Severity)
	}
	return nil
}

// ValidateProfile validates a Profile according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Name must not be empty
//   - ExperienceYears and Reputation must not be negative
func ValidateProfile(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}
	if profile.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrMissingID)
	}
	if profile.Name == "" {
		return fmt.Errorf("%w: name: %w", ErrInvalidProfile, ErrEmptyContent)
	}
	if profile.ExperienceYears < 0 {
		return fmt.Errorf("%w: negative experience %v", ErrInvalidProfile, profile.ExperienceYears)
	}
	if profile.Reputation < 0 {
		return fmt.Errorf("%w: negative reputation %v", ErrInvalidProfile, profile.Reputation)
	}
	return nil
}
