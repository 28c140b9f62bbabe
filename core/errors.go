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

import "errors"

// Domain validation errors
var (
	// ErrInvalidClauseRecord indicates a ClauseRecord failed validation.
	ErrInvalidClauseRecord = errors.New("invalid clause record")

	// ErrInvalidProfile indicates a Profile failed validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrInvalidRiskPattern indicates a lexicon entry failed validation.
	ErrInvalidRiskPattern = errors.New("invalid risk pattern")

	// ErrInvalidSeverity indicates an unknown severity tier.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrEmptyContent indicates the clause text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrMissingID indicates a record has no identifier.
	ErrMissingID = errors.New("id cannot be empty")

	// ErrRiskScoreRange indicates a risk score outside [RiskFloor, 1].
	ErrRiskScoreRange = errors.New("risk score out of range")

	// ErrCategoryMismatch indicates the stored category disagrees with the score.
	ErrCategoryMismatch = errors.New("risk category does not match risk score")

	// ErrHighlightOffsets indicates a highlight does not slice its clause exactly.
	ErrHighlightOffsets = errors.New("highlight offsets do not match clause text")

	// ErrTruncatedRecord indicates serialized data ended early.
	ErrTruncatedRecord = errors.New("truncated record data")
)
