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
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID uniquely identifies a clause or a snapshot for the lifetime of the store.
type ID uuid.UUID

// NilID is the zero ID.
var NilID ID

// NewID returns a fresh random ID. IDs are never reused.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical string form of an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilID, err
	}
	return ID(u), nil
}

// String returns the canonical hyphenated form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is unset.
func (id ID) IsNil() bool {
	return id == NilID
}

// FingerprintFromContent hashes document text with BLAKE2b into a 64-bit value.
// Identical normalized text always yields the same fingerprint, which lets a
// previously ingested document be found without segmenting it again.
func FingerprintFromContent(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// RiskPattern is a single lexicon entry.
type RiskPattern struct {
	Phrase   string
	Severity Severity
	Weight   float64 // in (0, 1]
}

// RiskHighlight is one located occurrence of a risk phrase inside a clause.
// Start and End are byte offsets into the owning clause text.
type RiskHighlight struct {
	Text     string
	Start    int
	End      int
	RiskType string // the lexicon phrase that matched
	Severity Severity
	Score    float64
}

// ClauseRecord is a segmented, scored unit of a legal document.
// Risk fields are set once at ingestion and never change afterwards.
type ClauseRecord struct {
	ID           ID
	Index        int // position of the clause within its document
	Text         string
	Section      string
	RiskScore    float64
	RiskCategory Severity
	Highlights   []RiskHighlight
	Embedding    []float32 // nil when the embedding collaborator failed or never ran
}

// HasEmbedding reports whether the record carries an embedding vector.
func (c *ClauseRecord) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// WithEmbedding returns a copy of the record with the embedding attached.
// The receiver is left untouched so records already shared with readers stay immutable.
func (c *ClauseRecord) WithEmbedding(vector []float32) *ClauseRecord {
	clone := *c
	clone.Embedding = vector
	return &clone
}

// Profile is a candidate that can be matched against a free-text case description.
type Profile struct {
	ID              string
	Name            string
	Summary         string
	Expertise       []string
	Achievements    string
	ExperienceYears float64
	Reputation      float64
	Embedding       []float32
	InsertedAt      time.Time
}

// HasEmbedding reports whether the profile carries an embedding vector.
func (p *Profile) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// Snapshot describes a persisted clause collection for one document.
type Snapshot struct {
	ID            ID
	Source        string
	Fingerprint   uint64
	ClauseCount   int
	EmbeddedCount int
	CreatedAt     time.Time
}

// ClauseMatch is a clause returned by vector similarity search.
type ClauseMatch struct {
	Record *ClauseRecord
	Score  float32
}

// ProfileMatch is a profile returned by vector similarity search.
type ProfileMatch struct {
	Profile *Profile
	Score   float32
}

// CandidateResult is one ranked retrieval or matching result.
// It is recomputed per query and never persisted.
type CandidateResult struct {
	ID            string
	Clause        *ClauseRecord
	Profile       *Profile
	Score         float64
	Provenance    Provenance
	LexicalScore  float64
	SemanticScore float64
	Breakdown     map[string]float64
}
