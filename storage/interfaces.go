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

package storage

import (
	"context"

	"github.com/poiesic/clausewise/core"
)

// Repository holds the operations shared by every repository.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases repository resources. The backend is closed separately.
	Close() error
}

// ClauseRepository persists clause snapshots. A snapshot is the complete,
// immutable clause collection of one document plus its manifest. Only
// embeddings may change after a snapshot is saved.
type ClauseRepository interface {
	Repository

	// SaveSnapshot stores records under a new snapshot.
	// Assigns the snapshot ID and CreatedAt if unset and fills in the counts.
	// Records must have unique, non-nil IDs.
	SaveSnapshot(ctx context.Context, snapshot *core.Snapshot, records []*core.ClauseRecord) (*core.Snapshot, error)

	// GetSnapshot retrieves a snapshot manifest by ID.
	// Returns ErrNotFound if the snapshot doesn't exist.
	GetSnapshot(ctx context.Context, id core.ID) (*core.Snapshot, error)

	// LoadSnapshot retrieves a manifest and all its records, ordered by Index.
	// Returns ErrNotFound if the snapshot doesn't exist.
	LoadSnapshot(ctx context.Context, id core.ID) (*core.Snapshot, []*core.ClauseRecord, error)

	// ListSnapshots returns every manifest, newest first.
	ListSnapshots(ctx context.Context) ([]*core.Snapshot, error)

	// FindSnapshotByFingerprint returns the newest snapshot of a document with
	// the given content fingerprint.
	// Returns ErrNotFound if no such snapshot exists.
	FindSnapshotByFingerprint(ctx context.Context, fingerprint uint64) (*core.Snapshot, error)

	// DeleteSnapshot removes a snapshot and all of its records.
	// Returns ErrNotFound if the snapshot doesn't exist.
	DeleteSnapshot(ctx context.Context, id core.ID) error

	// GetClause retrieves one clause by ID from any snapshot.
	// Returns ErrNotFound if the clause doesn't exist.
	GetClause(ctx context.Context, id core.ID) (*core.ClauseRecord, error)

	// UpdateEmbeddings replaces the embeddings of existing clauses. Every
	// other field of the stored records is left untouched.
	// Returns ErrNotFound if any clause doesn't exist.
	UpdateEmbeddings(ctx context.Context, records ...*core.ClauseRecord) error

	// GetClausesMissingEmbeddings returns the clauses of a snapshot that have
	// no embedding, ordered by Index.
	GetClausesMissingEmbeddings(ctx context.Context, snapshotID core.ID) ([]*core.ClauseRecord, error)

	// FindSimilar returns clauses of one snapshot whose embedding has cosine
	// similarity >= minSimilarity with vector, highest first, up to limit.
	FindSimilar(ctx context.Context, snapshotID core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.ClauseMatch, error)
}

// ProfileRepository persists candidate profiles for matching.
type ProfileRepository interface {
	Repository

	// AddProfiles stores profiles whose ID is not already present.
	// Existing IDs are skipped, not overwritten.
	// Sets InsertedAt if not already set.
	// Returns only the profiles that were stored.
	AddProfiles(ctx context.Context, profiles ...*core.Profile) ([]*core.Profile, error)

	// GetProfile retrieves a single profile by ID.
	// Returns ErrNotFound if the profile doesn't exist.
	GetProfile(ctx context.Context, id string) (*core.Profile, error)

	// HasProfile reports whether a profile with id exists.
	HasProfile(ctx context.Context, id string) (bool, error)

	// CountProfiles returns the number of stored profiles.
	CountProfiles(ctx context.Context) (int, error)

	// GetAllProfiles returns every profile ordered by ID.
	GetAllProfiles(ctx context.Context) ([]*core.Profile, error)

	// FindSimilar returns profiles whose embedding has cosine similarity
	// >= minSimilarity with vector, highest first, up to limit.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ProfileMatch, error)
}
