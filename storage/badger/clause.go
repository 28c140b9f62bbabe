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

package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/storage"
)

// ClauseRepository implements storage.ClauseRepository using BadgerDB.
type ClauseRepository struct {
	backend *Backend
}

var _ storage.ClauseRepository = (*ClauseRepository)(nil)

// NewClauseRepository creates a new ClauseRepository.
func NewClauseRepository(backend *Backend) (*ClauseRepository, error) {
	return &ClauseRepository{
		backend: backend,
	}, nil
}

// Close releases resources. ClauseRepository has no resources to release.
func (r *ClauseRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ClauseRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveSnapshot stores records under a new snapshot manifest.
func (r *ClauseRepository) SaveSnapshot(ctx context.Context, snapshot *core.Snapshot, records []*core.ClauseRecord) (*core.Snapshot, error) {
	manifest := core.Snapshot{}
	if snapshot != nil {
		manifest = *snapshot
	}
	if manifest.ID.IsNil() {
		manifest.ID = core.NewID()
	}
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now().UTC()
	}
	manifest.ClauseCount = len(records)
	manifest.EmbeddedCount = 0

	seenIDs := make(map[core.ID]struct{}, len(records))
	seenIndexes := make(map[int]struct{}, len(records))
	for _, record := range records {
		if err := core.ValidateClauseRecord(record); err != nil {
			return nil, err
		}
		if _, dup := seenIDs[record.ID]; dup {
			return nil, fmt.Errorf("%w: clause %s", storage.ErrDuplicateKey, record.ID)
		}
		if _, dup := seenIndexes[record.Index]; dup {
			return nil, fmt.Errorf("%w: clause index %d", storage.ErrDuplicateKey, record.Index)
		}
		seenIDs[record.ID] = struct{}{}
		seenIndexes[record.Index] = struct{}{}
		if record.HasEmbedding() {
			manifest.EmbeddedCount++
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		manifestKey := makeSnapshotKey(manifest.ID)
		if exists, err := keyExists(tx, manifestKey); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: snapshot %s", storage.ErrDuplicateKey, manifest.ID)
		}

		for _, record := range records {
			idKey := makeClauseIDKey(record.ID)
			if exists, err := keyExists(tx, idKey); err != nil {
				return err
			} else if exists {
				return fmt.Errorf("%w: clause %s", storage.ErrDuplicateKey, record.ID)
			}

			loc := clauseLocation{snapshot: manifest.ID, index: record.Index}
			if err := tx.Set(makeSnapshotClauseKey(manifest.ID, record.Index), storage.MarshalClauseRecord(record)); err != nil {
				return err
			}
			if err := tx.Set(idKey, marshalLocation(loc)); err != nil {
				return err
			}
		}

		if err := tx.Set(manifestKey, storage.MarshalSnapshot(&manifest)); err != nil {
			return err
		}
		if err := tx.Set(makeFingerprintKey(&manifest), nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	r.backend.logger.Debug("saved snapshot", "id", manifest.ID, "clauses", manifest.ClauseCount, "embedded", manifest.EmbeddedCount)
	return &manifest, nil
}

// GetSnapshot retrieves a snapshot manifest by ID.
func (r *ClauseRepository) GetSnapshot(ctx context.Context, id core.ID) (*core.Snapshot, error) {
	var result *core.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSnapshot(tx, id)
		return err
	}, false)
	return result, err
}

// LoadSnapshot retrieves a manifest and all of its records in document order.
func (r *ClauseRepository) LoadSnapshot(ctx context.Context, id core.ID) (*core.Snapshot, []*core.ClauseRecord, error) {
	var manifest *core.Snapshot
	var records []*core.ClauseRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		manifest, err = readSnapshot(tx, id)
		if err != nil {
			return err
		}
		records, err = readSnapshotClauses(ctx, tx, id)
		return err
	}, false)
	if err != nil {
		return nil, nil, err
	}
	return manifest, records, nil
}

// ListSnapshots returns every manifest, newest first.
func (r *ClauseRepository) ListSnapshots(ctx context.Context) ([]*core.Snapshot, error) {
	var results []*core.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(ctx, tx, []byte(snapshotPrefix+":"), func(_, val []byte) error {
			snapshot, err := storage.UnmarshalSnapshot(val)
			if err != nil {
				return err
			}
			results = append(results, snapshot)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.Snapshot) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return results, nil
}

// FindSnapshotByFingerprint returns the newest snapshot with the given fingerprint.
func (r *ClauseRepository) FindSnapshotByFingerprint(ctx context.Context, fingerprint uint64) (*core.Snapshot, error) {
	var result *core.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var newest core.ID
		err := scanPrefix(ctx, tx, makePartialFingerprintKey(fingerprint), func(key, _ []byte) error {
			// Keys sort by creation time, so the last one wins
			id, err := idFromKeySuffix(key)
			if err != nil {
				return err
			}
			newest = id
			return nil
		})
		if err != nil {
			return err
		}
		if newest.IsNil() {
			return storage.ErrNotFound
		}
		result, err = readSnapshot(tx, newest)
		return err
	}, false)
	return result, err
}

// DeleteSnapshot removes a snapshot, its records and its index entries.
func (r *ClauseRepository) DeleteSnapshot(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		manifest, err := readSnapshot(tx, id)
		if err != nil {
			return err
		}
		records, err := readSnapshotClauses(ctx, tx, id)
		if err != nil {
			return err
		}

		for _, record := range records {
			if err := tx.Delete(makeSnapshotClauseKey(id, record.Index)); err != nil {
				return err
			}
			if err := tx.Delete(makeClauseIDKey(record.ID)); err != nil {
				return err
			}
		}
		if err := tx.Delete(makeFingerprintKey(manifest)); err != nil {
			return err
		}
		if err := tx.Delete(makeSnapshotKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetClause retrieves a single clause by ID.
func (r *ClauseRepository) GetClause(ctx context.Context, id core.ID) (*core.ClauseRecord, error) {
	var result *core.ClauseRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		_, result, err = readClauseByID(tx, id)
		return err
	}, false)
	return result, err
}

// UpdateEmbeddings replaces the stored embeddings of existing clauses and
// refreshes the embedded count of every snapshot touched.
func (r *ClauseRepository) UpdateEmbeddings(ctx context.Context, records ...*core.ClauseRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		delta := make(map[core.ID]int)
		for _, record := range records {
			if record == nil {
				return fmt.Errorf("%w: nil clause record", storage.ErrInvalidUpdate)
			}
			loc, stored, err := readClauseByID(tx, record.ID)
			if err != nil {
				return fmt.Errorf("clause %s: %w", record.ID, err)
			}

			had := stored.HasEmbedding()
			updated := stored.WithEmbedding(record.Embedding)
			if err := tx.Set(makeSnapshotClauseKey(loc.snapshot, loc.index), storage.MarshalClauseRecord(updated)); err != nil {
				return err
			}

			switch {
			case !had && updated.HasEmbedding():
				delta[loc.snapshot]++
			case had && !updated.HasEmbedding():
				delta[loc.snapshot]--
			}
		}

		for snapshotID, d := range delta {
			if d == 0 {
				continue
			}
			manifest, err := readSnapshot(tx, snapshotID)
			if err != nil {
				return err
			}
			manifest.EmbeddedCount += d
			if err := tx.Set(makeSnapshotKey(snapshotID), storage.MarshalSnapshot(manifest)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetClausesMissingEmbeddings returns the clauses of a snapshot without an embedding.
func (r *ClauseRepository) GetClausesMissingEmbeddings(ctx context.Context, snapshotID core.ID) ([]*core.ClauseRecord, error) {
	var results []*core.ClauseRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readSnapshot(tx, snapshotID); err != nil {
			return err
		}
		records, err := readSnapshotClauses(ctx, tx, snapshotID)
		if err != nil {
			return err
		}
		for _, record := range records {
			if !record.HasEmbedding() {
				results = append(results, record)
			}
		}
		return nil
	}, false)
	return results, err
}

// FindSimilar finds clauses of a snapshot similar to the given vector.
func (r *ClauseRepository) FindSimilar(ctx context.Context, snapshotID core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.ClauseMatch, error) {
	var records []*core.ClauseRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		records, err = readSnapshotClauses(ctx, tx, snapshotID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	ranked := rankBySimilarity(vector, minSimilarity, limit, records, func(c *core.ClauseRecord) []float32 {
		return c.Embedding
	})
	results := make([]*core.ClauseMatch, len(ranked))
	for i, s := range ranked {
		results[i] = &core.ClauseMatch{Record: s.value, Score: s.score}
	}
	return results, nil
}

// Helper methods

// keyExists reports whether key is present in the transaction's view.
func keyExists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// readSnapshot reads a snapshot manifest, returning ErrNotFound if absent.
func readSnapshot(tx *badger.Txn, id core.ID) (*core.Snapshot, error) {
	item, err := tx.Get(makeSnapshotKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var snapshot *core.Snapshot
	err = item.Value(func(val []byte) error {
		var err error
		snapshot, err = storage.UnmarshalSnapshot(val)
		return err
	})
	return snapshot, err
}

// readSnapshotClauses reads every clause of a snapshot in key order, which is document order.
func readSnapshotClauses(ctx context.Context, tx *badger.Txn, snapshotID core.ID) ([]*core.ClauseRecord, error) {
	var records []*core.ClauseRecord
	err := scanPrefix(ctx, tx, makePartialSnapshotClauseKey(snapshotID), func(_, val []byte) error {
		record, err := storage.UnmarshalClauseRecord(val)
		if err != nil {
			return err
		}
		records = append(records, record)
		return nil
	})
	return records, err
}

// readClauseByID resolves a clause through the clause ID index.
func readClauseByID(tx *badger.Txn, id core.ID) (clauseLocation, *core.ClauseRecord, error) {
	item, err := tx.Get(makeClauseIDKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return clauseLocation{}, nil, storage.ErrNotFound
		}
		return clauseLocation{}, nil, err
	}

	var loc clauseLocation
	err = item.Value(func(val []byte) error {
		var err error
		loc, err = unmarshalLocation(val)
		return err
	})
	if err != nil {
		return clauseLocation{}, nil, err
	}

	item, err = tx.Get(makeSnapshotClauseKey(loc.snapshot, loc.index))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return clauseLocation{}, nil, storage.ErrNotFound
		}
		return clauseLocation{}, nil, err
	}

	var record *core.ClauseRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalClauseRecord(val)
		return err
	})
	return loc, record, err
}
