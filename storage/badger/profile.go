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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/storage"
)

// ProfileRepository implements storage.ProfileRepository using BadgerDB.
type ProfileRepository struct {
	backend *Backend
}

var _ storage.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(backend *Backend) (*ProfileRepository, error) {
	return &ProfileRepository{
		backend: backend,
	}, nil
}

// Close releases resources. ProfileRepository has no resources to release.
func (r *ProfileRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ProfileRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddProfiles stores the profiles whose ID is not yet present.
func (r *ProfileRepository) AddProfiles(ctx context.Context, profiles ...*core.Profile) ([]*core.Profile, error) {
	for _, profile := range profiles {
		if err := core.ValidateProfile(profile); err != nil {
			return nil, err
		}
	}

	var added []*core.Profile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		seen := make(map[string]struct{}, len(profiles))
		for _, profile := range profiles {
			if _, dup := seen[profile.ID]; dup {
				continue
			}
			seen[profile.ID] = struct{}{}

			key := makeProfileKey(profile.ID)
			exists, err := keyExists(tx, key)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			if profile.InsertedAt.IsZero() {
				profile.InsertedAt = time.Now().UTC()
			}
			if err := tx.Set(key, storage.MarshalProfile(profile)); err != nil {
				return err
			}
			added = append(added, profile)
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	if skipped := len(profiles) - len(added); skipped > 0 {
		r.backend.logger.Debug("skipped existing profiles", "count", skipped)
	}
	return added, nil
}

// GetProfile retrieves a single profile by ID.
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (*core.Profile, error) {
	var result *core.Profile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readProfile(tx, makeProfileKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// HasProfile reports whether a profile with id exists.
func (r *ProfileRepository) HasProfile(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		exists, err = keyExists(tx, makeProfileKey(id))
		return err
	}, false)
	return exists, err
}

// CountProfiles returns the number of stored profiles.
func (r *ProfileRepository) CountProfiles(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(profilePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// GetAllProfiles retrieves all profiles ordered by ID.
func (r *ProfileRepository) GetAllProfiles(ctx context.Context) ([]*core.Profile, error) {
	var results []*core.Profile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(ctx, tx, []byte(profilePrefix+":"), func(_, val []byte) error {
			profile, err := storage.UnmarshalProfile(val)
			if err != nil {
				return err
			}
			results = append(results, profile)
			return nil
		})
	}, false)
	return results, err
}

// FindSimilar finds profiles similar to the given vector.
func (r *ProfileRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ProfileMatch, error) {
	profiles, err := r.GetAllProfiles(ctx)
	if err != nil {
		return nil, err
	}

	ranked := rankBySimilarity(vector, minSimilarity, limit, profiles, func(p *core.Profile) []float32 {
		return p.Embedding
	})
	results := make([]*core.ProfileMatch, len(ranked))
	for i, s := range ranked {
		results[i] = &core.ProfileMatch{Profile: s.value, Score: s.score}
	}
	return results, nil
}

// readProfile reads a profile from the transaction.
func readProfile(tx *badger.Txn, key []byte) (*core.Profile, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var profile *core.Profile
	err = item.Value(func(val []byte) error {
		var err error
		profile, err = storage.UnmarshalProfile(val)
		return err
	})
	return profile, err
}
