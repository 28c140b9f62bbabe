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

// Package clauses holds the in-memory, append-only clause collection.
//
// Readers never lock: every mutation builds a new immutable view and
// publishes it with a single pointer swap, so a reader sees either the view
// before a mutation or the one after it.
package clauses

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/poiesic/clausewise/core"
)

var (
	// ErrDuplicateID is returned when a record id is already present.
	ErrDuplicateID = errors.New("duplicate clause id")

	// ErrNilRecord is returned when a nil record is appended.
	ErrNilRecord = errors.New("nil clause record")

	// ErrUnknownID is returned when updating a record that is not in the store.
	ErrUnknownID = errors.New("unknown clause id")
)

// View is an immutable snapshot of the store contents in insertion order.
type View struct {
	records []*core.ClauseRecord
	byID    map[core.ID]int
}

var emptyView = &View{byID: map[core.ID]int{}}

// Len returns the number of records.
func (v *View) Len() int {
	return len(v.records)
}

// At returns the record at insertion position i.
func (v *View) At(i int) *core.ClauseRecord {
	return v.records[i]
}

// Get returns the record with id.
func (v *View) Get(id core.ID) (*core.ClauseRecord, bool) {
	i, ok := v.byID[id]
	if !ok {
		return nil, false
	}
	return v.records[i], true
}

// Position returns the insertion position of id.
func (v *View) Position(id core.ID) (int, bool) {
	i, ok := v.byID[id]
	return i, ok
}

// Records returns the records in insertion order. The slice is a copy; the
// records themselves are shared and must not be modified.
func (v *View) Records() []*core.ClauseRecord {
	return append([]*core.ClauseRecord(nil), v.records...)
}

// Stats aggregates the view.
func (v *View) Stats() Stats {
	return ComputeStats(v.records)
}

// Store is an append-only clause collection. Writers are serialized; readers
// work from a View and never block.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[View]
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(emptyView)
	return s
}

// Snapshot returns the current view.
func (s *Store) Snapshot() *View {
	return s.current.Load()
}

// Len returns the number of records in the current view.
func (s *Store) Len() int {
	return s.Snapshot().Len()
}

// Get returns the record with id from the current view.
func (s *Store) Get(id core.ID) (*core.ClauseRecord, bool) {
	return s.Snapshot().Get(id)
}

// Stats aggregates the current view.
func (s *Store) Stats() Stats {
	return s.Snapshot().Stats()
}

// Append adds records after the existing ones, in the given order. Either all
// records are appended or none are.
func (s *Store) Append(records ...*core.ClauseRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	next, err := extend(old, records)
	if err != nil {
		return err
	}
	s.current.Store(next)
	return nil
}

// Replace swaps the whole collection for records. It is the only way to
// remove clauses.
func (s *Store) Replace(records []*core.ClauseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := extend(emptyView, records)
	if err != nil {
		return err
	}
	s.current.Store(next)
	return nil
}

// Update swaps individual records for new values with the same ids, keeping
// positions. It is used to attach embeddings without mutating shared records.
func (s *Store) Update(records ...*core.ClauseRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	next := &View{
		records: append([]*core.ClauseRecord(nil), old.records...),
		byID:    old.byID,
	}
	for _, r := range records {
		if r == nil {
			return ErrNilRecord
		}
		i, ok := old.byID[r.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownID, r.ID)
		}
		next.records[i] = r
	}
	s.current.Store(next)
	return nil
}

func extend(old *View, records []*core.ClauseRecord) (*View, error) {
	next := &View{
		records: make([]*core.ClauseRecord, 0, len(old.records)+len(records)),
		byID:    make(map[core.ID]int, len(old.records)+len(records)),
	}
	next.records = append(next.records, old.records...)
	for id, i := range old.byID {
		next.byID[id] = i
	}
	for _, r := range records {
		if r == nil {
			return nil, ErrNilRecord
		}
		if _, dup := next.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		next.byID[r.ID] = len(next.records)
		next.records = append(next.records, r)
	}
	return next, nil
}
