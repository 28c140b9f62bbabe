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

// Package storage provides the persistence abstraction for clausewise.
//
// This package defines repository interfaces that decouple the storage
// implementation from ingestion and retrieval. The only state clausewise
// writes is a clause snapshot (one document's clauses, their risk
// assessment and embeddings) and the profile collection used for matching.
//
// # Architecture
//
//   - Repository: operations shared by every repository (transactions, Close)
//   - ClauseRepository: snapshot persistence, embedding updates and
//     per-snapshot vector search
//   - ProfileRepository: skip-existing profile insertion and vector search
//
// Records are serialized with the MUS serializers in package core; see
// serialization.go.
//
// # Usage
//
//	clauseRepo, profileRepo, backend, err := badger.NewRepositories("/path/to/db", slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// Use in tests with in-memory storage:
//
//	clauseRepo, profileRepo, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
