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

import "log/slog"

// NewRepositories opens (or creates) a database directory and returns clause
// and profile repositories over it.
// Caller must close both repos and backend when done.
func NewRepositories(path string, logger *slog.Logger) (*ClauseRepository, *ProfileRepository, *Backend, error) {
	backend, err := OpenBackend(path, false, WithBackendLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	return newRepositories(backend)
}

// NewMemoryRepositories creates in-memory clause and profile repositories for testing.
// Returns clauseRepo, profileRepo, backend, and error.
// Caller must close both repos and backend when done.
func NewMemoryRepositories() (*ClauseRepository, *ProfileRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}
	return newRepositories(backend)
}

func newRepositories(backend *Backend) (*ClauseRepository, *ProfileRepository, *Backend, error) {
	clauseRepo, err := NewClauseRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	profileRepo, err := NewProfileRepository(backend)
	if err != nil {
		clauseRepo.Close()
		backend.Close()
		return nil, nil, nil, err
	}

	return clauseRepo, profileRepo, backend, nil
}
