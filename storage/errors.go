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

import "errors"

// Lookup and write errors.
var (
	// ErrNotFound is returned when a snapshot, clause or profile does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a snapshot, clause id or clause index
	// is written twice.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidUpdate is returned when an embedding update names no clause.
	ErrInvalidUpdate = errors.New("invalid embedding update")
)

// Backend errors.
var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrStorageClosed     = errors.New("storage is closed")
)

// Encoding errors. Both mean the stored bytes cannot be trusted.
var (
	// ErrSerializationFailed wraps a record that does not decode.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrCorruptKey is returned for an index key or location value of the
	// wrong length.
	ErrCorruptKey = errors.New("corrupt index key")
)
