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

// Package index builds the lexical and semantic indices over a clause view.
//
// The lexical side is a BM25 Okapi ranking over lowercase whitespace tokens.
// The semantic side is any VectorIndex; MemoryVectorIndex is the in-process
// implementation and storage/badger provides a persisted one.
//
// DualIndex owns both and rebuilds them together from a clauses.View. A
// rebuild is published with one pointer swap, so searches run against a
// consistent pair of indices and the view they were built from.
package index
