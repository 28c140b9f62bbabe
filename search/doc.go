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

// Package search provides hybrid lexical and semantic retrieval over clauses.
//
// The Retriever type queries both halves of an index.DualIndex:
//   - Semantic search over clause embeddings, when an embedder is configured
//   - BM25 lexical search over clause text
//
// Candidates from both are merged by clause id, semantic first, and ranked
// by a Policy. RiskFirst orders candidates by risk score alone; Blended
// combines similarity, risk and lexical relevance with a scoring.Scorer.
// A failing sub-index degrades the result instead of failing the query.
package search
