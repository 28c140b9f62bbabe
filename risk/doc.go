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

// Package risk scores clause text against a lexicon of risk phrases.
//
// A Lexicon is an immutable, ordered table of core.RiskPattern values. The
// built-in table is returned by DefaultLexicon; custom tables can be read
// from YAML with LoadLexicon or ParseLexicon:
//
//	patterns:
//	  - phrase: unlimited liability
//	    severity: CRITICAL
//	    weight: 1.0
//
// A Scanner locates every case-insensitive occurrence of every phrase in a
// clause and derives the clause risk score from the heaviest match.
package risk
