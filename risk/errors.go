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

package risk

import "errors"

var (
	// ErrEmptyLexicon is returned when a lexicon has no patterns.
	ErrEmptyLexicon = errors.New("lexicon has no patterns")

	// ErrDuplicatePhrase is returned when two patterns share a phrase.
	ErrDuplicatePhrase = errors.New("duplicate lexicon phrase")

	// ErrLexiconRequired is returned when a scanner is built without a lexicon.
	ErrLexiconRequired = errors.New("lexicon required")
)
