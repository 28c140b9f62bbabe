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

package sources

import "errors"

var (
	// ErrUnsupportedFormat indicates a document type no loader can read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument indicates a document with no extractable text.
	ErrEmptyDocument = errors.New("document contains no text")

	// ErrFetchFailed indicates a URL could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrDocumentTooLarge indicates a document over the configured size cap.
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrInvalidOption indicates a bad loader option.
	ErrInvalidOption = errors.New("invalid loader option")
)
