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

// Package sources acquires legal documents and turns them into text chunks
// ready for clause segmentation.
//
// Plain text, HTML and PDF files are read with the langchaingo document
// loaders. http(s) URLs are fetched and parsed as HTML, or as PDF when the
// server says so. Extracted text is NFKC-normalized and split into
// overlapping chunks.
package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/text/unicode/norm"
)

// Chunking defaults.
const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 300
	DefaultMaxBytes     = 32 << 20
)

// DefaultSeparators are tried in order when splitting text into chunks.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// Format identifies how a document is parsed.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Loader reads documents from files or URLs.
type Loader struct {
	client       *http.Client
	chunkSize    int
	chunkOverlap int
	maxBytes     int64
	logger       *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// WithHTTPClient sets the client used to fetch URLs.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) error {
		if client == nil {
			return fmt.Errorf("%w: nil http client", ErrInvalidOption)
		}
		l.client = client
		return nil
	}
}

// WithChunking sets the chunk size and overlap in characters.
func WithChunking(size, overlap int) Option {
	return func(l *Loader) error {
		if size <= 0 || overlap < 0 || overlap >= size {
			return fmt.Errorf("%w: chunk size %d, overlap %d", ErrInvalidOption, size, overlap)
		}
		l.chunkSize = size
		l.chunkOverlap = overlap
		return nil
	}
}

// WithMaxBytes caps the size of a fetched or read document.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) error {
		if n <= 0 {
			return fmt.Errorf("%w: max bytes %d", ErrInvalidOption, n)
		}
		l.maxBytes = n
		return nil
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{
		client:       &http.Client{Timeout: 60 * time.Second},
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		maxBytes:     DefaultMaxBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	l.logger = l.logger.With("component", "sources")
	return l, nil
}

// Load reads pathOrURL and returns its text as overlapping chunks.
func (l *Loader) Load(ctx context.Context, pathOrURL string) ([]string, error) {
	text, err := l.Extract(ctx, pathOrURL)
	if err != nil {
		return nil, err
	}
	return l.Split(text)
}

// Extract reads pathOrURL and returns its normalized full text.
func (l *Loader) Extract(ctx context.Context, pathOrURL string) (string, error) {
	var data []byte
	var format Format
	var err error

	if IsURL(pathOrURL) {
		data, format, err = l.fetch(ctx, pathOrURL)
	} else {
		format, err = DetectFormat(pathOrURL)
		if err != nil {
			return "", err
		}
		data, err = l.readFile(pathOrURL)
	}
	if err != nil {
		return "", err
	}

	text, err := Parse(ctx, data, format)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", pathOrURL, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, pathOrURL)
	}

	l.logger.Debug("extracted document", "source", pathOrURL, "format", format, "bytes", len(data), "chars", len(text))
	return text, nil
}

// Split breaks text into overlapping chunks using the recursive character splitter.
func (l *Loader) Split(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(l.chunkSize),
		textsplitter.WithChunkOverlap(l.chunkOverlap),
		textsplitter.WithSeparators(DefaultSeparators),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// Parse extracts normalized text from raw document bytes.
func Parse(ctx context.Context, data []byte, format Format) (string, error) {
	var loader interface {
		Load(ctx context.Context) ([]schema.Document, error)
	}
	switch format {
	case FormatText:
		loader = documentloaders.NewText(bytes.NewReader(data))
	case FormatHTML:
		loader = documentloaders.NewHTML(bytes.NewReader(data))
	case FormatPDF:
		loader = documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	docs, err := loader.Load(ctx)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if content := strings.TrimSpace(d.PageContent); content != "" {
			parts = append(parts, content)
		}
	}
	return Normalize(strings.Join(parts, "\n\n")), nil
}

// Normalize applies NFKC normalization and trims surrounding whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// DetectFormat picks a format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md", "":
		return FormatText, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.readLimited(f, path)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "clausewise/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: %s returned %s", ErrFetchFailed, url, resp.Status)
	}

	data, err := l.readLimited(resp.Body, url)
	if err != nil {
		return nil, "", err
	}

	format := FormatHTML
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(contentType, "application/pdf"), bytes.HasPrefix(data, []byte("%PDF-")):
		format = FormatPDF
	case strings.HasPrefix(contentType, "text/plain"):
		format = FormatText
	}
	return data, format, nil
}

func (l *Loader) readLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrDocumentTooLarge, name, l.maxBytes)
	}
	return data, nil
}
