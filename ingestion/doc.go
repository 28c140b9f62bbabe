// Package ingestion turns segmented legal text into scored clause records.
//
// The Pipeline type manages the ingestion workflow for a document:
//   - Segmenting each text chunk into clause fragments
//   - Scanning and classifying fragments on a worker pool
//   - Embedding each clause individually, when an embedder is configured
//   - Appending the finished records to a clause store in document order
//
// A fragment that fails at any stage is isolated: it is logged, reported in
// the returned Report and never stops the rest of the document.
package ingestion
