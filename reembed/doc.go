// Package reembed backfills clause embeddings in persisted snapshots.
//
// Ingestion keeps clauses whose embedding call failed. Those clauses are
// found lexically but never semantically until a backfill run embeds them
// and writes the vectors back to the snapshot. Batches are embedded with
// retry and exponential backoff, and vectors are normalized for cosine
// similarity search.
package reembed
