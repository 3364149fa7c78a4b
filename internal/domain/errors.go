package domain

import "errors"

// Error kinds. Adapters wrap the underlying cause with one of these so callers
// can classify failures with errors.Is.
var (
	// ErrFetch indicates a network failure, timeout or non-2xx status while downloading.
	ErrFetch = errors.New("fetch failed")

	// ErrExtraction indicates malformed or undecodable document content.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding indicates the embedding strategy could not produce vectors.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndex indicates an upsert or query against the vector index failed.
	ErrIndex = errors.New("vector index failure")

	// ErrGeneration indicates the text-generation collaborator failed.
	ErrGeneration = errors.New("generation failed")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
