package storage

import "time"

// Document is one ingested source file as recorded in the registry.
type Document struct {
	Source         string // Path the document was loaded from
	Hash           string // SHA256 hex string of file content
	Collection     string
	ChunkCount     int
	RejectedChunks int // Chunks dropped for being below the minimum length
	IngestedAt     time.Time

	// ChunkIDs are the index points built from this document. Several
	// documents may reference the same point when they share text.
	ChunkIDs []string
}
