package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/service"
	"econ-rag/internal/storage"
	"econ-rag/internal/vectorstore"
)

// DefaultLoadConcurrency bounds how many documents are read and split at once.
const DefaultLoadConcurrency = 4

// IngestOptions tunes a single ingestion run.
type IngestOptions struct {
	// Force re-embeds documents whose content hash is unchanged.
	Force bool
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	InsertedCount  int              `json:"inserted_count"`
	RejectedPaths  []string         `json:"rejected_paths"`
	SkippedPaths   []string         `json:"skipped_paths,omitempty"`
	Documents      int              `json:"documents"`
	RejectedChunks int              `json:"rejected_chunks"`
	Stats          ChunkLengthStats `json:"chunk_length_stats"`
}

// Pipeline orchestrates ingestion of document files into the vector index.
// It records each indexed file's content hash so unchanged files are skipped.
type Pipeline struct {
	loader      *Loader
	chunker     *Chunker
	indexer     *Indexer
	docs        storage.DocumentStore
	store       vectorstore.VectorStore
	collection  string
	concurrency int
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	loader *Loader,
	chunker *Chunker,
	indexer *Indexer,
	docs storage.DocumentStore,
	store vectorstore.VectorStore,
	collection string,
) *Pipeline {
	return &Pipeline{
		loader:      loader,
		chunker:     chunker,
		indexer:     indexer,
		docs:        docs,
		store:       store,
		collection:  collection,
		concurrency: DefaultLoadConcurrency,
	}
}

// loadedDoc is one file after reading and splitting.
type loadedDoc struct {
	path     string
	hash     string
	chunks   []Chunk
	rejected int      // chunks below MinChunkLength
	previous []string // chunk ids recorded for the prior version
	skip     bool
	err      error
}

// Ingest loads, splits and indexes the given files and directories.
// Directories are walked for supported files. Unreadable or unsupported files
// are reported in RejectedPaths and do not stop the run. An embedding or
// index failure stops the run: the result then lists every document that was
// not fully written, and the error is a *BatchError.
func (p *Pipeline) Ingest(ctx context.Context, paths []string, opts IngestOptions) (*IngestResult, error) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "ingest")

	result := &IngestResult{RejectedPaths: []string{}}

	files, rejected := expandPaths(paths)
	result.RejectedPaths = append(result.RejectedPaths, rejected...)
	for _, path := range rejected {
		logger.WarnContext(ctx, "rejected path", "path", path)
	}

	docs, err := p.loadAll(ctx, files, opts)
	if err != nil {
		return result, err
	}

	var toIndex []Chunk
	var indexed []*loadedDoc
	for _, doc := range docs {
		switch {
		case doc.err != nil:
			logger.WarnContext(ctx, "failed to load document", "path", doc.path, "error", doc.err)
			result.RejectedPaths = append(result.RejectedPaths, doc.path)
		case doc.skip:
			logger.DebugContext(ctx, "skipping unchanged document", "path", doc.path, "hash", doc.hash)
			result.SkippedPaths = append(result.SkippedPaths, doc.path)
		default:
			toIndex = append(toIndex, doc.chunks...)
			indexed = append(indexed, doc)
			result.RejectedChunks += doc.rejected
		}
	}

	result.Stats = computeLengthStats(toIndex)

	inserted, upsertErr := p.indexer.Upsert(ctx, toIndex)
	result.InsertedCount = inserted

	var batchErr *BatchError
	unprocessed := map[string]struct{}{}
	if upsertErr != nil {
		if !errors.As(upsertErr, &batchErr) {
			return result, upsertErr
		}
		for _, src := range batchErr.Sources {
			unprocessed[src] = struct{}{}
		}
	}

	var stale []string
	for _, doc := range indexed {
		if _, failed := unprocessed[doc.path]; failed {
			result.RejectedPaths = append(result.RejectedPaths, doc.path)
			continue
		}
		ids := pointIDs(doc.chunks)
		record := &storage.Document{
			Source:         doc.path,
			Hash:           doc.hash,
			Collection:     p.collection,
			ChunkCount:     len(doc.chunks) - doc.rejected,
			RejectedChunks: doc.rejected,
			ChunkIDs:       ids,
		}
		if err := p.docs.Upsert(ctx, record); err != nil {
			logger.WarnContext(ctx, "failed to record document", "path", doc.path, "error", err)
		} else {
			stale = append(stale, dropped(doc.previous, ids)...)
		}
		result.Documents++
	}

	// Chunks the previous versions had are removed only once every document
	// of this run is recorded, since another document may now share them.
	cleanupErr := p.deleteUnreferenced(ctx, stale)

	logger.InfoContext(ctx, "ingestion completed",
		"files", len(files),
		"documents", result.Documents,
		"inserted", result.InsertedCount,
		"skipped", len(result.SkippedPaths),
		"rejected_paths", len(result.RejectedPaths),
		"rejected_chunks", result.RejectedChunks,
	)

	if upsertErr != nil {
		return result, upsertErr
	}
	if cleanupErr != nil {
		return result, cleanupErr
	}
	return result, nil
}

// deleteUnreferenced removes the candidate points no registered document references.
func (p *Pipeline) deleteUnreferenced(ctx context.Context, candidates []string) error {
	if len(candidates) == 0 {
		return nil
	}
	orphans, err := p.docs.Unreferenced(ctx, candidates, "")
	if err != nil {
		return fmt.Errorf("failed to check chunk references: %w", err)
	}
	if err := p.store.Delete(ctx, p.collection, orphans); err != nil {
		return fmt.Errorf("%w: failed to delete stale chunks: %v", service.ErrIndexUnavailable, err)
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "deleted stale chunks", "count", len(orphans))
	return nil
}

// dropped returns the ids in previous that are not in current.
func dropped(previous, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, id := range current {
		keep[id] = struct{}{}
	}
	var out []string
	for _, id := range previous {
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// loadAll reads and splits files concurrently. Results keep the input order.
func (p *Pipeline) loadAll(ctx context.Context, files []string, opts IngestOptions) ([]*loadedDoc, error) {
	docs := make([]*loadedDoc, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs[i] = p.loadOne(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (p *Pipeline) loadOne(ctx context.Context, path string, opts IngestOptions) *loadedDoc {
	doc := &loadedDoc{path: path}

	hash, err := fileHash(path)
	if err != nil {
		doc.err = err
		return doc
	}
	doc.hash = hash

	existing, err := p.docs.Get(ctx, path)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		doc.err = fmt.Errorf("failed to check document registry: %w", err)
		return doc
	default:
		if existing.Hash == hash && !opts.Force {
			doc.skip = true
			return doc
		}
		doc.previous = existing.ChunkIDs
	}

	pages, err := p.loader.Load(path)
	if err != nil {
		doc.err = err
		return doc
	}

	chunks, err := p.chunker.ChunkPages(path, pages)
	if err != nil {
		doc.err = err
		return doc
	}
	for _, c := range chunks {
		if !Viable(c.Text) {
			doc.rejected++
		}
	}
	doc.chunks = chunks
	return doc
}

// Remove forgets the registry record of source and deletes its indexed
// chunks. Chunks another registered document also contains are kept.
// Removing an unknown source is a no-op.
func (p *Pipeline) Remove(ctx context.Context, source string) error {
	logger := contextutil.LoggerFromContext(ctx).With("component", "ingest")

	doc, err := p.docs.Get(ctx, source)
	if errors.Is(err, storage.ErrNotFound) {
		logger.DebugContext(ctx, "document not registered", "source", source)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up registry record of %s: %w", source, err)
	}

	orphans, err := p.docs.Unreferenced(ctx, doc.ChunkIDs, source)
	if err != nil {
		return fmt.Errorf("failed to check chunk references of %s: %w", source, err)
	}
	// The record goes last so a failed delete can be retried.
	if err := p.store.Delete(ctx, p.collection, orphans); err != nil {
		return fmt.Errorf("%w: failed to delete chunks of %s: %v", service.ErrIndexUnavailable, source, err)
	}
	if err := p.docs.Delete(ctx, source); err != nil {
		return fmt.Errorf("failed to delete registry record of %s: %w", source, err)
	}

	logger.InfoContext(ctx, "removed document",
		"source", source,
		"deleted_chunks", len(orphans),
		"shared_chunks", len(doc.ChunkIDs)-len(orphans),
	)
	return nil
}

// Documents lists every document recorded as ingested.
func (p *Pipeline) Documents(ctx context.Context) ([]storage.Document, error) {
	return p.docs.List(ctx)
}

// expandPaths walks directories for supported files, skipping hidden
// directories. Missing paths and explicitly named unsupported files are
// returned as rejected.
func expandPaths(paths []string) (files []string, rejected []string) {
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, path := range paths {
		path = filepath.Clean(path)
		info, err := os.Stat(path)
		if err != nil {
			rejected = append(rejected, path)
			continue
		}
		if !info.IsDir() {
			if IsSupported(path) {
				add(path)
			} else {
				rejected = append(rejected, path)
			}
			continue
		}

		_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				rejected = append(rejected, p)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				// Editor and VCS metadata such as .obsidian or .git
				if p != path && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}
			if IsSupported(p) {
				add(p)
			}
			return nil
		})
	}
	return files, rejected
}

// fileHash returns the SHA256 hex digest of the file content.
func fileHash(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}
