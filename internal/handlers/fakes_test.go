package handlers

import (
	"context"

	"econ-rag/internal/indexer"
	"econ-rag/internal/rag"
	"econ-rag/internal/storage"
)

type fakeAnswerer struct {
	resp rag.QueryResponse
	err  error
	got  rag.QueryRequest
}

func (f *fakeAnswerer) Query(_ context.Context, req rag.QueryRequest) (rag.QueryResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakeIngester struct {
	result    *indexer.IngestResult
	err       error
	docs      []storage.Document
	removeErr error

	gotPaths []string
	gotOpts  indexer.IngestOptions
	removed  []string
}

func (f *fakeIngester) Ingest(_ context.Context, paths []string, opts indexer.IngestOptions) (*indexer.IngestResult, error) {
	f.gotPaths = paths
	f.gotOpts = opts
	return f.result, f.err
}

func (f *fakeIngester) Remove(_ context.Context, source string) error {
	f.removed = append(f.removed, source)
	return f.removeErr
}

func (f *fakeIngester) Documents(context.Context) ([]storage.Document, error) {
	return f.docs, f.err
}

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error { return p.err }
