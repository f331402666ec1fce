package indexer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"econ-rag/internal/config"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// ErrInvalidChunking is wrapped by the ConfigurationError NewChunker returns.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Chunker splits document text into overlapping windows of at most size runes,
// preferring paragraph, then line, then word boundaries.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
	size     int
	overlap  int
}

// NewChunker validates the window parameters and builds a recursive character splitter.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, &config.ConfigurationError{Field: "CHUNK_SIZE", Message: fmt.Sprintf("must be greater than 0, got %d", size), Err: ErrInvalidChunking}
	}
	if overlap < 0 || overlap >= size {
		return nil, &config.ConfigurationError{Field: "CHUNK_OVERLAP", Message: fmt.Sprintf("must be >= 0 and smaller than %d, got %d", size, overlap), Err: ErrInvalidChunking}
	}

	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
		size:    size,
		overlap: overlap,
	}, nil
}

// Size returns the configured maximum chunk length in runes.
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split returns the chunks of text in document order.
// Empty or whitespace-only text yields an empty slice and no error.
func (c *Chunker) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, part)
	}
	return chunks, nil
}

// ChunkPages splits every page of a document and numbers the chunks across the whole document.
func (c *Chunker) ChunkPages(source string, pages []Page) ([]Chunk, error) {
	var chunks []Chunk
	for _, page := range pages {
		parts, err := c.Split(page.Text)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		for _, part := range parts {
			chunks = append(chunks, Chunk{
				Text:   part,
				Source: source,
				Page:   page.Number,
				Index:  len(chunks),
			})
		}
	}
	return chunks, nil
}
