package indexer

// Page is one unit of extracted document text. PDFs yield one Page per
// physical page; other formats yield a single Page with Number 0.
type Page struct {
	Number int
	Text   string
}

// Chunk is a span of document text awaiting embedding.
type Chunk struct {
	Text   string
	Source string // Path the chunk was loaded from
	Page   int    // 1-based PDF page, 0 when the format has no pages
	Index  int    // Position within the source document (starts at 0)
}
