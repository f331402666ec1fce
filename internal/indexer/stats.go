package indexer

import (
	"math"
	"sort"
	"unicode/utf8"
)

// ChunkLengthStats summarizes chunk lengths in runes for one ingestion run.
type ChunkLengthStats struct {
	Count int     `json:"count"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Mean  float64 `json:"mean"`
	P95   int     `json:"p95"`
}

// computeLengthStats computes min, max, mean, and p95 over chunk rune lengths.
func computeLengthStats(chunks []Chunk) ChunkLengthStats {
	if len(chunks) == 0 {
		return ChunkLengthStats{}
	}

	lengths := make([]int, len(chunks))
	sum := 0
	for i, c := range chunks {
		lengths[i] = utf8.RuneCountInString(c.Text)
		sum += lengths[i]
	}
	sort.Ints(lengths)

	// Nearest-rank percentile
	p95Index := int(math.Ceil(float64(len(lengths))*0.95)) - 1
	if p95Index < 0 {
		p95Index = 0
	}

	mean := float64(sum) / float64(len(lengths))
	return ChunkLengthStats{
		Count: len(lengths),
		Min:   lengths[0],
		Max:   lengths[len(lengths)-1],
		Mean:  math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:   lengths[p95Index],
	}
}
