package indexer

import (
	"strings"
	"testing"
)

func TestComputeLengthStats(t *testing.T) {
	tests := []struct {
		name    string
		lengths []int
		want    ChunkLengthStats
	}{
		{
			name: "empty",
			want: ChunkLengthStats{},
		},
		{
			name:    "single chunk",
			lengths: []int{120},
			want:    ChunkLengthStats{Count: 1, Min: 120, Max: 120, Mean: 120, P95: 120},
		},
		{
			name:    "unsorted input",
			lengths: []int{300, 100, 200},
			want:    ChunkLengthStats{Count: 3, Min: 100, Max: 300, Mean: 200, P95: 300},
		},
		{
			name:    "twenty chunks",
			lengths: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want:    ChunkLengthStats{Count: 20, Min: 1, Max: 20, Mean: 10.5, P95: 19},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := make([]Chunk, len(tt.lengths))
			for i, n := range tt.lengths {
				chunks[i] = Chunk{Text: strings.Repeat("é", n)}
			}

			got := computeLengthStats(chunks)
			if got != tt.want {
				t.Errorf("computeLengthStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
