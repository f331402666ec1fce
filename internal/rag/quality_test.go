package rag

import (
	"math"
	"testing"
)

func TestAssess(t *testing.T) {
	tests := []struct {
		name           string
		scores         []float64
		wantScore      float64
		wantSufficient bool
		wantRec        Recommendation
	}{
		{name: "no evidence", scores: nil, wantScore: 0, wantSufficient: false, wantRec: RecommendNoDocuments},
		{name: "empty slice", scores: []float64{}, wantScore: 0, wantSufficient: false, wantRec: RecommendNoDocuments},
		{name: "max at floor is insufficient", scores: []float64{0.1}, wantScore: 0.1, wantSufficient: false, wantRec: RecommendAskClarification},
		{name: "weak evidence", scores: []float64{0.05}, wantScore: 0.05, wantSufficient: false, wantRec: RecommendAskClarification},
		{name: "high confidence", scores: []float64{0.9, 0.8}, wantScore: 0.875, wantSufficient: true, wantRec: RecommendHighConfidence},
		{name: "boundary 0.7 is medium", scores: []float64{0.7, 0.7}, wantScore: 0.7, wantSufficient: true, wantRec: RecommendMediumConfidence},
		{name: "medium confidence", scores: []float64{0.5, 0.5, 0.5}, wantScore: 0.5, wantSufficient: true, wantRec: RecommendMediumConfidence},
		{name: "low confidence", scores: []float64{0.2, 0.3}, wantScore: 0.275, wantSufficient: true, wantRec: RecommendLowConfidence},
		{name: "clamped above one", scores: []float64{3.2, 2.1}, wantScore: 1, wantSufficient: true, wantRec: RecommendHighConfidence},
		{name: "clamped below zero", scores: []float64{-4, 0.2}, wantScore: 0, wantSufficient: true, wantRec: RecommendLowConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.scores)
			if math.Abs(got.QualityScore-tt.wantScore) > 1e-9 {
				t.Errorf("QualityScore = %v, want %v", got.QualityScore, tt.wantScore)
			}
			if got.HasSufficientData != tt.wantSufficient {
				t.Errorf("HasSufficientData = %v, want %v", got.HasSufficientData, tt.wantSufficient)
			}
			if got.Recommendation != tt.wantRec {
				t.Errorf("Recommendation = %q, want %q", got.Recommendation, tt.wantRec)
			}
		})
	}
}

// The score mixes the average with the maximum, so a strong top passage
// lifts the estimate above the plain mean.
func TestAssess_MaxWeighsAboveMean(t *testing.T) {
	got := Assess([]float64{0.9, 0.8})
	if got.Recommendation != RecommendHighConfidence {
		t.Errorf("Recommendation = %q, want %q", got.Recommendation, RecommendHighConfidence)
	}
	if mean := 0.85; got.QualityScore <= mean {
		t.Errorf("QualityScore = %v, want above the mean %v", got.QualityScore, mean)
	}
}
