package rag

// Policy breakpoints for evidence quality. Retry decisions depend on these exact values.
const (
	sufficientMaxScore   = 0.1
	mediumConfidenceFrom = 0.4
	highConfidenceFrom   = 0.7
)

// Assess derives a quality estimate from reranked relevance scores.
// quality_score is the mean of the average and the maximum score, clamped to [0,1].
func Assess(scores []float64) QualityAssessment {
	if len(scores) == 0 {
		return QualityAssessment{Recommendation: RecommendNoDocuments}
	}

	var sum float64
	maxScore := scores[0]
	for _, s := range scores {
		sum += s
		if s > maxScore {
			maxScore = s
		}
	}
	avg := sum / float64(len(scores))

	qa := QualityAssessment{
		QualityScore:      clamp01((avg + maxScore) / 2),
		HasSufficientData: maxScore > sufficientMaxScore,
	}

	switch {
	case !qa.HasSufficientData:
		qa.Recommendation = RecommendAskClarification
	case qa.QualityScore > highConfidenceFrom:
		qa.Recommendation = RecommendHighConfidence
	case qa.QualityScore > mediumConfidenceFrom:
		qa.Recommendation = RecommendMediumConfidence
	default:
		qa.Recommendation = RecommendLowConfidence
	}
	return qa
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
