package requests

// Lead scoring is deterministic: the base score comes from the category and
// the timeline shifts it. The result is clamped to [0,100] and classified
// into a tier with inclusive lower bounds, so a score of exactly 70 is high
// and exactly 40 is medium.

var categoryBaseScore = map[Category]int{
	CategoryQuickService: 10,
	CategoryProducts:     85,
	CategorySupport:      50,
}

var timelineAdjustment = map[Timeline]int{
	TimelineImmediate:    20,
	TimelineThisWeek:     0,
	TimelineThisMonth:    0,
	TimelineJustBrowsing: -30,
}

// Score computes the lead score and priority tier for a submission. It is a
// pure function; unknown categories or timelines are rejected upstream by
// Submission.Validate and simply score from zero here.
func Score(category Category, timeline Timeline) (int, Tier) {
	score := categoryBaseScore[category] + timelineAdjustment[timeline]
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, TierForScore(score)
}

// TierForScore classifies a final score.
func TierForScore(score int) Tier {
	switch {
	case score >= 70:
		return TierHigh
	case score >= 40:
		return TierMedium
	default:
		return TierLow
	}
}

// HighPriority is the strict predicate used for headline urgent-request
// counts. It is deliberately narrower than the tier: a high score with a
// non-immediate timeline does not qualify.
func HighPriority(tier Tier, timeline Timeline) bool {
	return tier == TierHigh && timeline == TimelineImmediate
}
