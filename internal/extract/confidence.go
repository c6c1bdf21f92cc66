package extract

import "github.com/kidsparis/activity-crawler/internal/activity"

// Completeness computes the extraction confidence of an entity. The
// identity field weighs double each optional contact field; the result is
// achieved weight over maximum weight, clamped to [0,1]. Adding a
// well-formed field can only raise the score.
func Completeness(e activity.Entity) float64 {
	const (
		requiredWeight = 2.0
		optionalWeight = 1.0
	)
	max := requiredWeight + 5*optionalWeight

	var achieved float64
	if e.Name != "" {
		achieved += requiredWeight
	}
	for _, field := range []string{e.Description, e.Email, e.Phone, e.Address, e.Website} {
		if field != "" {
			achieved += optionalWeight
		}
	}
	score := achieved / max
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
