// Package compat computes the 0-100 compatibility score between two
// profiles.
package compat

import (
	"math"

	"github.com/shida/shida-core/internal/domain"
)

// Credit given on a dimension, as a percentage of its weight.
const (
	fullCredit    = 100.0
	partialCredit = 50.0
)

// ObjectiveGroups lists sets of objectives that are compatible without
// being equal. Two different objectives earn partial credit when some
// group contains both.
type ObjectiveGroups [][]domain.Objective

// DefaultObjectiveGroups is the stock compatibility table.
var DefaultObjectiveGroups = ObjectiveGroups{
	{domain.ObjectiveMarriage, domain.ObjectiveSeriousMarriage},
	{domain.ObjectiveBuilding, domain.ObjectiveMarriage},
	{domain.ObjectiveFriendship, domain.ObjectiveBuilding},
}

// Compatible reports whether a and b share a group.
func (g ObjectiveGroups) Compatible(a, b domain.Objective) bool {
	for _, group := range g {
		var hasA, hasB bool
		for _, o := range group {
			hasA = hasA || o == a
			hasB = hasB || o == b
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// ageCredit is the banded decay on absolute age difference.
func ageCredit(a, b int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 2:
		return 100
	case diff <= 5:
		return 75
	case diff <= 10:
		return 50
	case diff <= 15:
		return 25
	default:
		return 0
	}
}

// Score returns the weighted compatibility of a and b in [0, 100],
// rounded to two decimals.
//
// Behavior:
//   - Each dimension adds weight * credit, credit being 100 on an exact
//     match, a partial value for compatible values, 0 otherwise.
//   - A dimension missing on either side adds nothing.
//   - Objective: 50 when the two objectives share a group.
//   - Location: 50 when locations differ but both tribes are set and equal.
//   - Age: 100/75/50/25/0 for differences up to 2/5/10/15/more.
//   - Interests: Jaccard similarity of the two sets, as a percentage.
//
// The result does not depend on argument order.
//
// Example:
//
//	Score(&a, &b, domain.DefaultWeights, DefaultObjectiveGroups) // -> 85
func Score(a, b *domain.Profile, w domain.Weights, groups ObjectiveGroups) float64 {
	if a == nil || b == nil {
		return 0
	}

	var score float64

	if a.Objective != "" && b.Objective != "" {
		if a.Objective == b.Objective {
			score += w.Objective * fullCredit
		} else if groups.Compatible(a.Objective, b.Objective) {
			score += w.Objective * partialCredit
		}
	}

	if a.Religion != "" && b.Religion != "" && a.Religion == b.Religion {
		score += w.Religion * fullCredit
	}

	if a.Location != "" && b.Location != "" {
		if a.Location == b.Location {
			score += w.Location * fullCredit
		} else if a.Tribe != "" && a.Tribe == b.Tribe {
			score += w.Location * partialCredit
		}
	}

	if a.Profession != "" && b.Profession != "" && a.Profession == b.Profession {
		score += w.Profession * fullCredit
	}

	if a.Age > 0 && b.Age > 0 {
		score += w.Age * ageCredit(a.Age, b.Age)
	}

	if len(a.Interests) > 0 && len(b.Interests) > 0 {
		score += w.Interests * domain.Jaccard(a.Interests, b.Interests) * 100
	}

	score = math.Round(score*100) / 100
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// Scorer binds a weight vector and group table.
type Scorer struct {
	Weights domain.Weights
	Groups  ObjectiveGroups
}

func (s Scorer) Score(a, b *domain.Profile) float64 {
	return Score(a, b, s.Weights, s.Groups)
}
