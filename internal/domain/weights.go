package domain

// Weights is the per-dimension weight vector used by the compatibility
// scorer. Values are fractions; a full match on a dimension contributes
// weight*100 points.
type Weights struct {
	Religion   float64
	Location   float64
	Objective  float64
	Profession float64
	Age        float64
	Interests  float64
}

// DefaultWeights applies when no matching configuration is active.
var DefaultWeights = Weights{
	Religion:   0.20,
	Location:   0.15,
	Objective:  0.35,
	Profession: 0.10,
	Age:        0.15,
	Interests:  0.05,
}

func (w Weights) Sum() float64 {
	return w.Religion + w.Location + w.Objective + w.Profession + w.Age + w.Interests
}
