package compat_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/service/compat"
)

func score(a, b domain.Profile) float64 {
	return compat.Score(&a, &b, domain.DefaultWeights, compat.DefaultObjectiveGroups)
}

func TestScoreReferenceScenario(t *testing.T) {
	a := domain.Profile{Objective: "Mariage", Religion: "Chrétienne", Age: 28, Location: "Kinshasa"}
	b := domain.Profile{Objective: "Mariage", Religion: "Chrétienne", Age: 30, Location: "Kinshasa"}

	assert.Equal(t, 85.0, score(a, b))
}

func TestScoreObjectiveGroups(t *testing.T) {
	tests := []struct {
		a, b domain.Objective
		want float64
	}{
		{"Mariage", "Mariage", 35},
		{"Mariage", "Mariage & Sérieux", 17.5},
		{"Construction", "Mariage", 17.5},
		{"Amitié", "Construction", 17.5},
		{"Amitié", "Mariage", 0},
		{"Amitié", "Mariage & Sérieux", 0},
		{"", "Mariage", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.a)+"/"+string(tt.b), func(t *testing.T) {
			got := score(domain.Profile{Objective: tt.a}, domain.Profile{Objective: tt.b})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreLocationTribeFallback(t *testing.T) {
	a := domain.Profile{Location: "Kinshasa", Tribe: "Luba"}
	b := domain.Profile{Location: "Lubumbashi", Tribe: "Luba"}
	assert.Equal(t, 7.5, score(a, b))

	b.Tribe = "Kongo"
	assert.Equal(t, 0.0, score(a, b))

	// tribe alone does not count when a location is missing
	assert.Equal(t, 0.0, score(domain.Profile{Tribe: "Luba"}, domain.Profile{Location: "Goma", Tribe: "Luba"}))
}

func TestScoreAgeBands(t *testing.T) {
	tests := []struct {
		diff int
		want float64
	}{
		{0, 15}, {2, 15}, {3, 11.25}, {5, 11.25}, {6, 7.5}, {10, 7.5}, {11, 3.75}, {15, 3.75}, {16, 0}, {40, 0},
	}
	for _, tt := range tests {
		got := score(domain.Profile{Age: 30}, domain.Profile{Age: 30 + tt.diff})
		assert.Equal(t, tt.want, got, "diff %d", tt.diff)
	}
}

func TestScoreInterestsJaccard(t *testing.T) {
	a := domain.Profile{Interests: domain.NewInterestSet("music", "travel", "cooking")}
	b := domain.Profile{Interests: domain.NewInterestSet("Music", "sport")}

	// 1 common / 4 union = 25% of 5 points
	assert.Equal(t, 1.25, score(a, b))
}

func TestScoreMalformedInterestsAreEmpty(t *testing.T) {
	a := domain.Profile{Interests: domain.ParseInterests([]byte(`{not json`))}
	b := domain.Profile{Interests: domain.NewInterestSet("music")}

	assert.NotPanics(t, func() { score(a, b) })
	assert.Equal(t, 0.0, score(a, b))
}

func TestScoreNilAndEmpty(t *testing.T) {
	assert.Equal(t, 0.0, compat.Score(nil, &domain.Profile{}, domain.DefaultWeights, nil))
	assert.Equal(t, 0.0, score(domain.Profile{}, domain.Profile{}))
}

func TestScoreClampsToHundred(t *testing.T) {
	w := domain.Weights{Religion: 1, Location: 1, Objective: 1, Profession: 1, Age: 1, Interests: 1}
	p := domain.Profile{
		Objective: "Mariage", Religion: "Islam", Location: "Goma", Profession: "Nurse", Age: 30,
		Interests: domain.NewInterestSet("music"),
	}
	assert.Equal(t, 100.0, compat.Score(&p, &p, w, nil))
}

func TestScoreSymmetricAndBounded(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	pick := func(vals ...string) string { return vals[r.Intn(len(vals))] }

	random := func() domain.Profile {
		return domain.Profile{
			Objective:  domain.Objective(pick("", "Amitié", "Construction", "Mariage", "Mariage & Sérieux")),
			Religion:   pick("", "Chrétienne", "Islam"),
			Location:   pick("", "Kinshasa", "Goma"),
			Tribe:      pick("", "Luba", "Kongo"),
			Profession: pick("", "Nurse", "Engineer"),
			Age:        r.Intn(50),
			Interests:  domain.NewInterestSet(pick("", "music"), pick("", "travel"), pick("", "sport")),
		}
	}

	for i := 0; i < 500; i++ {
		a, b := random(), random()
		ab, ba := score(a, b), score(b, a)
		assert.Equal(t, ab, ba)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 100.0)
	}
}

func TestCustomGroups(t *testing.T) {
	groups := compat.ObjectiveGroups{{"Amitié", "Mariage"}}
	a := domain.Profile{Objective: "Amitié"}
	b := domain.Profile{Objective: "Mariage"}

	assert.Equal(t, 17.5, compat.Score(&a, &b, domain.DefaultWeights, groups))
	assert.False(t, groups.Compatible("Construction", "Mariage"))
}
