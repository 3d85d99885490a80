package domain

import "time"

// Objective is what a user is looking for on the platform.
type Objective string

const (
	ObjectiveFriendship      Objective = "Amitié"
	ObjectiveBuilding        Objective = "Construction"
	ObjectiveMarriage        Objective = "Mariage"
	ObjectiveSeriousMarriage Objective = "Mariage & Sérieux"
)

// Objectives lists every accepted objective value.
var Objectives = []Objective{
	ObjectiveFriendship,
	ObjectiveBuilding,
	ObjectiveMarriage,
	ObjectiveSeriousMarriage,
}

func (o Objective) Valid() bool {
	for _, v := range Objectives {
		if o == v {
			return true
		}
	}
	return false
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Profile is the scoring/discovery view of a user's public profile.
// Zero values mean "not provided" for every attribute.
type Profile struct {
	ID         uint64
	UserID     uint64
	Name       string
	Age        int
	Bio        string
	PhotoURL   string
	Photos     []string
	Religion   string
	Tribe      string
	Profession string
	Objective  Objective
	Location   string
	Interests  InterestSet

	ViewsCount  int64
	WeeklyViews WeeklyViews

	IsVerified         bool
	VerificationStatus VerificationStatus
	IsApproved         bool
}

// RecordView bumps the lifetime counter and the weekday bucket for at.
func (p *Profile) RecordView(at time.Time) {
	p.ViewsCount++
	p.WeeklyViews.Record(at)
}
