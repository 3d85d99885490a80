package db

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/shida/shida-core/internal/domain"
)

// Domain converts the stored row into the typed domain profile. JSON
// columns that fail to decode become empty values.
func (p *Profile) Domain() domain.Profile {
	var photos []string
	if len(p.Photos) > 0 {
		if err := json.Unmarshal(p.Photos, &photos); err != nil {
			photos = nil
		}
	}
	return domain.Profile{
		ID:                 p.ID,
		UserID:             p.UserID,
		Name:               p.Name,
		Age:                p.Age,
		Bio:                p.Bio,
		PhotoURL:           p.PhotoURL,
		Photos:             photos,
		Religion:           p.Religion,
		Tribe:              p.Tribe,
		Profession:         p.Profession,
		Objective:          domain.Objective(p.Objective),
		Location:           p.Location,
		Interests:          domain.ParseInterests(p.Interests),
		ViewsCount:         p.ViewsCount,
		WeeklyViews:        domain.ParseWeeklyViews(p.WeeklyViews),
		IsVerified:         p.IsVerified,
		VerificationStatus: domain.VerificationStatus(p.VerificationStatus),
		IsApproved:         p.IsApproved,
	}
}

// ApplyDomain copies the editable and counter fields of d onto the row,
// serializing list fields to JSON.
func (p *Profile) ApplyDomain(d domain.Profile) {
	p.Name = d.Name
	p.Age = d.Age
	p.Bio = d.Bio
	p.PhotoURL = d.PhotoURL
	p.Photos = jsonList(d.Photos)
	p.Religion = d.Religion
	p.Tribe = d.Tribe
	p.Profession = d.Profession
	p.Objective = string(d.Objective)
	p.Location = d.Location
	p.Interests = datatypes.JSON(d.Interests.JSON())
	p.ViewsCount = d.ViewsCount
	p.WeeklyViews = datatypes.JSON(d.WeeklyViews.JSON())
	p.IsVerified = d.IsVerified
	if d.VerificationStatus != "" {
		p.VerificationStatus = string(d.VerificationStatus)
	}
	p.IsApproved = d.IsApproved
}

func jsonList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return datatypes.JSON(b)
}
