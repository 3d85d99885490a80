package profile

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/errors"
)

// profileValidate is shared; validator.Validate caches struct metadata
// and is safe for concurrent use.
var profileValidate *validator.Validate

func init() {
	profileValidate = validator.New(validator.WithRequiredStructEnabled())

	profileValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := profileValidate.RegisterValidation("objective", func(fl validator.FieldLevel) bool {
		return domain.Objective(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("register objective validator: %v", err))
	}
}

// Patch is the set of profile fields a user may change. Nil fields are
// left untouched; anything else is rejected by construction.
type Patch struct {
	Name       *string  `json:"name" validate:"omitnil,min=1,max=100"`
	Age        *int     `json:"age" validate:"omitnil,gte=18,lte=120"`
	Bio        *string  `json:"bio" validate:"omitnil,max=1000"`
	PhotoURL   *string  `json:"photo_url" validate:"omitnil,max=500,http_url"`
	Religion   *string  `json:"religion" validate:"omitnil,max=50"`
	Tribe      *string  `json:"tribe" validate:"omitnil,max=50"`
	Profession *string  `json:"profession" validate:"omitnil,max=100"`
	Objective  *string  `json:"objective" validate:"omitnil,objective"`
	Location   *string  `json:"location" validate:"omitnil,max=100"`
	Interests  []string `json:"interests" validate:"omitempty,max=30,dive,min=1,max=50"`
}

// Validate checks every set field. The first failure is reported as a
// validation_error naming the field.
func (p Patch) Validate() error {
	err := profileValidate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.New(errors.KindValidation, "invalid_"+fe.Field(), describe(fe))
	}
	return errors.Validation(err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "http_url":
		return fmt.Sprintf("%s must be an http(s) URL", fe.Field())
	case "objective":
		return fmt.Sprintf("%s must be one of %v", fe.Field(), domain.Objectives)
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// columns maps the set fields to profile columns.
func (p Patch) columns() map[string]any {
	cols := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			cols[col] = strings.TrimSpace(*v)
		}
	}
	set("name", p.Name)
	set("bio", p.Bio)
	set("photo_url", p.PhotoURL)
	set("religion", p.Religion)
	set("tribe", p.Tribe)
	set("profession", p.Profession)
	set("objective", p.Objective)
	set("location", p.Location)
	if p.Age != nil {
		cols["age"] = *p.Age
	}
	if p.Interests != nil {
		cols["interests"] = datatypes.JSON(domain.NewInterestSet(p.Interests...).JSON())
	}
	return cols
}

// apply copies the set fields onto d.
func (p Patch) apply(d *domain.Profile) {
	str := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	str(&d.Name, p.Name)
	str(&d.Bio, p.Bio)
	str(&d.PhotoURL, p.PhotoURL)
	str(&d.Religion, p.Religion)
	str(&d.Tribe, p.Tribe)
	str(&d.Profession, p.Profession)
	str(&d.Location, p.Location)
	if p.Objective != nil {
		d.Objective = domain.Objective(*p.Objective)
	}
	if p.Age != nil {
		d.Age = *p.Age
	}
	if p.Interests != nil {
		d.Interests = domain.NewInterestSet(p.Interests...)
	}
}
