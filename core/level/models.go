package level

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

// Level is a points tier of the journey. A nil MaxPoints is the unbounded top tier.
type Level struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	MinPoints int    `json:"min_points"`
	MaxPoints *int   `json:"max_points"`
}

// Contains reports whether points fall within the (inclusive) bounds of lvl.
func (lvl Level) Contains(points int) bool {
	return points >= lvl.MinPoints && (lvl.MaxPoints == nil || points <= *lvl.MaxPoints)
}

func (lvl Level) Bounded() bool { return lvl.MaxPoints != nil }

type NewLevel struct {
	Name      string `json:"name" validate:"notblank,max=100"`
	Icon      string `json:"icon" validate:"max=255"`
	MinPoints int    `json:"min_points" validate:"gte=0"`
	MaxPoints *int   `json:"max_points" validate:"omitempty,gtefield=MinPoints"`
}

func (nl *NewLevel) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	nl.Icon = core.CleanString(nl.Icon)
	return validate.Struct(nl)
}

type UpdateLevel struct {
	Name      *string `json:"name" validate:"omitempty,notblank,max=100"`
	Icon      *string `json:"icon" validate:"omitempty,max=255"`
	MinPoints *int    `json:"min_points" validate:"omitempty,gte=0"`
	MaxPoints *int    `json:"max_points"`
	// Unbounded makes the level the top tier, MaxPoints is then ignored.
	Unbounded bool `json:"unbounded"`
}

func (ul *UpdateLevel) Validate(validate *validator.Validate) error {
	if ul.Name != nil {
		name := core.CleanString(*ul.Name)
		ul.Name = &name
	}
	if ul.Icon != nil {
		icon := core.CleanString(*ul.Icon)
		ul.Icon = &icon
	}
	return validate.Struct(ul)
}

// Apply returns lvl updated with the non-nil fields of ul.
func (ul UpdateLevel) Apply(lvl Level) Level {
	if ul.Name != nil {
		lvl.Name = *ul.Name
	}
	if ul.Icon != nil {
		lvl.Icon = *ul.Icon
	}
	if ul.MinPoints != nil {
		lvl.MinPoints = *ul.MinPoints
	}
	if ul.Unbounded {
		lvl.MaxPoints = nil
	} else if ul.MaxPoints != nil {
		max := *ul.MaxPoints
		lvl.MaxPoints = &max
	}
	return lvl
}

// Journey is where a user stands on the levels ladder.
type Journey struct {
	Points       int     `json:"points"`
	Current      *Level  `json:"current"`
	Next         *Level  `json:"next"`
	Fraction     float64 `json:"fraction"`       // within Current, in [0, 1]
	PointsToNext int     `json:"points_to_next"` // 0 without a Next level
}
