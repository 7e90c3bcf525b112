package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

type Course struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoverURL    string    `json:"cover_url"`
	CreatedAt   time.Time `json:"created_at"`
	Lessons     []Lesson  `json:"lessons,omitempty"`
}

// Lesson is one step of a Course. Positions are 0-based and define the lesson order.
type Lesson struct {
	ID              string `json:"id"`
	CourseID        string `json:"course_id"`
	Position        int    `json:"position"`
	Title           string `json:"title"`
	VideoURL        string `json:"video_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

type NewCourse struct {
	CompanyID   string `json:"company_id" validate:"omitempty,uuid"`
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url" validate:"omitempty,url"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.CompanyID = core.CleanString(nc.CompanyID)
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.CoverURL = core.CleanString(nc.CoverURL)
	return validate.Struct(nc)
}

type NewLesson struct {
	Title           string `json:"title" validate:"notblank,max=200"`
	VideoURL        string `json:"video_url" validate:"omitempty,url"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	return validate.Struct(nl)
}
