package progress

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// CourseProgress is the completion percentage of a course for a user; one row per (user, course).
type CourseProgress struct {
	UserID          string     `json:"user_id"`
	CourseID        string     `json:"course_id"`
	ProgressPercent int        `json:"progress_percent"`
	Version         int        `json:"version"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"` // first time it reached 100%
}

// Started reports whether the progress was ever stored (version 0 means never started).
func (p CourseProgress) Started() bool { return p.Version > 0 }

// Completed reports whether every lesson of the course is done.
func (p CourseProgress) Completed() bool { return p.ProgressPercent >= MaxPercent }

// ReadingProgress is the current page of an ebook for a user; one row per (user, ebook).
type ReadingProgress struct {
	UserID      string    `json:"user_id"`
	EbookID     string    `json:"ebook_id"`
	CurrentPage int       `json:"current_page"`
	Version     int       `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p ReadingProgress) Started() bool { return p.Version > 0 }

// SetCourseProgress sets a course percentage. When Version is given the write only succeeds
// if the stored row still has that version (0: the row must not exist yet).
type SetCourseProgress struct {
	ProgressPercent int  `json:"progress_percent"`
	Version         *int `json:"version" validate:"omitempty,gte=0"`
}

func (sp *SetCourseProgress) Validate(validate *validator.Validate) error {
	return validate.Struct(sp)
}

// SetReadingProgress sets the current page of an ebook, see SetCourseProgress for Version.
type SetReadingProgress struct {
	CurrentPage int  `json:"current_page"`
	Version     *int `json:"version" validate:"omitempty,gte=0"`
}

func (sp *SetReadingProgress) Validate(validate *validator.Validate) error {
	return validate.Struct(sp)
}
