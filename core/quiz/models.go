package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

// Quiz is the final quiz of a course.
type Quiz struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	Questions []Question `json:"questions,omitempty"`
}

// Question is a multiple choice question. CorrectAnswer is the literal text of one of Options.
type Question struct {
	ID            string   `json:"id"`
	QuizID        string   `json:"quiz_id"`
	Position      int      `json:"position"`
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

// Public returns q without its correct answer.
func (q Question) Public() Question {
	q.CorrectAnswer = ""
	return q
}

// Response is one submitted answer. Responses are append-only.
type Response struct {
	ID         string    `json:"id"`
	QuizID     string    `json:"quiz_id"`
	QuestionID string    `json:"question_id"`
	UserID     string    `json:"user_id"`
	AnswerText string    `json:"answer_text"`
	IsCorrect  bool      `json:"is_correct"`
	CreatedAt  time.Time `json:"created_at"`
}

type Score struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type NewQuiz struct {
	CourseID string `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"notblank,max=200"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.CourseID = core.CleanString(nq.CourseID)
	nq.Title = core.CleanString(nq.Title)
	return validate.Struct(nq)
}

type NewQuestion struct {
	Text          string   `json:"question_text" validate:"notblank"`
	Options       []string `json:"options" validate:"min=2,dive,notblank"`
	CorrectAnswer string   `json:"correct_answer" validate:"notblank"`
}

// Validate checks nq; options must be unique and the correct answer must be one of them.
func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	nq.CorrectAnswer = core.CleanString(nq.CorrectAnswer)
	for i, opt := range nq.Options {
		nq.Options[i] = core.CleanString(opt)
	}

	if err := validate.Struct(nq); err != nil {
		return err
	}
	return nq.checkOptions()
}

func (nq *NewQuestion) checkOptions() error {
	seen := make(map[string]bool, len(nq.Options))
	for _, opt := range nq.Options {
		if seen[opt] {
			return core.NewFieldError("options", "options must be unique")
		}
		seen[opt] = true
	}
	if !seen[nq.CorrectAnswer] {
		return core.NewFieldError("correct_answer", "the correct answer must be one of the options")
	}
	return nil
}

// Answer is a submission for the current question: either the answer text or the option index.
type Answer struct {
	QuestionIndex int     `json:"question_index" validate:"gte=0"`
	Answer        *string `json:"answer"`
	OptionIndex   *int    `json:"option_index" validate:"omitempty,gte=0"`
}

func (a *Answer) Validate(validate *validator.Validate) error {
	if err := validate.Struct(a); err != nil {
		return err
	}
	if (a.Answer == nil) == (a.OptionIndex == nil) {
		return core.NewFieldError("answer", "one of answer or option_index is required")
	}
	return nil
}

// Attempt is the in-progress final quiz of a user.
type Attempt struct {
	QuizID   string    `json:"quiz_id"`
	State    State     `json:"state"`
	Question *Question `json:"question,omitempty"` // current question, without its answer
}
