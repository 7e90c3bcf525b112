package progress

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
)

const courseCompletedTemplate = "course_completed"

type CourseCompletedData struct {
	Name        string
	CourseID    string
	CourseTitle string
	Correct     int
	Total       int
	Percentage  int
}

// QuizCompletedHandler returns the quiz.CompletionHandler of the final quiz flow:
// the course is marked as completed and the learner is congratulated by email (when mailer is set).
func (svc *Service) QuizCompletedHandler(mailer core.EmailService) quiz.CompletionHandler {
	return func(ctx context.Context, sess core.Session, qz quiz.Quiz, score quiz.Score) error {
		if _, err := svc.CompleteCourse(ctx, sess, qz.CourseID); err != nil {
			return errors.Wrap(err, "completing course")
		}
		if mailer == nil || sess.Email == "" {
			return nil
		}

		crs, err := svc.courses.Get(ctx, sess, qz.CourseID)
		if err != nil {
			return errors.Wrap(err, "getting course")
		}
		mailer.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: sess.Name, Address: sess.Email}},
			Subject:      "You completed " + crs.Title,
			TemplateName: courseCompletedTemplate,
			TemplateData: CourseCompletedData{
				Name:        sess.Name,
				CourseID:    crs.ID,
				CourseTitle: crs.Title,
				Correct:     score.Correct,
				Total:       score.Total,
				Percentage:  score.Percentage,
			},
		})
		return nil
	}
}
