package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
)

type recMailer struct {
	sent []*core.EmailMessage
}

func (m *recMailer) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func TestService_QuizCompletedHandler(t *testing.T) {
	svc, _ := setup(false)
	mailer := new(recMailer)
	learner := core.Session{UserID: "u1", Name: "Ada", Email: "ada@example.com"}

	handler := svc.QuizCompletedHandler(mailer)
	err := handler(ctx, learner, quiz.Quiz{ID: "q1", CourseID: "go101"}, quiz.Score{Correct: 2, Total: 3, Percentage: 67})
	require.NoError(t, err)

	p, err := svc.GetCourseProgress(ctx, learner, "go101")
	require.NoError(t, err)
	assert.True(t, p.Completed())

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "ada@example.com", msg.To[0].Address)
	assert.Equal(t, courseCompletedTemplate, msg.TemplateName)
	assert.Equal(t, CourseCompletedData{
		Name: "Ada", CourseID: "go101", CourseTitle: "Go 101", Correct: 2, Total: 3, Percentage: 67,
	}, msg.TemplateData)

	// no email without an address
	err = svc.QuizCompletedHandler(mailer)(ctx, sess, quiz.Quiz{CourseID: "go101"}, quiz.Score{})
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1)
}
