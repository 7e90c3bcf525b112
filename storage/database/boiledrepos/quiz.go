package boiledrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
)

type quizRow struct {
	ID        string    `boil:"id"`
	CourseID  string    `boil:"course_id"`
	Title     string    `boil:"title"`
	CreatedAt time.Time `boil:"created_at"`
}

func (r quizRow) unboil() quiz.Quiz {
	return quiz.Quiz{ID: r.ID, CourseID: r.CourseID, Title: r.Title, CreatedAt: r.CreatedAt.UTC()}
}

type questionRow struct {
	ID            string `boil:"id"`
	QuizID        string `boil:"quiz_id"`
	Position      int    `boil:"position"`
	QuestionText  string `boil:"question_text"`
	Options       string `boil:"options"` // JSON list
	CorrectAnswer string `boil:"correct_answer"`
}

func (r questionRow) unboil() (quiz.Question, error) {
	q := quiz.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Position:      r.Position,
		Text:          r.QuestionText,
		CorrectAnswer: r.CorrectAnswer,
	}
	if err := json.Unmarshal([]byte(r.Options), &q.Options); err != nil {
		return quiz.Question{}, errors.Wrapf(err, "decoding options of question %s", r.ID)
	}
	return q, nil
}

type responseRow struct {
	ID         string    `boil:"id"`
	QuizID     string    `boil:"quiz_id"`
	QuestionID string    `boil:"question_id"`
	UserID     string    `boil:"user_id"`
	AnswerText string    `boil:"answer_text"`
	IsCorrect  bool      `boil:"is_correct"`
	CreatedAt  time.Time `boil:"created_at"`
}

func (r responseRow) unboil() quiz.Response {
	return quiz.Response{
		ID:         r.ID,
		QuizID:     r.QuizID,
		QuestionID: r.QuestionID,
		UserID:     r.UserID,
		AnswerText: r.AnswerText,
		IsCorrect:  r.IsCorrect,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

const (
	quizColumns     = "id, course_id, title, created_at"
	questionColumns = "id, quiz_id, position, question_text, options, correct_answer"
	responseColumns = "id, quiz_id, question_id, user_id, answer_text, is_correct, created_at"
)

type quizRepository struct {
	execHolder
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(exec core.DBExecutor) *quizRepository {
	return &quizRepository{execHolder{exec: exec}}
}

func (repo quizRepository) getQuiz(ctx context.Context, where string, arg string, exec []core.DBExecutor) (quiz.Quiz, error) {
	var row quizRow
	err := queries.Raw("SELECT "+quizColumns+" FROM quizzes WHERE "+where+" = $1", arg).
		Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "selecting quiz")
	}
	return row.unboil(), nil
}

func (repo quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	if qz.ID == "" {
		qz.ID = uuid.New().String()
	}
	qz.CreatedAt = qz.CreatedAt.UTC()
	_, err := queries.Raw(
		"INSERT INTO quizzes ("+quizColumns+") VALUES ($1, $2, $3, $4)",
		qz.ID, qz.CourseID, qz.Title, qz.CreatedAt,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return qz, nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, id string, exec ...core.DBExecutor) (quiz.Quiz, error) {
	return repo.getQuiz(ctx, "id", id, exec)
}

func (repo quizRepository) GetQuizByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) (quiz.Quiz, error) {
	return repo.getQuiz(ctx, "course_id", courseID, exec)
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := queries.Raw("DELETE FROM quizzes WHERE id = $1", id).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.ErrNotFound
	}
	return nil
}

func (repo quizRepository) CreateQuestion(ctx context.Context, q quiz.Question, exec ...core.DBExecutor) (quiz.Question, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return quiz.Question{}, errors.Wrap(err, "encoding options")
	}
	_, err = queries.Raw(
		"INSERT INTO quiz_questions ("+questionColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		q.ID, q.QuizID, q.Position, q.Text, string(opts), q.CorrectAnswer,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return quiz.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo quizRepository) ListQuestions(ctx context.Context, quizID string, exec ...core.DBExecutor) ([]quiz.Question, error) {
	var rows []questionRow
	err := queries.Raw(
		"SELECT "+questionColumns+" FROM quiz_questions WHERE quiz_id = $1 ORDER BY position",
		quizID,
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}

	qs := make([]quiz.Question, 0, len(rows))
	for _, r := range rows {
		q, err := r.unboil()
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func (repo quizRepository) DeleteQuestion(ctx context.Context, quizID, id string, exec ...core.DBExecutor) error {
	res, err := queries.Raw("DELETE FROM quiz_questions WHERE quiz_id = $1 AND id = $2", quizID, id).
		ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.ErrQuestionNotFound
	}
	return nil
}

func (repo quizRepository) CreateResponse(ctx context.Context, r quiz.Response, exec ...core.DBExecutor) (quiz.Response, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	_, err := queries.Raw(
		"INSERT INTO quiz_responses ("+responseColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		r.ID, r.QuizID, r.QuestionID, r.UserID, r.AnswerText, r.IsCorrect, r.CreatedAt,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return quiz.Response{}, errors.Wrap(err, "inserting response")
	}
	return r, nil
}

func (repo quizRepository) ListResponses(ctx context.Context, quizID, userID string, exec ...core.DBExecutor) ([]quiz.Response, error) {
	var rows []responseRow
	err := queries.Raw(
		"SELECT "+responseColumns+" FROM quiz_responses WHERE quiz_id = $1 AND user_id = $2 ORDER BY created_at",
		quizID, userID,
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting responses")
	}
	rs := make([]quiz.Response, 0, len(rows))
	for _, r := range rows {
		rs = append(rs, r.unboil())
	}
	return rs, nil
}
