package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

var (
	ErrNotFound         = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrQuizExists       = errors.New("this course already has a quiz")
	ErrNoAttempt        = errors.New("no quiz in progress, start it first")
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, qz Quiz, exec ...core.DBExecutor) (Quiz, error)
		GetQuiz(ctx context.Context, id string, exec ...core.DBExecutor) (Quiz, error)
		GetQuizByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) (Quiz, error)
		DeleteQuiz(ctx context.Context, id string, exec ...core.DBExecutor) error
		CreateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)
		// ListQuestions returns the questions of a quiz ordered by position.
		ListQuestions(ctx context.Context, quizID string, exec ...core.DBExecutor) ([]Question, error)
		DeleteQuestion(ctx context.Context, quizID, id string, exec ...core.DBExecutor) error
		CreateResponse(ctx context.Context, r Response, exec ...core.DBExecutor) (Response, error)
		// ListResponses returns the responses of a user to a quiz, oldest first.
		ListResponses(ctx context.Context, quizID, userID string, exec ...core.DBExecutor) ([]Response, error)
	}

	CourseGetter interface {
		Get(ctx context.Context, sess core.Session, id string) (course.Course, error)
	}

	// CompletionHandler runs once when a user answers the last question of a quiz.
	CompletionHandler func(ctx context.Context, sess core.Session, qz Quiz, score Score) error

	ServiceInterface interface {
		CreateQuiz(ctx context.Context, sess core.Session, nq NewQuiz) (Quiz, error)
		GetQuiz(ctx context.Context, sess core.Session, id string) (Quiz, error)
		GetCourseQuiz(ctx context.Context, sess core.Session, courseID string) (Quiz, error)
		DeleteQuiz(ctx context.Context, id string) error
		AddQuestion(ctx context.Context, quizID string, nq NewQuestion) (Question, error)
		ImportQuestions(ctx context.Context, quizID string, nqs []NewQuestion) ([]Question, error)
		DeleteQuestion(ctx context.Context, quizID, id string) error
		Start(ctx context.Context, sess core.Session, quizID string) (Attempt, error)
		Submit(ctx context.Context, sess core.Session, quizID string, ans Answer) (Result, error)
		Preview(ctx context.Context, sess core.Session, quizID string) (Score, error)
	}

	Service struct {
		db         core.DB
		repo       Repository
		courses    CourseGetter
		attempts   *attempts
		importMu   sync.Mutex // positions are allocated one import at a time
		onComplete []CompletionHandler
	}
)

// AttemptIdleTimeout is how long an untouched attempt is kept before it must be restarted.
const AttemptIdleTimeout = 2 * time.Hour

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository, courses CourseGetter) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		courses:  courses,
		attempts: newAttempts(AttemptIdleTimeout),
	}
}

// OnComplete registers h to run when a quiz attempt completes. Handlers run in registration order.
func (svc *Service) OnComplete(h CompletionHandler) {
	svc.onComplete = append(svc.onComplete, h)
}

// Admin operations

func (svc *Service) CreateQuiz(ctx context.Context, sess core.Session, nq NewQuiz) (Quiz, error) {
	if _, err := svc.courses.Get(ctx, sess, nq.CourseID); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return Quiz{}, core.NewFieldError("course_id", course.ErrNotFound.Error())
		}
		return Quiz{}, errors.Wrap(err, "getting course")
	}
	if _, err := svc.repo.GetQuizByCourse(ctx, nq.CourseID); err == nil {
		return Quiz{}, core.NewValidationError(ErrQuizExists, core.FieldError{Field: "course_id", Error: ErrQuizExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Quiz{}, errors.Wrap(err, "getting course quiz")
	}

	return svc.repo.CreateQuiz(ctx, Quiz{
		CourseID:  nq.CourseID,
		Title:     nq.Title,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) withQuestions(ctx context.Context, sess core.Session, qz Quiz) (Quiz, error) {
	if _, err := svc.courses.Get(ctx, sess, qz.CourseID); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, errors.Wrap(err, "getting course")
	}
	qs, err := svc.repo.ListQuestions(ctx, qz.ID)
	if err != nil {
		return Quiz{}, errors.Wrap(err, "listing questions")
	}
	qz.Questions = qs
	return qz, nil
}

// GetQuiz returns the quiz with its questions if its course is visible in sess.
func (svc *Service) GetQuiz(ctx context.Context, sess core.Session, id string) (Quiz, error) {
	qz, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	return svc.withQuestions(ctx, sess, qz)
}

func (svc *Service) GetCourseQuiz(ctx context.Context, sess core.Session, courseID string) (Quiz, error) {
	qz, err := svc.repo.GetQuizByCourse(ctx, courseID)
	if err != nil {
		return Quiz{}, err
	}
	return svc.withQuestions(ctx, sess, qz)
}

func (svc *Service) DeleteQuiz(ctx context.Context, id string) error {
	if err := svc.repo.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	svc.attempts.evictQuiz(id)
	return nil
}

// AddQuestion appends a (validated) question to a quiz.
func (svc *Service) AddQuestion(ctx context.Context, quizID string, nq NewQuestion) (Question, error) {
	qs, err := svc.ImportQuestions(ctx, quizID, []NewQuestion{nq})
	if err != nil {
		return Question{}, err
	}
	return qs[0], nil
}

// ImportQuestions appends (validated) questions to a quiz, all or nothing.
// Attempts in progress on the quiz are dropped.
func (svc *Service) ImportQuestions(ctx context.Context, quizID string, nqs []NewQuestion) ([]Question, error) {
	svc.importMu.Lock()
	defer svc.importMu.Unlock()

	created := make([]Question, 0, len(nqs))
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repo.GetQuiz(ctx, quizID, tx); err != nil {
			return err
		}
		existing, err := svc.repo.ListQuestions(ctx, quizID, tx)
		if err != nil {
			return errors.Wrap(err, "listing questions")
		}
		next := 0
		if n := len(existing); n > 0 {
			next = existing[n-1].Position + 1
		}

		for i, nq := range nqs {
			if err := nq.checkOptions(); err != nil {
				return err
			}
			q, err := svc.repo.CreateQuestion(ctx, Question{
				QuizID:        quizID,
				Position:      next + i,
				Text:          nq.Text,
				Options:       nq.Options,
				CorrectAnswer: nq.CorrectAnswer,
			}, tx)
			if err != nil {
				return errors.Wrap(err, "creating question")
			}
			created = append(created, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.attempts.evictQuiz(quizID)
	return created, nil
}

// DeleteQuestion removes a question. Attempts in progress on its quiz are dropped.
func (svc *Service) DeleteQuestion(ctx context.Context, quizID, id string) error {
	if err := svc.repo.DeleteQuestion(ctx, quizID, id); err != nil {
		return err
	}
	svc.attempts.evictQuiz(quizID)
	return nil
}

// Learner operations

func attemptOf(qz Quiz, sc *Scorer) Attempt {
	a := Attempt{QuizID: qz.ID, State: sc.State()}
	if q, ok := sc.Current(); ok {
		q = q.Public()
		a.Question = &q
	}
	return a
}

// Start starts the final quiz for the session user, or resumes the attempt in progress.
func (svc *Service) Start(ctx context.Context, sess core.Session, quizID string) (Attempt, error) {
	qz, err := svc.GetQuiz(ctx, sess, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if sc, ok := svc.attempts.resume(sess.UserID, quizID, qz.Questions); ok {
		return attemptOf(qz, sc), nil
	}

	record := func(ctx context.Context, q Question, answer string, correct bool) error {
		_, err := svc.repo.CreateResponse(ctx, Response{
			QuizID:     qz.ID,
			QuestionID: q.ID,
			UserID:     sess.UserID,
			AnswerText: answer,
			IsCorrect:  correct,
			CreatedAt:  time.Now().UTC(),
		})
		return err
	}
	complete := func(ctx context.Context, score Score) error {
		for _, h := range svc.onComplete {
			if err := h(ctx, sess, qz, score); err != nil {
				return err
			}
		}
		return nil
	}

	sc, err := NewScorer(qz.Questions, record, complete)
	if err != nil {
		return Attempt{}, err
	}
	sc = svc.attempts.putIfAbsent(sess.UserID, quizID, qz.Questions, sc)
	return attemptOf(qz, sc), nil
}

// Submit answers the current question of the attempt in progress.
func (svc *Service) Submit(ctx context.Context, sess core.Session, quizID string, ans Answer) (Result, error) {
	sc, ok := svc.attempts.get(sess.UserID, quizID)
	if !ok {
		return Result{}, ErrNoAttempt
	}

	var res Result
	var err error
	if ans.OptionIndex != nil {
		res, err = sc.SubmitOption(ctx, ans.QuestionIndex, *ans.OptionIndex)
	} else if ans.Answer != nil {
		res, err = sc.Submit(ctx, ans.QuestionIndex, *ans.Answer)
	} else {
		return Result{}, core.NewFieldError("answer", "one of answer or option_index is required")
	}
	if res.State.Completed {
		svc.attempts.delete(sess.UserID, quizID)
	}
	return res, err
}

// Preview scores the stored answers of the session user.
func (svc *Service) Preview(ctx context.Context, sess core.Session, quizID string) (Score, error) {
	qz, err := svc.GetQuiz(ctx, sess, quizID)
	if err != nil {
		return Score{}, err
	}
	responses, err := svc.repo.ListResponses(ctx, quizID, sess.UserID)
	if err != nil {
		return Score{}, errors.Wrap(err, "listing responses")
	}
	return Preview(qz.Questions, responses), nil
}

type attemptKey struct {
	userID string
	quizID string
}

type attempt struct {
	scorer      *Scorer
	questionIDs []string
	lastUsed    time.Time
}

func (at *attempt) matches(questions []Question) bool {
	if len(at.questionIDs) != len(questions) {
		return false
	}
	for i, q := range questions {
		if at.questionIDs[i] != q.ID {
			return false
		}
	}
	return true
}

// attempts holds the in-progress scorers per (user, quiz).
// An attempt idle for longer than ttl is dropped.
type attempts struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	byKey map[attemptKey]*attempt
}

func newAttempts(ttl time.Duration) *attempts {
	return &attempts{ttl: ttl, now: time.Now, byKey: make(map[attemptKey]*attempt)}
}

// lookup returns the live attempt at k and touches it. Callers hold mu.
func (a *attempts) lookup(k attemptKey) (*attempt, bool) {
	at, ok := a.byKey[k]
	if !ok {
		return nil, false
	}
	now := a.now()
	if now.Sub(at.lastUsed) > a.ttl {
		delete(a.byKey, k)
		return nil, false
	}
	at.lastUsed = now
	return at, true
}

func (a *attempts) get(userID, quizID string) (*Scorer, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	at, ok := a.lookup(attemptKey{userID, quizID})
	if !ok {
		return nil, false
	}
	return at.scorer, true
}

// resume returns the attempt in progress if it was built on questions.
// A stale attempt is dropped.
func (a *attempts) resume(userID, quizID string, questions []Question) (*Scorer, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := attemptKey{userID, quizID}
	at, ok := a.lookup(k)
	if !ok {
		return nil, false
	}
	if !at.matches(questions) {
		delete(a.byKey, k)
		return nil, false
	}
	return at.scorer, true
}

// putIfAbsent stores sc unless a live attempt on the same questions exists, and returns the stored one.
func (a *attempts) putIfAbsent(userID, quizID string, questions []Question, sc *Scorer) *Scorer {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweep()

	k := attemptKey{userID, quizID}
	if existing, ok := a.lookup(k); ok && existing.matches(questions) {
		return existing.scorer
	}
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	a.byKey[k] = &attempt{scorer: sc, questionIDs: ids, lastUsed: a.now()}
	return sc
}

func (a *attempts) delete(userID, quizID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.byKey, attemptKey{userID, quizID})
}

func (a *attempts) evictQuiz(quizID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.byKey {
		if k.quizID == quizID {
			delete(a.byKey, k)
		}
	}
}

// sweep drops the idle attempts. Callers hold mu.
func (a *attempts) sweep() {
	now := a.now()
	for k, at := range a.byKey {
		if now.Sub(at.lastUsed) > a.ttl {
			delete(a.byKey, k)
		}
	}
}
