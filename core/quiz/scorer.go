package quiz

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrNoQuestions   = errors.New("quiz has no questions")
	ErrOutOfOrder    = errors.New("answer does not match the current question")
	ErrCompleted     = errors.New("quiz already completed")
	ErrInvalidOption = errors.New("option index out of range")
)

// State is the position of a Scorer: Question(Index) while not Completed.
type State struct {
	Index     int  `json:"index"`
	Total     int  `json:"total"`
	Completed bool `json:"completed"`
}

type (
	// RecordFunc persists a response; the scorer does not advance when it fails.
	RecordFunc func(ctx context.Context, q Question, answer string, correct bool) error
	// CompleteFunc is called once, right after the last question is answered.
	CompleteFunc func(ctx context.Context, score Score) error
)

// Result is the outcome of one submission.
type Result struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	IsCorrect  bool   `json:"is_correct"`
	State      State  `json:"state"`
	Score      *Score `json:"score,omitempty"` // only once completed
}

// Scorer walks a fixed list of questions in order: Question(0) -> ... -> Question(N-1) -> Completed.
// It is safe for concurrent use.
type Scorer struct {
	mu         sync.Mutex
	questions  []Question
	current    int
	correct    int
	completed  bool
	record     RecordFunc
	onComplete CompleteFunc
}

func NewScorer(questions []Question, record RecordFunc, onComplete CompleteFunc) (*Scorer, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &Scorer{
		questions:  questions,
		record:     record,
		onComplete: onComplete,
	}, nil
}

// IsCorrect compares answer with the correct answer of q: exact, case-sensitive, untrimmed.
func IsCorrect(q Question, answer string) bool {
	return answer == q.CorrectAnswer
}

// CalculateScore returns the aggregate score; the percentage of an empty quiz is 0.
func CalculateScore(correct, total int) Score {
	s := Score{Correct: correct, Total: total}
	if total > 0 {
		s.Percentage = int(math.Round(float64(correct) / float64(total) * 100))
	}
	return s
}

func (s *Scorer) state() State {
	return State{Index: s.current, Total: len(s.questions), Completed: s.completed}
}

// State returns the current state.
func (s *Scorer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// Current returns the current question; ok is false once completed.
func (s *Scorer) Current() (q Question, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return Question{}, false
	}
	return s.questions[s.current], true
}

// Submit answers the question at index, which must be the current one.
func (s *Scorer) Submit(ctx context.Context, index int, answer string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(index); err != nil {
		return Result{}, err
	}
	return s.submit(ctx, answer)
}

// SubmitOption answers the question at index with the text of its option at option.
func (s *Scorer) SubmitOption(ctx context.Context, index, option int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(index); err != nil {
		return Result{}, err
	}
	q := s.questions[s.current]
	if option < 0 || option >= len(q.Options) {
		return Result{}, ErrInvalidOption
	}
	return s.submit(ctx, q.Options[option])
}

func (s *Scorer) check(index int) error {
	if s.completed {
		return ErrCompleted
	}
	if index != s.current {
		return ErrOutOfOrder
	}
	return nil
}

func (s *Scorer) submit(ctx context.Context, answer string) (Result, error) {
	q := s.questions[s.current]
	correct := IsCorrect(q, answer)
	if s.record != nil {
		if err := s.record(ctx, q, answer, correct); err != nil {
			return Result{}, errors.Wrap(err, "recording response")
		}
	}

	if correct {
		s.correct++
	}
	s.current++
	res := Result{QuestionID: q.ID, Answer: answer, IsCorrect: correct}
	if s.current < len(s.questions) {
		res.State = s.state()
		return res, nil
	}

	s.completed = true
	score := CalculateScore(s.correct, len(s.questions))
	res.State = s.state()
	res.Score = &score
	if s.onComplete != nil {
		if err := s.onComplete(ctx, score); err != nil {
			return res, errors.Wrap(err, "completing quiz")
		}
	}
	return res, nil
}

// Preview scores the stored responses of a user against questions.
// The latest response of each question counts; unanswered questions count as wrong.
func Preview(questions []Question, responses []Response) Score {
	latest := make(map[string]Response, len(questions))
	for _, r := range responses {
		if prev, ok := latest[r.QuestionID]; !ok || !r.CreatedAt.Before(prev.CreatedAt) {
			latest[r.QuestionID] = r
		}
	}

	var correct int
	for _, q := range questions {
		if r, ok := latest[q.ID]; ok && IsCorrect(q, r.AnswerText) {
			correct++
		}
	}
	return CalculateScore(correct, len(questions))
}
