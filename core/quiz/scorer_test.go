package quiz

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capitals() []Question {
	return []Question{
		{ID: "q1", Position: 0, Text: "Capital of France?", Options: []string{"Paris", "Lyon", "Nice"}, CorrectAnswer: "Paris"},
		{ID: "q2", Position: 1, Text: "Capital of Kenya?", Options: []string{"Mombasa", "Nairobi"}, CorrectAnswer: "Nairobi"},
		{ID: "q3", Position: 2, Text: "Capital of DRC?", Options: []string{"Kinshasa", "Goma"}, CorrectAnswer: "Kinshasa"},
	}
}

type recorder struct {
	mu        sync.Mutex
	responses []Response
	fail      error
}

func (r *recorder) record(_ context.Context, q Question, answer string, correct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		err := r.fail
		r.fail = nil
		return err
	}
	r.responses = append(r.responses, Response{QuestionID: q.ID, AnswerText: answer, IsCorrect: correct})
	return nil
}

func TestNewScorer_noQuestions(t *testing.T) {
	_, err := NewScorer(nil, nil, nil)
	assert.Equal(t, ErrNoQuestions, err)
}

func TestScorer_fullRun(t *testing.T) {
	ctx := context.Background()
	rec := new(recorder)
	var completions int32
	var final Score
	sc, err := NewScorer(capitals(), rec.record, func(_ context.Context, s Score) error {
		atomic.AddInt32(&completions, 1)
		final = s
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, State{Index: 0, Total: 3}, sc.State())

	res, err := sc.Submit(ctx, 0, "Paris")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, State{Index: 1, Total: 3}, res.State)
	assert.Nil(t, res.Score)

	res, err = sc.Submit(ctx, 1, "Mombasa")
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 2, res.State.Index)
	assert.Equal(t, int32(0), atomic.LoadInt32(&completions))

	res, err = sc.Submit(ctx, 2, "Kinshasa")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, State{Index: 3, Total: 3, Completed: true}, res.State)
	require.NotNil(t, res.Score)
	assert.Equal(t, Score{Correct: 2, Total: 3, Percentage: 67}, *res.Score)
	assert.Equal(t, int32(1), atomic.LoadInt32(&completions))
	assert.Equal(t, *res.Score, final)

	_, ok := sc.Current()
	assert.False(t, ok)

	// no more transitions once completed
	_, err = sc.Submit(ctx, 3, "Paris")
	assert.Equal(t, ErrCompleted, err)
	_, err = sc.SubmitOption(ctx, 2, 0)
	assert.Equal(t, ErrCompleted, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&completions))
	assert.Len(t, rec.responses, 3)
}

func TestScorer_caseSensitive(t *testing.T) {
	ctx := context.Background()
	for _, answer := range []string{"paris", "PARIS", " Paris", "Paris "} {
		sc, err := NewScorer(capitals(), nil, nil)
		require.NoError(t, err)
		res, err := sc.Submit(ctx, 0, answer)
		require.NoError(t, err)
		assert.False(t, res.IsCorrect, "answer %q", answer)
	}
}

func TestScorer_recordFailureDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{fail: errors.New("insert failed")}
	sc, err := NewScorer(capitals(), rec.record, nil)
	require.NoError(t, err)

	_, err = sc.Submit(ctx, 0, "Paris")
	require.Error(t, err)
	assert.Equal(t, State{Index: 0, Total: 3}, sc.State())
	q, ok := sc.Current()
	require.True(t, ok)
	assert.Equal(t, "q1", q.ID)

	// retry succeeds
	res, err := sc.Submit(ctx, 0, "Paris")
	require.NoError(t, err)
	assert.Equal(t, 1, res.State.Index)
	assert.Len(t, rec.responses, 1)
}

func TestScorer_completionFailureIsReportedOnce(t *testing.T) {
	ctx := context.Background()
	var calls int
	sc, err := NewScorer(capitals()[:1], nil, func(context.Context, Score) error {
		calls++
		return errors.New("progress write failed")
	})
	require.NoError(t, err)

	res, err := sc.Submit(ctx, 0, "Paris")
	require.Error(t, err)
	assert.True(t, res.State.Completed)
	assert.Equal(t, 1, calls)

	_, err = sc.Submit(ctx, 1, "Paris")
	assert.Equal(t, ErrCompleted, err)
	assert.Equal(t, 1, calls)
}

func TestScorer_outOfOrder(t *testing.T) {
	ctx := context.Background()
	sc, err := NewScorer(capitals(), nil, nil)
	require.NoError(t, err)

	_, err = sc.Submit(ctx, 1, "Nairobi")
	assert.Equal(t, ErrOutOfOrder, err)
	_, err = sc.Submit(ctx, -1, "Paris")
	assert.Equal(t, ErrOutOfOrder, err)
	assert.Equal(t, 0, sc.State().Index)
}

func TestScorer_SubmitOption(t *testing.T) {
	ctx := context.Background()
	sc, err := NewScorer(capitals(), nil, nil)
	require.NoError(t, err)

	_, err = sc.SubmitOption(ctx, 0, 3)
	assert.Equal(t, ErrInvalidOption, err)
	_, err = sc.SubmitOption(ctx, 0, -1)
	assert.Equal(t, ErrInvalidOption, err)

	res, err := sc.SubmitOption(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Answer)
	assert.True(t, res.IsCorrect)

	res, err = sc.SubmitOption(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "Mombasa", res.Answer)
	assert.False(t, res.IsCorrect)
}

func TestScorer_concurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	var completions int32
	sc, err := NewScorer(capitals()[:1], nil, func(context.Context, Score) error {
		atomic.AddInt32(&completions, 1)
		return nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var accepted int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sc.Submit(ctx, 0, "Paris"); err == nil {
				atomic.AddInt32(&accepted, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(1), completions)
}

func TestCalculateScore(t *testing.T) {
	assert.Equal(t, Score{}, CalculateScore(0, 0))
	assert.Equal(t, Score{Correct: 1, Total: 3, Percentage: 33}, CalculateScore(1, 3))
	assert.Equal(t, Score{Correct: 3, Total: 3, Percentage: 100}, CalculateScore(3, 3))
	assert.Equal(t, Score{Correct: 1, Total: 8, Percentage: 13}, CalculateScore(1, 8))
}

func TestPreview(t *testing.T) {
	qs := capitals()
	t0 := time.Now()

	tests := []struct {
		name      string
		responses []Response
		want      Score
	}{
		{name: "no responses", want: Score{Correct: 0, Total: 3, Percentage: 0}},
		{
			name: "two of three",
			responses: []Response{
				{QuestionID: "q1", AnswerText: "Paris", CreatedAt: t0},
				{QuestionID: "q2", AnswerText: "Mombasa", CreatedAt: t0},
				{QuestionID: "q3", AnswerText: "Kinshasa", CreatedAt: t0},
			},
			want: Score{Correct: 2, Total: 3, Percentage: 67},
		},
		{
			name: "stored flag is ignored",
			responses: []Response{
				{QuestionID: "q1", AnswerText: "paris", IsCorrect: true, CreatedAt: t0},
			},
			want: Score{Correct: 0, Total: 3, Percentage: 0},
		},
		{
			name: "latest response counts",
			responses: []Response{
				{QuestionID: "q1", AnswerText: "Lyon", CreatedAt: t0},
				{QuestionID: "q1", AnswerText: "Paris", CreatedAt: t0.Add(time.Minute)},
				{QuestionID: "q2", AnswerText: "Nairobi", CreatedAt: t0},
				{QuestionID: "q2", AnswerText: "Mombasa", CreatedAt: t0.Add(time.Minute)},
			},
			want: Score{Correct: 1, Total: 3, Percentage: 33},
		},
		{
			name: "unknown question ignored",
			responses: []Response{
				{QuestionID: "gone", AnswerText: "Paris", CreatedAt: t0},
			},
			want: Score{Correct: 0, Total: 3, Percentage: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(qs, tt.responses))
		})
	}
}
