package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
)

type key struct{ user, item string }

// memRepo is an in-memory Repository.
type memRepo struct {
	mu       sync.Mutex
	courses  map[key]CourseProgress
	readings map[key]ReadingProgress
	failNext error
}

func newMemRepo() *memRepo {
	return &memRepo{courses: make(map[key]CourseProgress), readings: make(map[key]ReadingProgress)}
}

func (r *memRepo) fail() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *memRepo) GetCourseProgress(_ context.Context, userID, courseID string, _ ...core.DBExecutor) (CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return CourseProgress{}, err
	}
	p, ok := r.courses[key{userID, courseID}]
	if !ok {
		return CourseProgress{}, ErrNotFound
	}
	return p, nil
}

func (r *memRepo) ListCourseProgress(_ context.Context, userID string, _ ...core.DBExecutor) ([]CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ps []CourseProgress
	for k, p := range r.courses {
		if k.user == userID {
			ps = append(ps, p)
		}
	}
	return ps, nil
}

func (r *memRepo) UpsertCourseProgress(_ context.Context, p CourseProgress, keepHigher bool, _ ...core.DBExecutor) (CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return CourseProgress{}, err
	}
	k := key{p.UserID, p.CourseID}
	if old, ok := r.courses[k]; ok {
		if keepHigher && old.ProgressPercent >= p.ProgressPercent {
			return old, nil
		}
		p.Version = old.Version + 1
	} else {
		p.Version = 1
	}
	r.courses[k] = p
	return p, nil
}

func (r *memRepo) CompareAndSetCourseProgress(_ context.Context, p CourseProgress, version int, _ ...core.DBExecutor) (CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{p.UserID, p.CourseID}
	if r.courses[k].Version != version {
		return CourseProgress{}, ErrVersionConflict
	}
	p.Version = version + 1
	r.courses[k] = p
	return p, nil
}

func (r *memRepo) GetReadingProgress(_ context.Context, userID, ebookID string, _ ...core.DBExecutor) (ReadingProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.readings[key{userID, ebookID}]
	if !ok {
		return ReadingProgress{}, ErrNotFound
	}
	return p, nil
}

func (r *memRepo) UpsertReadingProgress(_ context.Context, p ReadingProgress, _ ...core.DBExecutor) (ReadingProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{p.UserID, p.EbookID}
	p.Version = r.readings[k].Version + 1
	r.readings[k] = p
	return p, nil
}

func (r *memRepo) CompareAndSetReadingProgress(_ context.Context, p ReadingProgress, version int, _ ...core.DBExecutor) (ReadingProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{p.UserID, p.EbookID}
	if r.readings[k].Version != version {
		return ReadingProgress{}, ErrVersionConflict
	}
	p.Version = version + 1
	r.readings[k] = p
	return p, nil
}

type catalog struct {
	courses map[string]course.Course
	ebooks  map[string]ebook.Ebook
}

func (c catalog) Get(_ context.Context, _ core.Session, id string) (course.Course, error) {
	crs, ok := c.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

type ebookCatalog catalog

func (c ebookCatalog) Get(_ context.Context, _ core.Session, id string) (ebook.Ebook, error) {
	e, ok := c.ebooks[id]
	if !ok {
		return ebook.Ebook{}, ebook.ErrNotFound
	}
	return e, nil
}

func setup(allowRegression bool) (*Service, *memRepo) {
	cat := catalog{
		courses: map[string]course.Course{
			"go101": {ID: "go101", Title: "Go 101", Lessons: []course.Lesson{
				{ID: "l1", Position: 0}, {ID: "l2", Position: 1}, {ID: "l3", Position: 2},
			}},
			"empty": {ID: "empty", Title: "Nothing yet"},
		},
		ebooks: map[string]ebook.Ebook{
			"book": {ID: "book", TotalPages: 120},
			"void": {ID: "void", TotalPages: 0},
		},
	}
	conf := core.NewTestConfig()
	conf.Progress.AllowRegression = allowRegression
	repo := newMemRepo()
	return NewService(repo, cat, ebookCatalog(cat), conf), repo
}

var (
	ctx  = context.Background()
	sess = core.Session{UserID: "u1"}
)

func TestService_GetCourseProgress_absentIsZero(t *testing.T) {
	svc, _ := setup(false)

	p, err := svc.GetCourseProgress(ctx, sess, "go101")
	require.NoError(t, err)
	assert.Equal(t, 0, p.ProgressPercent)
	assert.False(t, p.Started())
	assert.Equal(t, "go101", p.CourseID)
}

func TestService_GetCourseProgress_storeError(t *testing.T) {
	svc, repo := setup(false)
	repo.failNext = errors.New("connection reset")

	_, err := svc.GetCourseProgress(ctx, sess, "go101")
	require.Error(t, err)
	assert.NotEqual(t, ErrNotFound, errors.Cause(err))
}

func TestService_SetCourseProgress(t *testing.T) {
	tests := []struct {
		name            string
		allowRegression bool
		writes          []int
		want            int
	}{
		{name: "clamps above 100", writes: []int{150}, want: 100},
		{name: "clamps below 0", writes: []int{-5}, want: 0},
		{name: "increases", writes: []int{33, 67}, want: 67},
		{name: "keeps the higher value", writes: []int{67, 33}, want: 67},
		{name: "regression allowed", allowRegression: true, writes: []int{67, 33}, want: 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setup(tt.allowRegression)
			for _, w := range tt.writes {
				_, err := svc.SetCourseProgress(ctx, sess, "go101", w)
				require.NoError(t, err)
			}
			p, err := svc.GetCourseProgress(ctx, sess, "go101")
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.ProgressPercent)
		})
	}
}

func TestService_SetCourseProgress_unknownCourse(t *testing.T) {
	svc, _ := setup(false)
	_, err := svc.SetCourseProgress(ctx, sess, "nope", 10)
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func TestService_SetCourseProgress_writeFailureKeepsPriorState(t *testing.T) {
	svc, repo := setup(false)
	_, err := svc.SetCourseProgress(ctx, sess, "go101", 33)
	require.NoError(t, err)

	repo.failNext = errors.New("disk full")
	_, err = svc.SetCourseProgress(ctx, sess, "go101", 67)
	require.Error(t, err)

	p, err := svc.GetCourseProgress(ctx, sess, "go101")
	require.NoError(t, err)
	assert.Equal(t, 33, p.ProgressPercent)
}

func TestService_CompleteLesson(t *testing.T) {
	svc, _ := setup(false)

	p, err := svc.CompleteLesson(ctx, sess, "go101", "l2")
	require.NoError(t, err)
	assert.Equal(t, 67, p.ProgressPercent)
	assert.Equal(t, 1, p.Version)

	p, err = svc.CompleteLesson(ctx, sess, "go101", "l3")
	require.NoError(t, err)
	assert.Equal(t, 100, p.ProgressPercent)
	assert.True(t, p.Completed())

	// re-watching the first lesson does not undo the completion
	p, err = svc.CompleteLesson(ctx, sess, "go101", "l1")
	require.NoError(t, err)
	assert.Equal(t, 100, p.ProgressPercent)

	_, err = svc.CompleteLesson(ctx, sess, "go101", "unknown")
	assert.Equal(t, course.ErrLessonNotFound, errors.Cause(err))

	_, err = svc.CompleteLesson(ctx, sess, "empty", "l1")
	assert.Equal(t, course.ErrLessonNotFound, errors.Cause(err))
}

func TestService_CompareAndSetCourseProgress(t *testing.T) {
	svc, _ := setup(false)

	p, err := svc.CompareAndSetCourseProgress(ctx, sess, "go101", 33, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)

	// stale version
	_, err = svc.CompareAndSetCourseProgress(ctx, sess, "go101", 50, 0)
	assert.Equal(t, ErrVersionConflict, err)

	// explicit overwrite may go down
	p, err = svc.CompareAndSetCourseProgress(ctx, sess, "go101", 20, 1)
	require.NoError(t, err)
	assert.Equal(t, 20, p.ProgressPercent)
	assert.Equal(t, 2, p.Version)
}

func TestService_ReadingProgress(t *testing.T) {
	svc, _ := setup(false)

	p, err := svc.GetReadingProgress(ctx, sess, "book")
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage, "absent progress opens the first page")
	assert.False(t, p.Started())

	p, err = svc.SetReadingProgress(ctx, sess, "book", 37)
	require.NoError(t, err)
	assert.Equal(t, 37, p.CurrentPage)

	// going back is allowed for reading
	p, err = svc.SetReadingProgress(ctx, sess, "book", 12)
	require.NoError(t, err)
	assert.Equal(t, 12, p.CurrentPage)

	p, err = svc.SetReadingProgress(ctx, sess, "book", 500)
	require.NoError(t, err)
	assert.Equal(t, 120, p.CurrentPage)

	p, err = svc.SetReadingProgress(ctx, sess, "book", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage)

	got, err := svc.GetReadingProgress(ctx, sess, "book")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = svc.SetReadingProgress(ctx, sess, "void", 1)
	assert.Equal(t, ErrInvalidRange, errors.Cause(err))

	_, err = svc.SetReadingProgress(ctx, sess, "nope", 1)
	assert.Equal(t, ebook.ErrNotFound, errors.Cause(err))
}

func TestService_CompareAndSetReadingProgress(t *testing.T) {
	svc, _ := setup(false)

	p, err := svc.CompareAndSetReadingProgress(ctx, sess, "book", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)

	_, err = svc.CompareAndSetReadingProgress(ctx, sess, "book", 9, 3)
	assert.Equal(t, ErrVersionConflict, err)
}
