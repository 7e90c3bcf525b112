package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
)

var (
	ErrNotFound        = errors.New("progress not found")
	ErrVersionConflict = errors.New("progress was modified concurrently")
)

type (
	Repository interface {
		// GetCourseProgress returns ErrNotFound when the user never started the course.
		GetCourseProgress(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (CourseProgress, error)
		ListCourseProgress(ctx context.Context, userID string, exec ...core.DBExecutor) ([]CourseProgress, error)
		// UpsertCourseProgress inserts or updates the (user, course) row.
		// With keepHigher, a stored percentage greater than the new one is kept.
		UpsertCourseProgress(ctx context.Context, p CourseProgress, keepHigher bool, exec ...core.DBExecutor) (CourseProgress, error)
		// CompareAndSetCourseProgress writes p only if the stored version is version (0: no row yet),
		// ErrVersionConflict otherwise.
		CompareAndSetCourseProgress(ctx context.Context, p CourseProgress, version int, exec ...core.DBExecutor) (CourseProgress, error)

		GetReadingProgress(ctx context.Context, userID, ebookID string, exec ...core.DBExecutor) (ReadingProgress, error)
		UpsertReadingProgress(ctx context.Context, p ReadingProgress, exec ...core.DBExecutor) (ReadingProgress, error)
		CompareAndSetReadingProgress(ctx context.Context, p ReadingProgress, version int, exec ...core.DBExecutor) (ReadingProgress, error)
	}

	CourseGetter interface {
		// Get returns the course (with ordered lessons) if visible in sess.
		Get(ctx context.Context, sess core.Session, id string) (course.Course, error)
	}

	EbookGetter interface {
		Get(ctx context.Context, sess core.Session, id string) (ebook.Ebook, error)
	}

	ServiceInterface interface {
		GetCourseProgress(ctx context.Context, sess core.Session, courseID string) (CourseProgress, error)
		ListCourseProgress(ctx context.Context, sess core.Session) ([]CourseProgress, error)
		SetCourseProgress(ctx context.Context, sess core.Session, courseID string, percent int) (CourseProgress, error)
		CompareAndSetCourseProgress(ctx context.Context, sess core.Session, courseID string, percent, version int) (CourseProgress, error)
		CompleteLesson(ctx context.Context, sess core.Session, courseID, lessonID string) (CourseProgress, error)
		GetReadingProgress(ctx context.Context, sess core.Session, ebookID string) (ReadingProgress, error)
		SetReadingProgress(ctx context.Context, sess core.Session, ebookID string, page int) (ReadingProgress, error)
		CompareAndSetReadingProgress(ctx context.Context, sess core.Session, ebookID string, page, version int) (ReadingProgress, error)
	}

	Service struct {
		repo            Repository
		courses         CourseGetter
		ebooks          EbookGetter
		allowRegression bool
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, courses CourseGetter, ebooks EbookGetter, conf *core.Config) *Service {
	return &Service{
		repo:            repo,
		courses:         courses,
		ebooks:          ebooks,
		allowRegression: conf.Progress.AllowRegression,
	}
}

// Course progress

// GetCourseProgress returns the progress of the session user for a course.
// A course never started yields a zero progress (version 0), not an error.
func (svc *Service) GetCourseProgress(ctx context.Context, sess core.Session, courseID string) (CourseProgress, error) {
	p, err := svc.repo.GetCourseProgress(ctx, sess.UserID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return CourseProgress{UserID: sess.UserID, CourseID: courseID}, nil
		}
		return CourseProgress{}, errors.Wrap(err, "getting course progress")
	}
	return p, nil
}

func (svc *Service) ListCourseProgress(ctx context.Context, sess core.Session) ([]CourseProgress, error) {
	return svc.repo.ListCourseProgress(ctx, sess.UserID)
}

// SetCourseProgress stores percent (clamped to [0, 100]) for the session user.
// Unless regressions are allowed, a lower percentage never replaces a higher stored one.
func (svc *Service) SetCourseProgress(ctx context.Context, sess core.Session, courseID string, percent int) (CourseProgress, error) {
	if _, err := svc.courses.Get(ctx, sess, courseID); err != nil {
		return CourseProgress{}, err
	}
	return svc.setCourseProgress(ctx, sess, courseID, percent)
}

func (svc *Service) setCourseProgress(ctx context.Context, sess core.Session, courseID string, percent int) (CourseProgress, error) {
	p := CourseProgress{
		UserID:          sess.UserID,
		CourseID:        courseID,
		ProgressPercent: ClampPercent(percent),
		UpdatedAt:       time.Now().UTC(),
	}
	p, err := svc.repo.UpsertCourseProgress(ctx, p, !svc.allowRegression)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "upserting course progress")
	}
	return p, nil
}

// CompareAndSetCourseProgress is SetCourseProgress guarded by the version the caller last read.
// The regression guard does not apply: the caller explicitly overwrites what it read.
func (svc *Service) CompareAndSetCourseProgress(ctx context.Context, sess core.Session, courseID string, percent, version int) (CourseProgress, error) {
	if _, err := svc.courses.Get(ctx, sess, courseID); err != nil {
		return CourseProgress{}, err
	}
	p := CourseProgress{
		UserID:          sess.UserID,
		CourseID:        courseID,
		ProgressPercent: ClampPercent(percent),
		UpdatedAt:       time.Now().UTC(),
	}
	p, err := svc.repo.CompareAndSetCourseProgress(ctx, p, version)
	if err != nil {
		if errors.Cause(err) == ErrVersionConflict {
			return CourseProgress{}, ErrVersionConflict
		}
		return CourseProgress{}, errors.Wrap(err, "setting course progress")
	}
	return p, nil
}

// CompleteLesson marks the lesson as completed: the course progress becomes
// ComputeProgress(index of the lesson, number of lessons).
func (svc *Service) CompleteLesson(ctx context.Context, sess core.Session, courseID, lessonID string) (CourseProgress, error) {
	c, err := svc.courses.Get(ctx, sess, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	idx := course.IndexOf(c.Lessons, lessonID)
	if idx < 0 {
		return CourseProgress{}, course.ErrLessonNotFound
	}
	percent, err := ComputeProgress(idx, len(c.Lessons))
	if err != nil {
		return CourseProgress{}, err
	}
	return svc.setCourseProgress(ctx, sess, courseID, percent)
}

// CompleteCourse sets the course progress to 100%.
func (svc *Service) CompleteCourse(ctx context.Context, sess core.Session, courseID string) (CourseProgress, error) {
	return svc.setCourseProgress(ctx, sess, courseID, MaxPercent)
}

// Reading progress

// GetReadingProgress returns the current page of the session user for an ebook.
// An ebook never opened yields the first page (version 0), not an error.
func (svc *Service) GetReadingProgress(ctx context.Context, sess core.Session, ebookID string) (ReadingProgress, error) {
	p, err := svc.repo.GetReadingProgress(ctx, sess.UserID, ebookID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ReadingProgress{UserID: sess.UserID, EbookID: ebookID, CurrentPage: FirstPage}, nil
		}
		return ReadingProgress{}, errors.Wrap(err, "getting reading progress")
	}
	return p, nil
}

func (svc *Service) readingProgress(ctx context.Context, sess core.Session, ebookID string, page int) (ReadingProgress, error) {
	e, err := svc.ebooks.Get(ctx, sess, ebookID)
	if err != nil {
		return ReadingProgress{}, err
	}
	page, err = ClampPage(page, e.TotalPages)
	if err != nil {
		return ReadingProgress{}, err
	}
	return ReadingProgress{
		UserID:      sess.UserID,
		EbookID:     ebookID,
		CurrentPage: page,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// SetReadingProgress stores the page turned to (clamped to [1, total pages]). The last page turned wins.
func (svc *Service) SetReadingProgress(ctx context.Context, sess core.Session, ebookID string, page int) (ReadingProgress, error) {
	p, err := svc.readingProgress(ctx, sess, ebookID, page)
	if err != nil {
		return ReadingProgress{}, err
	}
	if p, err = svc.repo.UpsertReadingProgress(ctx, p); err != nil {
		return ReadingProgress{}, errors.Wrap(err, "upserting reading progress")
	}
	return p, nil
}

func (svc *Service) CompareAndSetReadingProgress(ctx context.Context, sess core.Session, ebookID string, page, version int) (ReadingProgress, error) {
	p, err := svc.readingProgress(ctx, sess, ebookID, page)
	if err != nil {
		return ReadingProgress{}, err
	}
	if p, err = svc.repo.CompareAndSetReadingProgress(ctx, p, version); err != nil {
		if errors.Cause(err) == ErrVersionConflict {
			return ReadingProgress{}, ErrVersionConflict
		}
		return ReadingProgress{}, errors.Wrap(err, "setting reading progress")
	}
	return p, nil
}
