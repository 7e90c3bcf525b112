package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	ErrNotFound       = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses returns the courses of companyID plus the shared ones (no company); all when companyID is "*".
		QueryCourses(ctx context.Context, companyID string, ordering []core.DBOrdering) ([]Course, error)
		DeleteCourse(ctx context.Context, id string) error
		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		// ListLessons returns the lessons of a course ordered by position.
		ListLessons(ctx context.Context, courseID string) ([]Lesson, error)
		DeleteLesson(ctx context.Context, courseID, id string) error
	}

	Service struct {
		repo Repository
	}
)

// AllCompanies selects courses of every company in Repository.QueryCourses.
const AllCompanies = "*"

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	return svc.repo.CreateCourse(ctx, Course{
		CompanyID:   nc.CompanyID,
		Title:       nc.Title,
		Description: nc.Description,
		CoverURL:    nc.CoverURL,
		CreatedAt:   time.Now().UTC(),
	})
}

// List returns the courses visible in sess.
func (svc *Service) List(ctx context.Context, sess core.Session, ordering []core.DBOrdering) ([]Course, error) {
	companyID := sess.CompanyID
	if sess.IsAdmin {
		companyID = AllCompanies
	}
	return svc.repo.QueryCourses(ctx, companyID, ordering)
}

// Get returns a course visible in sess along with its lessons.
func (svc *Service) Get(ctx context.Context, sess core.Session, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !sess.CanAccess(c.CompanyID) {
		return Course{}, ErrNotFound
	}
	if c.Lessons, err = svc.repo.ListLessons(ctx, id); err != nil {
		return Course{}, errors.Wrap(err, "listing lessons")
	}
	return c, nil
}

// ListLessons returns the ordered lessons of a course.
func (svc *Service) ListLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.ListLessons(ctx, courseID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

// AddLesson appends a lesson at the end of the course.
func (svc *Service) AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Lesson{}, err
	}
	lessons, err := svc.repo.ListLessons(ctx, courseID)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "listing lessons")
	}
	pos := 0
	if n := len(lessons); n > 0 {
		pos = lessons[n-1].Position + 1
	}
	return svc.repo.CreateLesson(ctx, Lesson{
		CourseID:        courseID,
		Position:        pos,
		Title:           nl.Title,
		VideoURL:        nl.VideoURL,
		DurationSeconds: nl.DurationSeconds,
	})
}

func (svc *Service) DeleteLesson(ctx context.Context, courseID, id string) error {
	return svc.repo.DeleteLesson(ctx, courseID, id)
}

// IndexOf returns the index of the lesson with id in lessons, or -1.
func IndexOf(lessons []Lesson, id string) int {
	for i, l := range lessons {
		if l.ID == id {
			return i
		}
	}
	return -1
}
