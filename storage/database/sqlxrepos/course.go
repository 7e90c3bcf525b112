package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type courseRow struct {
	ID          string         `db:"id"`
	CompanyID   sql.NullString `db:"company_id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	CoverURL    string         `db:"cover_url"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:          r.ID,
		CompanyID:   r.CompanyID.String,
		Title:       r.Title,
		Description: r.Description,
		CoverURL:    r.CoverURL,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type lessonRow struct {
	ID              string `db:"id"`
	CourseID        string `db:"course_id"`
	Position        int    `db:"position"`
	Title           string `db:"title"`
	VideoURL        string `db:"video_url"`
	DurationSeconds int    `db:"duration_seconds"`
}

const (
	courseColumns = "id, company_id, title, description, cover_url, created_at"
	lessonColumns = "id, course_id, position, title, video_url, duration_seconds"
)

var courseOrderings = map[string]bool{"title": true, "created_at": true}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO courses ("+courseColumns+") VALUES (:id, :company_id, :title, :description, :cover_url, :created_at)",
		courseRow{
			ID:          c.ID,
			CompanyID:   nullString(c.CompanyID),
			Title:       c.Title,
			Description: c.Description,
			CoverURL:    c.CoverURL,
			CreatedAt:   c.CreatedAt,
		},
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	q := repo.db.Rebind("SELECT " + courseColumns + " FROM courses WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	return row.course(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, companyID string, ordering []core.DBOrdering) ([]course.Course, error) {
	where, args := companyFilter(companyID)
	q := "SELECT " + courseColumns + " FROM courses" + where + orderBy(ordering, courseOrderings, "title ASC")

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	cs := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		cs = append(cs, r.course())
	}
	return cs, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM courses WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, course.ErrNotFound)
}

func (repo courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO lessons ("+lessonColumns+") VALUES (:id, :course_id, :position, :title, :video_url, :duration_seconds)",
		lessonRow(l),
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo courseRepository) ListLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	var rows []lessonRow
	q := repo.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE course_id = ? ORDER BY position")
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	ls := make([]course.Lesson, 0, len(rows))
	for _, r := range rows {
		ls = append(ls, course.Lesson(r))
	}
	return ls, nil
}

func (repo courseRepository) DeleteLesson(ctx context.Context, courseID, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM lessons WHERE course_id = ? AND id = ?"), courseID, id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return checkAffected(res, course.ErrLessonNotFound)
}
