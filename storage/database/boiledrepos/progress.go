package boiledrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/progress"
)

type courseProgressRow struct {
	UserID          string    `boil:"user_id"`
	CourseID        string    `boil:"course_id"`
	ProgressPercent int       `boil:"progress_percent"`
	Version         int       `boil:"version"`
	UpdatedAt       time.Time `boil:"updated_at"`
	CompletedAt     null.Time `boil:"completed_at"`
}

func (r courseProgressRow) unboil() progress.CourseProgress {
	return progress.CourseProgress{
		UserID:          r.UserID,
		CourseID:        r.CourseID,
		ProgressPercent: r.ProgressPercent,
		Version:         r.Version,
		UpdatedAt:       r.UpdatedAt.UTC(),
		CompletedAt:     r.CompletedAt.Ptr(),
	}
}

type readingProgressRow struct {
	UserID      string    `boil:"user_id"`
	EbookID     string    `boil:"ebook_id"`
	CurrentPage int       `boil:"current_page"`
	Version     int       `boil:"version"`
	UpdatedAt   time.Time `boil:"updated_at"`
}

func (r readingProgressRow) unboil() progress.ReadingProgress {
	return progress.ReadingProgress{
		UserID:      r.UserID,
		EbookID:     r.EbookID,
		CurrentPage: r.CurrentPage,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

// completedAt is the completion time to store for p, if it is complete.
func completedAt(p progress.CourseProgress) null.Time {
	if !p.Completed() {
		return null.Time{}
	}
	return null.TimeFrom(p.UpdatedAt.UTC())
}

const (
	courseProgressColumns  = "user_id, course_id, progress_percent, version, updated_at, completed_at"
	readingProgressColumns = "user_id, ebook_id, current_page, version, updated_at"
)

type progressRepository struct {
	execHolder
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(exec core.DBExecutor) *progressRepository {
	return &progressRepository{execHolder{exec: exec}}
}

func (repo progressRepository) GetCourseProgress(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (progress.CourseProgress, error) {
	var row courseProgressRow
	err := queries.Raw(
		"SELECT "+courseProgressColumns+" FROM course_progress WHERE user_id = $1 AND course_id = $2",
		userID, courseID,
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return progress.CourseProgress{}, trapNoRowsErr(err, progress.ErrNotFound, "selecting course progress")
	}
	return row.unboil(), nil
}

func (repo progressRepository) ListCourseProgress(ctx context.Context, userID string, exec ...core.DBExecutor) ([]progress.CourseProgress, error) {
	var rows []courseProgressRow
	err := queries.Raw(
		"SELECT "+courseProgressColumns+" FROM course_progress WHERE user_id = $1 ORDER BY updated_at DESC",
		userID,
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting course progress")
	}
	ps := make([]progress.CourseProgress, 0, len(rows))
	for _, r := range rows {
		ps = append(ps, r.unboil())
	}
	return ps, nil
}

func (repo progressRepository) UpsertCourseProgress(ctx context.Context, p progress.CourseProgress, keepHigher bool, exec ...core.DBExecutor) (progress.CourseProgress, error) {
	q := `INSERT INTO course_progress (` + courseProgressColumns + `)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			progress_percent = excluded.progress_percent,
			version = course_progress.version + 1,
			updated_at = excluded.updated_at,
			completed_at = COALESCE(course_progress.completed_at, excluded.completed_at)`
	if keepHigher {
		q += " WHERE excluded.progress_percent > course_progress.progress_percent"
	}

	exe := repo.getExec(exec)
	_, err := queries.Raw(q, p.UserID, p.CourseID, p.ProgressPercent, p.UpdatedAt.UTC(), completedAt(p)).ExecContext(ctx, exe)
	if err != nil {
		return progress.CourseProgress{}, errors.Wrap(err, "upserting course progress")
	}
	return repo.GetCourseProgress(ctx, p.UserID, p.CourseID, exe)
}

func (repo progressRepository) CompareAndSetCourseProgress(ctx context.Context, p progress.CourseProgress, version int, exec ...core.DBExecutor) (progress.CourseProgress, error) {
	exe := repo.getExec(exec)

	var q *queries.Query
	if version == 0 {
		q = queries.Raw(
			`INSERT INTO course_progress (`+courseProgressColumns+`)
			VALUES ($1, $2, $3, 1, $4, $5)
			ON CONFLICT (user_id, course_id) DO NOTHING`,
			p.UserID, p.CourseID, p.ProgressPercent, p.UpdatedAt.UTC(), completedAt(p),
		)
	} else {
		q = queries.Raw(
			`UPDATE course_progress SET
				progress_percent = $1,
				version = version + 1,
				updated_at = $2,
				completed_at = COALESCE(completed_at, $3)
			WHERE user_id = $4 AND course_id = $5 AND version = $6`,
			p.ProgressPercent, p.UpdatedAt.UTC(), completedAt(p), p.UserID, p.CourseID, version,
		)
	}

	res, err := q.ExecContext(ctx, exe)
	if err != nil {
		return progress.CourseProgress{}, errors.Wrap(err, "writing course progress")
	}
	if n, err := res.RowsAffected(); err != nil {
		return progress.CourseProgress{}, errors.Wrap(err, "writing course progress")
	} else if n == 0 {
		return progress.CourseProgress{}, progress.ErrVersionConflict
	}
	return repo.GetCourseProgress(ctx, p.UserID, p.CourseID, exe)
}

func (repo progressRepository) GetReadingProgress(ctx context.Context, userID, ebookID string, exec ...core.DBExecutor) (progress.ReadingProgress, error) {
	var row readingProgressRow
	err := queries.Raw(
		"SELECT "+readingProgressColumns+" FROM reading_progress WHERE user_id = $1 AND ebook_id = $2",
		userID, ebookID,
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return progress.ReadingProgress{}, trapNoRowsErr(err, progress.ErrNotFound, "selecting reading progress")
	}
	return row.unboil(), nil
}

func (repo progressRepository) UpsertReadingProgress(ctx context.Context, p progress.ReadingProgress, exec ...core.DBExecutor) (progress.ReadingProgress, error) {
	exe := repo.getExec(exec)
	_, err := queries.Raw(
		`INSERT INTO reading_progress (`+readingProgressColumns+`)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (user_id, ebook_id) DO UPDATE SET
			current_page = excluded.current_page,
			version = reading_progress.version + 1,
			updated_at = excluded.updated_at`,
		p.UserID, p.EbookID, p.CurrentPage, p.UpdatedAt.UTC(),
	).ExecContext(ctx, exe)
	if err != nil {
		return progress.ReadingProgress{}, errors.Wrap(err, "upserting reading progress")
	}
	return repo.GetReadingProgress(ctx, p.UserID, p.EbookID, exe)
}

func (repo progressRepository) CompareAndSetReadingProgress(ctx context.Context, p progress.ReadingProgress, version int, exec ...core.DBExecutor) (progress.ReadingProgress, error) {
	exe := repo.getExec(exec)

	var q *queries.Query
	if version == 0 {
		q = queries.Raw(
			`INSERT INTO reading_progress (`+readingProgressColumns+`)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (user_id, ebook_id) DO NOTHING`,
			p.UserID, p.EbookID, p.CurrentPage, p.UpdatedAt.UTC(),
		)
	} else {
		q = queries.Raw(
			`UPDATE reading_progress SET current_page = $1, version = version + 1, updated_at = $2
			WHERE user_id = $3 AND ebook_id = $4 AND version = $5`,
			p.CurrentPage, p.UpdatedAt.UTC(), p.UserID, p.EbookID, version,
		)
	}

	res, err := q.ExecContext(ctx, exe)
	if err != nil {
		return progress.ReadingProgress{}, errors.Wrap(err, "writing reading progress")
	}
	if n, err := res.RowsAffected(); err != nil {
		return progress.ReadingProgress{}, errors.Wrap(err, "writing reading progress")
	} else if n == 0 {
		return progress.ReadingProgress{}, progress.ErrVersionConflict
	}
	return repo.GetReadingProgress(ctx, p.UserID, p.EbookID, exe)
}
