package boiledrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database/boiledrepos"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
	"github.com/trezcool/elimu/tests"
)

type fixtures struct {
	userID   string
	courseID string
	ebookID  string
}

func setupProgress(t *testing.T) (progress.Repository, fixtures) {
	db, xdb, _ := testutil.PrepareDB(t)
	usr := testutil.CreateUser(t, sqlxrepos.NewUserRepository(xdb), "Ada", "ada@example.com", "", []string{user.RoleLearner}, true)
	crs := testutil.CreateCourse(t, sqlxrepos.NewCourseRepository(xdb), "", "Go 101", "intro", "types", "errors")
	eb := testutil.CreateEbook(t, sqlxrepos.NewEbookRepository(xdb), "", "The Go Book", 120)
	return boiledrepos.NewProgressRepository(db), fixtures{userID: usr.ID, courseID: crs.ID, ebookID: eb.ID}
}

func TestProgressRepository_courseProgress(t *testing.T) {
	ctx := context.Background()
	repo, fx := setupProgress(t)

	_, err := repo.GetCourseProgress(ctx, fx.userID, fx.courseID)
	assert.Equal(t, progress.ErrNotFound, err)

	now := time.Now().UTC().Truncate(time.Second)
	p, err := repo.UpsertCourseProgress(ctx, progress.CourseProgress{
		UserID: fx.userID, CourseID: fx.courseID, ProgressPercent: 67, UpdatedAt: now,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 67, p.ProgressPercent)
	assert.Equal(t, 1, p.Version)
	assert.True(t, now.Equal(p.UpdatedAt))
	assert.Nil(t, p.CompletedAt)

	// lower value is ignored when keeping the higher one
	p, err = repo.UpsertCourseProgress(ctx, progress.CourseProgress{
		UserID: fx.userID, CourseID: fx.courseID, ProgressPercent: 33, UpdatedAt: now,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 67, p.ProgressPercent)
	assert.Equal(t, 1, p.Version)

	p, err = repo.UpsertCourseProgress(ctx, progress.CourseProgress{
		UserID: fx.userID, CourseID: fx.courseID, ProgressPercent: 100, UpdatedAt: now,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 100, p.ProgressPercent)
	assert.Equal(t, 2, p.Version)
	require.NotNil(t, p.CompletedAt)

	// regression when allowed; the completion time stays
	p, err = repo.UpsertCourseProgress(ctx, progress.CourseProgress{
		UserID: fx.userID, CourseID: fx.courseID, ProgressPercent: 33, UpdatedAt: now.Add(time.Minute),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 33, p.ProgressPercent)
	assert.Equal(t, 3, p.Version)
	assert.NotNil(t, p.CompletedAt)

	ps, err := repo.ListCourseProgress(ctx, fx.userID)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, p, ps[0])
}

func TestProgressRepository_CompareAndSetCourseProgress(t *testing.T) {
	ctx := context.Background()
	repo, fx := setupProgress(t)
	p := progress.CourseProgress{UserID: fx.userID, CourseID: fx.courseID, ProgressPercent: 33, UpdatedAt: time.Now()}

	got, err := repo.CompareAndSetCourseProgress(ctx, p, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)

	_, err = repo.CompareAndSetCourseProgress(ctx, p, 0)
	assert.Equal(t, progress.ErrVersionConflict, err)

	p.ProgressPercent = 10
	got, err = repo.CompareAndSetCourseProgress(ctx, p, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ProgressPercent)
	assert.Equal(t, 2, got.Version)

	_, err = repo.CompareAndSetCourseProgress(ctx, p, 1)
	assert.Equal(t, progress.ErrVersionConflict, err)
}

func TestProgressRepository_readingProgress(t *testing.T) {
	ctx := context.Background()
	repo, fx := setupProgress(t)

	_, err := repo.GetReadingProgress(ctx, fx.userID, fx.ebookID)
	assert.Equal(t, progress.ErrNotFound, err)

	for i, page := range []int{37, 12} {
		p, err := repo.UpsertReadingProgress(ctx, progress.ReadingProgress{
			UserID: fx.userID, EbookID: fx.ebookID, CurrentPage: page, UpdatedAt: time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, page, p.CurrentPage)
		assert.Equal(t, i+1, p.Version)
	}

	p := progress.ReadingProgress{UserID: fx.userID, EbookID: fx.ebookID, CurrentPage: 50, UpdatedAt: time.Now()}
	_, err = repo.CompareAndSetReadingProgress(ctx, p, 1)
	assert.Equal(t, progress.ErrVersionConflict, err)

	got, err := repo.CompareAndSetReadingProgress(ctx, p, 2)
	require.NoError(t, err)
	assert.Equal(t, 50, got.CurrentPage)
	assert.Equal(t, 3, got.Version)
}
