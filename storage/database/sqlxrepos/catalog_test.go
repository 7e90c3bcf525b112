package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/company"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
	"github.com/trezcool/elimu/tests"
)

func TestCompanyRepository(t *testing.T) {
	ctx := context.Background()
	_, xdb, _ := testutil.PrepareDB(t)
	repo := sqlxrepos.NewCompanyRepository(xdb)

	acme := testutil.CreateCompany(t, repo, "Acme", "acme")
	got, err := repo.GetCompanyBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, got.ID)

	_, err = repo.CreateCompany(ctx, company.Company{Name: "Other", Slug: "acme", CreatedAt: time.Now()})
	assert.Error(t, err, "slugs are unique")

	cs, err := repo.QueryCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, cs, 1)

	require.NoError(t, repo.DeleteCompany(ctx, acme.ID))
	assert.Equal(t, company.ErrNotFound, repo.DeleteCompany(ctx, acme.ID))
	_, err = repo.GetCompany(ctx, acme.ID)
	assert.Equal(t, company.ErrNotFound, err)
}

func TestCourseRepository(t *testing.T) {
	ctx := context.Background()
	_, xdb, _ := testutil.PrepareDB(t)
	repo := sqlxrepos.NewCourseRepository(xdb)
	acme := testutil.CreateCompany(t, sqlxrepos.NewCompanyRepository(xdb), "Acme", "acme")
	globex := testutil.CreateCompany(t, sqlxrepos.NewCompanyRepository(xdb), "Globex", "globex")

	shared := testutil.CreateCourse(t, repo, "", "Onboarding", "welcome", "tools")
	acmeCourse := testutil.CreateCourse(t, repo, acme.ID, "Acme Safety")
	testutil.CreateCourse(t, repo, globex.ID, "Globex Sales")

	tests := []struct {
		name      string
		companyID string
		want      []string
	}{
		{name: "company sees its own and shared", companyID: acme.ID, want: []string{"Acme Safety", "Onboarding"}},
		{name: "no company sees shared only", want: []string{"Onboarding"}},
		{name: "all", companyID: course.AllCompanies, want: []string{"Acme Safety", "Globex Sales", "Onboarding"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := repo.QueryCourses(ctx, tt.companyID, []core.DBOrdering{{Field: "title", Ascending: true}})
			require.NoError(t, err)
			titles := make([]string, 0, len(cs))
			for _, c := range cs {
				titles = append(titles, c.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	got, err := repo.GetCourse(ctx, acmeCourse.ID)
	require.NoError(t, err)
	assert.Equal(t, acme.ID, got.CompanyID)

	lessons, err := repo.ListLessons(ctx, shared.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "welcome", lessons[0].Title)
	assert.Equal(t, 1, lessons[1].Position)

	require.NoError(t, repo.DeleteLesson(ctx, shared.ID, lessons[0].ID))
	assert.Equal(t, course.ErrLessonNotFound, repo.DeleteLesson(ctx, shared.ID, lessons[0].ID))

	require.NoError(t, repo.DeleteCourse(ctx, shared.ID))
	_, err = repo.GetCourse(ctx, shared.ID)
	assert.Equal(t, course.ErrNotFound, err)
}

func TestEbookRepository(t *testing.T) {
	ctx := context.Background()
	_, xdb, _ := testutil.PrepareDB(t)
	repo := sqlxrepos.NewEbookRepository(xdb)
	acme := testutil.CreateCompany(t, sqlxrepos.NewCompanyRepository(xdb), "Acme", "acme")

	book := testutil.CreateEbook(t, repo, acme.ID, "Handbook", 80)
	testutil.CreateEbook(t, repo, "", "Atlas", 300)

	got, err := repo.GetEbook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.TotalPages)

	es, err := repo.QueryEbooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, "Atlas", es[0].Title)

	es, err = repo.QueryEbooks(ctx, acme.ID)
	require.NoError(t, err)
	assert.Len(t, es, 2)

	_, err = repo.CreateEbook(ctx, ebook.Ebook{Title: "Empty", TotalPages: 0, CreatedAt: time.Now()})
	assert.Error(t, err, "an ebook has at least one page")

	require.NoError(t, repo.DeleteEbook(ctx, book.ID))
	_, err = repo.GetEbook(ctx, book.ID)
	assert.Equal(t, ebook.ErrNotFound, err)
}
