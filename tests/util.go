// Package testutil holds the database & fixture helpers shared by the tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/company"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database"
)

// PrepareDB opens a fresh, migrated, in-memory sqlite database closed at the end of the test.
func PrepareDB(t *testing.T) (*sql.DB, *sqlx.DB, *core.Config) {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Database.Path = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.New().String())

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db, database.NewSqlxDB(db, conf), conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	companyID ...string,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if len(companyID) > 0 {
		usr.CompanyID = companyID[0]
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCompany(t *testing.T, repo company.Repository, name, slug string) company.Company {
	t.Helper()

	c, err := repo.CreateCompany(context.Background(), company.Company{Name: name, Slug: slug, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateCompany() failed: %v", err)
	}
	return c
}

// CreateCourse creates a course with one lesson per title, in order.
func CreateCourse(t *testing.T, repo course.Repository, companyID, title string, lessons ...string) course.Course {
	t.Helper()

	ctx := context.Background()
	c, err := repo.CreateCourse(ctx, course.Course{CompanyID: companyID, Title: title, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	for i, lt := range lessons {
		l, err := repo.CreateLesson(ctx, course.Lesson{CourseID: c.ID, Position: i, Title: lt})
		if err != nil {
			t.Fatalf("CreateCourse() failed: %v", err)
		}
		c.Lessons = append(c.Lessons, l)
	}
	return c
}

func CreateEbook(t *testing.T, repo ebook.Repository, companyID, title string, totalPages int) ebook.Ebook {
	t.Helper()

	e, err := repo.CreateEbook(context.Background(), ebook.Ebook{
		CompanyID:  companyID,
		Title:      title,
		TotalPages: totalPages,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateEbook() failed: %v", err)
	}
	return e
}
