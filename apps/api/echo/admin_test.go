package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/company"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
	"github.com/trezcool/elimu/core/level"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_adminApi_permissions(t *testing.T) {
	f := setup(t)
	learner := testutil.CreateUser(t, f.users, "Ada", "ada@example.com", "", nil, true)
	content := testutil.CreateUser(t, f.users, "Cid", "cid@example.com", "", []string{user.RoleAdminContent}, true)

	f.run(t, []httpTest{
		{name: "auth required", path: "/v1/admin/users", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{name: "admin required", path: "/v1/admin/users", token: f.token(t, learner), wantCode: http.StatusForbidden, wantData: errForbidden},
		{name: "content admin", path: "/v1/admin/users", token: f.token(t, content), wantCode: http.StatusOK},
		{
			name: "owner required", path: "/v1/admin/companies", token: f.token(t, content),
			wantCode: http.StatusForbidden, wantData: errForbidden,
		},
	})
}

func Test_adminApi_users(t *testing.T) {
	f := setup(t)
	owner := testutil.CreateUser(t, f.users, "Owner", "owner@example.com", "", []string{user.RoleAdminOwner}, true)
	content := testutil.CreateUser(t, f.users, "Cid", "cid@example.com", "", []string{user.RoleAdminContent}, true)
	ada := testutil.CreateUser(t, f.users, "Ada", "ada@example.com", "", nil, true)
	token := f.token(t, owner)

	newUser := user.NewUser{
		Name: "Bob", Email: "bob@example.com", Password: "secret123", PasswordConfirm: "secret123",
	}

	f.run(t, []httpTest{
		{
			name: "create: invalid", method: http.MethodPost, path: "/v1/admin/users", token: token,
			body:     user.NewUser{Name: "Bob", Email: "bob@example.com", Password: "secret123", PasswordConfirm: "other"},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "create: email taken", method: http.MethodPost, path: "/v1/admin/users", token: token,
			body:     user.NewUser{Name: "Ada", Email: "ada@example.com", Password: "secret123", PasswordConfirm: "secret123"},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"email": user.ErrEmailExists.Error()},
		},
		{
			name: "create: roles above own", method: http.MethodPost, path: "/v1/admin/users", token: f.token(t, content),
			body: user.NewUser{
				Name: "Eve", Email: "eve@example.com", Password: "secret123", PasswordConfirm: "secret123",
				Roles: []string{user.RoleAdminOwner},
			},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"roles": "not enough rights to set these roles"},
		},
		{name: "delete self", method: http.MethodDelete, path: "/v1/admin/users/" + owner.ID, token: token, wantCode: http.StatusForbidden},
		{name: "unknown user", path: "/v1/admin/users/nope", token: token, wantCode: http.StatusNotFound},
	})

	t.Run("create", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/admin/users", token, newUser)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, []string{user.RoleLearner}, usr.Roles)
		assert.True(t, usr.IsActive)
	})

	t.Run("award points", func(t *testing.T) {
		path := "/v1/admin/users/" + ada.ID + "/points"
		rec := f.do(http.MethodPost, path, token, user.AwardPoints{Points: 150, Reason: "hackathon"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, 150, usr.Points)

		// never below 0
		rec = f.do(http.MethodPost, path, token, user.AwardPoints{Points: -500})
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &usr)
		assert.Equal(t, 0, usr.Points)

		rec = f.do(http.MethodPost, path, token, user.AwardPoints{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := f.do(http.MethodDelete, "/v1/admin/users/"+ada.ID, token)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = f.do(http.MethodGet, "/v1/admin/users/"+ada.ID, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_adminApi_catalog(t *testing.T) {
	f := setup(t)
	owner := testutil.CreateUser(t, f.users, "Owner", "owner@example.com", "", []string{user.RoleAdminOwner}, true)
	token := f.token(t, owner)

	rec := f.do(http.MethodPost, "/v1/admin/companies", token, company.NewCompany{Name: "Acme", Slug: "ACME", PrimaryColor: "#FF0000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var acme company.Company
	decode(t, rec, &acme)
	assert.Equal(t, "acme", acme.Slug)

	rec = f.do(http.MethodPost, "/v1/admin/companies", token, company.NewCompany{Name: "Acme 2", Slug: "acme"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/admin/courses", token, course.NewCourse{CompanyID: acme.ID, Title: "Onboarding"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var crs course.Course
	decode(t, rec, &crs)

	for i, title := range []string{"Welcome", "Tools"} {
		rec = f.do(http.MethodPost, "/v1/admin/courses/"+crs.ID+"/lessons", token, course.NewLesson{Title: title})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var l course.Lesson
		decode(t, rec, &l)
		assert.Equal(t, i, l.Position)
	}

	rec = f.do(http.MethodPost, "/v1/admin/ebooks", token, ebook.NewEbook{Title: "Handbook", TotalPages: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "an ebook has at least one page")

	rec = f.do(http.MethodPost, "/v1/admin/ebooks", token, ebook.NewEbook{Title: "Handbook", TotalPages: 42})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodDelete, "/v1/admin/courses/"+crs.ID, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodDelete, "/v1/admin/courses/"+crs.ID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_adminApi_levels(t *testing.T) {
	f := setup(t)
	f.seedLevels(t)
	owner := testutil.CreateUser(t, f.users, "Owner", "owner@example.com", "", []string{user.RoleAdminOwner}, true)
	token := f.token(t, owner)

	rec := f.do(http.MethodPost, "/v1/admin/levels", token, level.NewLevel{Name: "Overlap", MinPoints: 50, MaxPoints: ip(60)})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var fields map[string]string
	decode(t, rec, &fields)
	assert.Contains(t, fields, "levels")

	rec = f.do(http.MethodGet, "/v1/admin/levels/integrity", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report echoapi.IntegrityResponse
	decode(t, rec, &report)
	assert.True(t, report.OK)
	assert.Empty(t, report.Issues)

	levels, err := f.levels.List(ctxBg)
	require.NoError(t, err)
	master := levels[2]

	name := "Grand Master"
	rec = f.do(http.MethodPut, "/v1/admin/levels/"+master.ID, token, level.UpdateLevel{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var lvl level.Level
	decode(t, rec, &lvl)
	assert.Equal(t, "Grand Master", lvl.Name)
	assert.Nil(t, lvl.MaxPoints)

	// removing the middle level opens a gap
	rec = f.do(http.MethodDelete, "/v1/admin/levels/"+levels[1].ID, token)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = f.do(http.MethodGet, "/v1/admin/levels/integrity", token)
	decode(t, rec, &report)
	assert.False(t, report.OK)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, level.IssueGap, report.Issues[0].Kind)
}
