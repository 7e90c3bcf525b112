package echoapi

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/company"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
	"github.com/trezcool/elimu/core/level"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

var errNoPermsToSetRoles = "not enough rights to set these roles"

// adminApi serves the back office. Every route requires an admin token.
type adminApi struct {
	users     user.ServiceInterface
	companies *company.Service
	courses   *course.Service
	ebooks    *ebook.Service
	quizzes   quiz.ServiceInterface
	levels    level.ServiceInterface
	validate  *validator.Validate
}

func registerAdminAPI(g *echo.Group, deps *Deps) {
	api := adminApi{
		users:     deps.UserSvc,
		companies: deps.CompanySvc,
		courses:   deps.CourseSvc,
		ebooks:    deps.EbookSvc,
		quizzes:   deps.QuizSvc,
		levels:    deps.LevelSvc,
		validate:  deps.Validate,
	}

	ug := g.Group("/users")
	ug.POST("", api.createUser)
	ug.GET("", api.queryUsers)
	ug.DELETE("", api.destroyUsers)
	ug.GET("/roles", api.queryRoles)
	ug.GET("/:id", api.retrieveUser)
	ug.PUT("/:id", api.updateUser)
	ug.DELETE("/:id", api.destroyUser)
	ug.POST("/:id/points", api.awardPoints)

	cg := g.Group("/companies", adminMiddleware(user.RoleAdminOwner))
	cg.POST("", api.createCompany)
	cg.GET("", api.queryCompanies)
	cg.GET("/:id", api.retrieveCompany)
	cg.DELETE("/:id", api.destroyCompany)

	content := adminMiddleware(user.RoleAdminOwner, user.RoleAdminContent)

	crg := g.Group("/courses", content)
	crg.POST("", api.createCourse)
	crg.DELETE("/:id", api.destroyCourse)
	crg.POST("/:id/lessons", api.addLesson)
	crg.DELETE("/:id/lessons/:lessonId", api.destroyLesson)

	eg := g.Group("/ebooks", content)
	eg.POST("", api.createEbook)
	eg.DELETE("/:id", api.destroyEbook)

	qg := g.Group("/quizzes", content)
	qg.POST("", api.createQuiz)
	qg.GET("/:id", api.retrieveQuiz)
	qg.DELETE("/:id", api.destroyQuiz)
	qg.POST("/:id/questions", api.addQuestions)
	qg.DELETE("/:id/questions/:questionId", api.destroyQuestion)

	lg := g.Group("/levels", content)
	lg.POST("", api.createLevel)
	lg.GET("/integrity", api.checkLevels)
	lg.PUT("/:id", api.updateLevel)
	lg.DELETE("/:id", api.destroyLevel)
}

// Users

func (api *adminApi) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.users); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := api.users.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *adminApi) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, userOrderings...); err != nil {
		return err
	}

	users, err := api.users.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *adminApi) retrieveUser(ctx echo.Context) error {
	usr, err := api.users.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) updateUser(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := api.users.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(usr, api.validate, api.users); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err = api.users.Update(reqCtx, usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) destroyUser(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	// ctxUser cannot delete themselves
	if ctx.Param("id") == sess.UserID {
		return errHttpForbidden
	}
	if _, err = api.users.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if err = api.users.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) destroyUsers(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, sess.UserID); i < len(query.IDs) && query.IDs[i] == sess.UserID {
		return errHttpForbidden
	}

	if err := api.users.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) awardPoints(ctx echo.Context) error {
	var data user.AwardPoints
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AwardPoints")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.users.AwardPoints(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "awarding points")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// Companies

func (api *adminApi) createCompany(ctx echo.Context) error {
	var data company.NewCompany
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCompany")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	c, err := api.companies.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating company")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *adminApi) queryCompanies(ctx echo.Context) error {
	cs, err := api.companies.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying companies")
	}
	if cs == nil {
		cs = []company.Company{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *adminApi) retrieveCompany(ctx echo.Context) error {
	c, err := api.companies.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting company")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) destroyCompany(ctx echo.Context) error {
	if err := api.companies.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting company")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Courses & lessons

func (api *adminApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	c, err := api.courses.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *adminApi) destroyCourse(ctx echo.Context) error {
	if err := api.courses.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) addLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	l, err := api.courses.AddLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *adminApi) destroyLesson(ctx echo.Context) error {
	if err := api.courses.DeleteLesson(ctx.Request().Context(), ctx.Param("id"), ctx.Param("lessonId")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Ebooks

func (api *adminApi) createEbook(ctx echo.Context) error {
	var data ebook.NewEbook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEbook")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	e, err := api.ebooks.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating ebook")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *adminApi) destroyEbook(ctx echo.Context) error {
	if err := api.ebooks.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting ebook")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Quizzes

func (api *adminApi) createQuiz(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	var data quiz.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	qz, err := api.quizzes.CreateQuiz(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, qz)
}

// retrieveQuiz returns the quiz with its questions, correct answers included.
func (api *adminApi) retrieveQuiz(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	qz, err := api.quizzes.GetQuiz(ctx.Request().Context(), sess, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *adminApi) destroyQuiz(ctx echo.Context) error {
	if err := api.quizzes.DeleteQuiz(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// addQuestions appends a list of questions to a quiz, all or nothing.
func (api *adminApi) addQuestions(ctx echo.Context) error {
	var req AddQuestionsRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to AddQuestionsRequest")
	}
	data := req.Questions
	if len(data) == 0 {
		return core.NewFieldError("questions", "at least one question is required")
	}
	for i := range data {
		if err := data[i].Validate(api.validate); err != nil {
			if core.IsValidationError(err) {
				verr := errors.Cause(err).(*core.ValidationError)
				for j := range verr.Fields {
					verr.Fields[j].Field = fmt.Sprintf("questions[%d].%s", i, verr.Fields[j].Field)
				}
			}
			return err
		}
	}

	qs, err := api.quizzes.ImportQuestions(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "importing questions")
	}
	return ctx.JSON(http.StatusCreated, qs)
}

func (api *adminApi) destroyQuestion(ctx echo.Context) error {
	if err := api.quizzes.DeleteQuestion(ctx.Request().Context(), ctx.Param("id"), ctx.Param("questionId")); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Levels

func (api *adminApi) createLevel(ctx echo.Context) error {
	var data level.NewLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLevel")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	lvl, err := api.levels.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating level")
	}
	return ctx.JSON(http.StatusCreated, lvl)
}

func (api *adminApi) updateLevel(ctx echo.Context) error {
	var data level.UpdateLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLevel")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	lvl, err := api.levels.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating level")
	}
	return ctx.JSON(http.StatusOK, lvl)
}

func (api *adminApi) destroyLevel(ctx echo.Context) error {
	if err := api.levels.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting level")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// checkLevels reports the gaps and overlaps of the level ladder.
func (api *adminApi) checkLevels(ctx echo.Context) error {
	err := api.levels.CheckIntegrity(ctx.Request().Context())
	if err == nil {
		return ctx.JSON(http.StatusOK, IntegrityResponse{OK: true, Issues: []level.Issue{}})
	}
	var ierr *level.IntegrityError
	if errors.As(err, &ierr) {
		return ctx.JSON(http.StatusOK, IntegrityResponse{Issues: ierr.Issues})
	}
	return errors.Wrap(err, "checking levels")
}

type (
	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}

	AddQuestionsRequest struct {
		Questions []quiz.NewQuestion `json:"questions"`
	}

	IntegrityResponse struct {
		OK     bool          `json:"ok"`
		Issues []level.Issue `json:"issues"`
	}
)
