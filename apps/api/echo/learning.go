package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
	"github.com/trezcool/elimu/core/level"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

// learningApi serves the learner side: catalog, progress, final quizzes and levels.
type learningApi struct {
	users    user.ServiceInterface
	courses  *course.Service
	ebooks   *ebook.Service
	progress progress.ServiceInterface
	quizzes  quiz.ServiceInterface
	levels   level.ServiceInterface
	validate *validator.Validate
}

func registerLearningAPI(g *echo.Group, deps *Deps) {
	api := learningApi{
		users:    deps.UserSvc,
		courses:  deps.CourseSvc,
		ebooks:   deps.EbookSvc,
		progress: deps.ProgressSvc,
		quizzes:  deps.QuizSvc,
		levels:   deps.LevelSvc,
		validate: deps.Validate,
	}

	g.GET("/courses", api.listCourses)
	g.GET("/courses/:id", api.retrieveCourse)
	g.GET("/courses/:id/progress", api.courseProgress)
	g.PUT("/courses/:id/progress", api.setCourseProgress)
	g.POST("/courses/:id/lessons/:lessonId/complete", api.completeLesson)
	g.POST("/courses/:id/quiz/start", api.startQuiz)
	g.GET("/progress", api.listProgress)

	g.GET("/ebooks", api.listEbooks)
	g.GET("/ebooks/:id/progress", api.readingProgress)
	g.PUT("/ebooks/:id/progress", api.setReadingProgress)

	g.POST("/quizzes/:id/answers", api.submitAnswer)
	g.GET("/quizzes/:id/preview", api.previewQuiz)

	g.GET("/levels", api.listLevels)
	g.GET("/journey", api.journey)
}

// Courses

func (api *learningApi) listCourses(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, courseOrderings...); err != nil {
		return err
	}

	courses, err := api.courses.List(ctx.Request().Context(), sess, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *learningApi) retrieveCourse(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	crs, err := api.courses.Get(reqCtx, sess, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	p, err := api.progress.GetCourseProgress(reqCtx, sess, crs.ID)
	if err != nil {
		return errors.Wrap(err, "getting course progress")
	}
	return ctx.JSON(http.StatusOK, CourseDetail{Course: crs, Progress: p})
}

func (api *learningApi) courseProgress(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	if _, err = api.courses.Get(reqCtx, sess, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting course")
	}
	p, err := api.progress.GetCourseProgress(reqCtx, sess, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *learningApi) setCourseProgress(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	var data progress.SetCourseProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetCourseProgress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	var p progress.CourseProgress
	if data.Version != nil {
		p, err = api.progress.CompareAndSetCourseProgress(ctx.Request().Context(), sess, ctx.Param("id"), data.ProgressPercent, *data.Version)
	} else {
		p, err = api.progress.SetCourseProgress(ctx.Request().Context(), sess, ctx.Param("id"), data.ProgressPercent)
	}
	if err != nil {
		return errors.Wrap(err, "setting course progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *learningApi) completeLesson(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	p, err := api.progress.CompleteLesson(ctx.Request().Context(), sess, ctx.Param("id"), ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *learningApi) listProgress(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	ps, err := api.progress.ListCourseProgress(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "listing course progress")
	}
	if ps == nil {
		ps = []progress.CourseProgress{}
	}
	return ctx.JSON(http.StatusOK, ps)
}

// Ebooks

func (api *learningApi) listEbooks(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	ebooks, err := api.ebooks.List(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "listing ebooks")
	}
	if ebooks == nil {
		ebooks = []ebook.Ebook{}
	}
	return ctx.JSON(http.StatusOK, ebooks)
}

func (api *learningApi) readingProgress(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	if _, err = api.ebooks.Get(reqCtx, sess, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting ebook")
	}
	p, err := api.progress.GetReadingProgress(reqCtx, sess, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting reading progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *learningApi) setReadingProgress(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	var data progress.SetReadingProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetReadingProgress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	var p progress.ReadingProgress
	if data.Version != nil {
		p, err = api.progress.CompareAndSetReadingProgress(ctx.Request().Context(), sess, ctx.Param("id"), data.CurrentPage, *data.Version)
	} else {
		p, err = api.progress.SetReadingProgress(ctx.Request().Context(), sess, ctx.Param("id"), data.CurrentPage)
	}
	if err != nil {
		return errors.Wrap(err, "setting reading progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Final quiz

func (api *learningApi) startQuiz(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	qz, err := api.quizzes.GetCourseQuiz(reqCtx, sess, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course quiz")
	}
	attempt, err := api.quizzes.Start(reqCtx, sess, qz.ID)
	if err != nil {
		return errors.Wrap(err, "starting quiz")
	}
	return ctx.JSON(http.StatusOK, attempt)
}

func (api *learningApi) submitAnswer(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	var data quiz.Answer
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Answer")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.quizzes.Submit(ctx.Request().Context(), sess, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *learningApi) previewQuiz(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	score, err := api.quizzes.Preview(ctx.Request().Context(), sess, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "previewing quiz")
	}
	return ctx.JSON(http.StatusOK, score)
}

// Levels

func (api *learningApi) listLevels(ctx echo.Context) error {
	levels, err := api.levels.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing levels")
	}
	if levels == nil {
		levels = []level.Level{}
	}
	return ctx.JSON(http.StatusOK, levels)
}

func (api *learningApi) journey(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	journey, err := api.levels.Journey(ctx.Request().Context(), usr.Points)
	if err != nil {
		return errors.Wrap(err, "resolving journey")
	}
	return ctx.JSON(http.StatusOK, journey)
}

type CourseDetail struct {
	course.Course
	Progress progress.CourseProgress `json:"progress"`
}
