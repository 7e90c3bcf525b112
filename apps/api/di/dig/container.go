// Package dig_container wires the api dependencies with a dig.Container.
package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/company"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
	"github.com/trezcool/elimu/core/level"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/cache"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/services/jobs"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	"github.com/trezcool/elimu/storage/database/boiledrepos"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sql.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, conf); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newRedis returns nil when redis is not configured: the api then runs without cache nor login limits.
func newRedis(conf *core.Config, logger core.Logger) *redis.Client {
	if conf.Redis.Addr == "" {
		logger.Info("redis not configured: levels cache & login rate limit disabled")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cachesvc.NewClient(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return client
}

func newLevelCache(client *redis.Client, conf *core.Config) level.Cache {
	if client == nil {
		return nil
	}
	return cachesvc.NewLevelCache(client, conf)
}

func newLoginLimiter(client *redis.Client, conf *core.Config) echoapi.LoginLimiter {
	if client == nil {
		return nil
	}
	return cachesvc.NewLoginLimiter(client, conf)
}

func newProgressService(repo progress.Repository, courses *course.Service, ebooks *ebook.Service, conf *core.Config) *progress.Service {
	return progress.NewService(repo, courses, ebooks, conf)
}

// newQuizService also registers the final quiz completion flow.
func newQuizService(
	db core.DB,
	repo quiz.Repository,
	courses *course.Service,
	progressSvc *progress.Service,
	mailer core.EmailService,
) *quiz.Service {
	svc := quiz.NewService(db, repo, courses)
	svc.OnComplete(progressSvc.QuizCompletedHandler(mailer))
	return svc
}

func newScheduler(levels *level.Service, logger core.Logger, conf *core.Config) *jobsvc.Scheduler {
	return jobsvc.NewScheduler(levels, logger, conf)
}

type ServerParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	UserSvc     user.ServiceInterface
	PwdReset    *user.PasswordReset
	CompanySvc  *company.Service
	CourseSvc   *course.Service
	EbookSvc    *ebook.Service
	ProgressSvc *progress.Service
	QuizSvc     *quiz.Service
	LevelSvc    *level.Service
	Limiter     echoapi.LoginLimiter
	Validate    *validator.Validate
	Translator  ut.Translator
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, p.Logger, &echoapi.Deps{
		UserSvc:     p.UserSvc,
		PwdReset:    p.PwdReset,
		CompanySvc:  p.CompanySvc,
		CourseSvc:   p.CourseSvc,
		EbookSvc:    p.EbookSvc,
		ProgressSvc: p.ProgressSvc,
		QuizSvc:     p.QuizSvc,
		LevelSvc:    p.LevelSvc,
		Limiter:     p.Limiter,
		Validate:    p.Validate,
		Translator:  p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(database.NewSqlxDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newRedis))
	must(c.Provide(newLevelCache))
	must(c.Provide(newLoginLimiter))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewCompanyRepository, dig.As(new(company.Repository))))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(sqlxrepos.NewEbookRepository, dig.As(new(ebook.Repository))))
	must(c.Provide(sqlxrepos.NewLevelRepository, dig.As(new(level.Repository))))
	must(c.Provide(boiledrepos.NewProgressRepository, dig.As(new(progress.Repository))))
	must(c.Provide(boiledrepos.NewQuizRepository, dig.As(new(quiz.Repository))))

	// services
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(user.NewPasswordReset))
	must(c.Provide(company.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(ebook.NewService))
	must(c.Provide(newProgressService))
	must(c.Provide(newQuizService))
	must(c.Provide(level.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
