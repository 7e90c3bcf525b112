package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/company"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	"github.com/trezcool/elimu/storage/database/boiledrepos"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	defer logger.Close()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	xdb := database.NewSqlxDB(db, conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(xdb))

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db,
		out:       os.Stdout,
		usrSvc:    user.NewService(sqlxrepos.NewUserRepository(xdb)),
		companies: company.NewService(sqlxrepos.NewCompanyRepository(xdb)),
		quizSvc:   quiz.NewService(db, boiledrepos.NewQuizRepository(db), courseSvc),
		validate:  validate,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %v\n", err)
		}
		os.Exit(1)
	}
}
