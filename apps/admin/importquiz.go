package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/services/importer"
)

var adminSession = core.Session{IsAdmin: true}

// importQuiz appends the questions of a spreadsheet to the final quiz of a course, created if needed.
// Nothing is imported when a row is invalid.
func (cli *commandLine) importQuiz(courseID, path, sheet, title string) error {
	ctx := context.Background()

	res, err := importer.ImportFile(path, sheet, cli.validate)
	if err != nil {
		return err
	}
	if !res.OK() {
		return errors.Errorf("invalid rows, nothing imported:\n  %s", strings.Join(res.Errors, "\n  "))
	}
	if len(res.Questions) == 0 {
		return errors.New("no questions found")
	}

	qz, err := cli.quizSvc.GetCourseQuiz(ctx, adminSession, courseID)
	if err != nil {
		if errors.Cause(err) != quiz.ErrNotFound {
			return err
		}
		nq := quiz.NewQuiz{CourseID: courseID, Title: title}
		if err = nq.Validate(cli.validate); err != nil {
			return err
		}
		if qz, err = cli.quizSvc.CreateQuiz(ctx, adminSession, nq); err != nil {
			return err
		}
		cli.printf("quiz %q created\n", qz.Title)
	}

	qs, err := cli.quizSvc.ImportQuestions(ctx, qz.ID, res.Questions)
	if err != nil {
		return err
	}
	cli.printf("%d questions imported into %q\n", len(qs), qz.Title)
	return nil
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}
