package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/company"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	db        *sql.DB
	out       io.Writer
	usrSvc    user.ServiceInterface
	companies *company.Service
	quizSvc   quiz.ServiceInterface
	validate  *validator.Validate
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                               - run a goose migration command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME [-admin] [-company SLUG] - create or update a user")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                           - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  awardpoints -email EMAIL -points N [-reason TEXT]    - award (or remove) points")
	_, _ = fmt.Fprintln(cli.out, "  importquiz -course ID -file PATH [-sheet NAME] [-title TITLE] - import final quiz questions (.xlsx|.csv)")
}

func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	return string(pwd), err
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the user every admin role.")
	addUserCompany := addUserCmd.String("company", "", "The slug of the user's company.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	awardPointsCmd := flag.NewFlagSet("awardpoints", flag.ContinueOnError)
	awardPointsEmail := awardPointsCmd.String("email", "", "The user's email.")
	awardPointsPoints := awardPointsCmd.Int("points", 0, "Points to add, negative to remove.")
	awardPointsReason := awardPointsCmd.String("reason", "", "Why the points are awarded.")

	importQuizCmd := flag.NewFlagSet("importquiz", flag.ContinueOnError)
	importQuizCourse := importQuizCmd.String("course", "", "The ID of the course of the final quiz.")
	importQuizFile := importQuizCmd.String("file", "", "The .xlsx or .csv file of the questions.")
	importQuizSheet := importQuizCmd.String("sheet", "", "The sheet of the questions (.xlsx only, default: first sheet).")
	importQuizTitle := importQuizCmd.String("title", "Final quiz", "The title of the quiz, when it is created.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, awardPointsCmd, importQuizCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, *addUserAdmin, *addUserCompany)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "awardpoints":
		if err := awardPointsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *awardPointsEmail == "" || *awardPointsPoints == 0 {
			awardPointsCmd.Usage()
			return errHelp
		}
		return cli.awardPoints(*awardPointsEmail, *awardPointsPoints, *awardPointsReason)

	case "importquiz":
		if err := importQuizCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importQuizCourse == "" || *importQuizFile == "" {
			importQuizCmd.Usage()
			return errHelp
		}
		return cli.importQuiz(*importQuizCourse, *importQuizFile, *importQuizSheet, *importQuizTitle)

	default:
		cli.printUsage()
		return errHelp
	}
}
