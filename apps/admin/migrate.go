package main

import (
	"log"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/elimu/storage/database"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := database.SetDialect(cli.conf); err != nil {
		return err
	}
	goose.SetLogger(log.New(cli.out, "", 0))
	return gooseRunFunc(args[0], cli.db, database.MigrationsDir, args[1:]...)
}
