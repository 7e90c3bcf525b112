package main

import (
	"context"

	"github.com/trezcool/elimu/core/user"
)

func (cli *commandLine) awardPoints(email string, points int, reason string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	ap := user.AwardPoints{Points: points, Reason: reason}
	if err = ap.Validate(cli.validate); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.AwardPoints(ctx, usr.ID, ap); err != nil {
		return err
	}
	cli.printf("%s now has %d points\n", usr.Email, usr.Points)
	return nil
}
