package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool, companySlug string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	var companyID string
	if companySlug != "" {
		c, err := cli.companies.GetBySlug(ctx, companySlug)
		if err != nil {
			return err
		}
		companyID = c.ID
	}
	var roles []string
	if isAdmin {
		roles = user.AdminRoles
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		nu := user.NewUser{
			Name:            name,
			Email:           email,
			CompanyID:       companyID,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		}
		if err = nu.Validate(cli.validate, cli.usrSvc); err != nil {
			return err
		}
		if usr, err = cli.usrSvc.Create(ctx, nu); err != nil {
			return err
		}
		cli.printf("user %s created\n", usr.Email)
		return nil
	}

	active := true
	uu := user.UpdateUser{
		Name:            name,
		IsActive:        &active,
		Roles:           roles,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if companySlug != "" {
		uu.CompanyID = &companyID
	}
	if err = uu.Validate(usr, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.Update(ctx, usr, uu); err != nil {
		return err
	}
	cli.printf("user %s updated\n", usr.Email)
	return nil
}
