package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var errAdminExists = errors.New("admin already exists, use resetpassword to change its password")

// createAdmin creates an admin account. The password policy is not applied.
func (cli *commandLine) createAdmin(uname, pwd string) error {
	admin, created, err := cli.accountSvc.EnsureAdmin(context.Background(), uname, pwd)
	if err != nil {
		return err
	}
	if !created {
		return errAdminExists
	}
	fmt.Printf("admin %q created (id %d)\n", admin.Username, admin.ID)
	return nil
}
