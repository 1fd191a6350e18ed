package main

import (
	"context"

	"github.com/trezcool/elimu/core/account"
)

// resetPassword replaces the password of the account `uname` of the given role. The password policy is not applied.
func (cli *commandLine) resetPassword(role account.Role, uname, pwd string) error {
	return cli.accountSvc.SetPassword(context.Background(), role, uname, pwd)
}
