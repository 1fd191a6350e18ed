package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/trezcool/elimu/fs"
)

var gooseRunFunc = goose.Run // mockable

// migrate runs a goose command against the migrations embedded in appfs.FS.
func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(args[0], cli.db, appfs.MigrationsDir, args[1:]...)
}
