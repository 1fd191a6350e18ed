package main

import (
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/storage/database"
	dummydb "github.com/trezcool/elimu/storage/database/dummy"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
)

// Database engines
const (
	enginePostgres = "postgres"
	engineMemory   = "memory"

	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

type repositories struct {
	accounts account.Repository
	courses  course.Repository
	quizzes  quiz.Repository
	tx       core.Transactor
	close    func() error

	// memory databases start empty
	seedAdmin bool
}

func setUpRepositories(conf *core.Config, logger core.Logger) (repositories, error) {
	switch conf.Database.Engine {
	case engineMemory:
		db, err := dummydb.Open()
		if err != nil {
			return repositories{}, err
		}
		logger.Info("using the in-memory database: data is lost on shutdown")
		return repositories{
			accounts:  dummydb.NewAccountRepository(db),
			courses:   dummydb.NewCourseRepository(db),
			quizzes:   dummydb.NewQuizRepository(db),
			tx:        db,
			close:     func() error { return nil },
			seedAdmin: true,
		}, nil

	case enginePostgres, "":
		if err := database.CreateIfNotExist(conf); err != nil {
			return repositories{}, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return repositories{}, err
		}
		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return repositories{}, err
		}
		return repositories{
			accounts: sqlxrepos.NewAccountRepository(db),
			courses:  sqlxrepos.NewCourseRepository(db),
			quizzes:  sqlxrepos.NewQuizRepository(db),
			tx:       database.NewTxRunner(db),
			close:    db.Close,
		}, nil
	}
	return repositories{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}
