package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
)

var accountTables = map[account.Role]string{
	account.RoleAdmin:   "admins",
	account.RoleTeacher: "teachers",
	account.RoleStudent: "students",
}

const accountColumns = "id, first_name, last_name, email, username, password_hash, created_at"

type accountRepository struct {
	repository
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(exec core.DBExecutor) *accountRepository {
	return &accountRepository{repository{exec: exec}}
}

func table(role account.Role) (string, error) {
	tbl, ok := accountTables[role]
	if !ok {
		return "", account.ErrInvalidRole
	}
	return tbl, nil
}

func (repo accountRepository) mapErr(role account.Role, err error) error {
	if cErr := constraintErr(err, map[string]error{
		accountTables[role] + "_username_key": account.ErrUsernameExists,
	}); cErr != nil {
		return cErr
	}
	return err
}

func (repo accountRepository) CheckUsernameUniqueness(ctx context.Context, role account.Role, username string, excludeID int) error {
	tbl, err := table(role)
	if err != nil {
		return err
	}
	var count int
	q := "SELECT COUNT(*) FROM " + tbl + " WHERE username = $1 AND id <> $2"
	if err := sqlx.GetContext(ctx, repo.exec, &count, q, username, excludeID); err != nil {
		return errors.Wrap(err, "counting accounts by username")
	}
	if count > 0 {
		return account.ErrUsernameExists
	}
	return nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, role account.Role, p account.Profile) (account.Profile, error) {
	tbl, err := table(role)
	if err != nil {
		return account.Profile{}, err
	}
	q := "INSERT INTO " + tbl + " (first_name, last_name, email, username, password_hash, created_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id"
	if err := sqlx.GetContext(ctx, repo.exec, &p.ID, q, p.FirstName, p.LastName, p.Email, p.Username, p.PasswordHash, p.CreatedAt); err != nil {
		return account.Profile{}, repo.mapErr(role, err)
	}
	return p, nil
}

func (repo accountRepository) QueryAccounts(ctx context.Context, role account.Role, ordering ...core.DBOrdering) ([]account.Profile, error) {
	tbl, err := table(role)
	if err != nil {
		return nil, err
	}
	profiles := make([]account.Profile, 0)
	q := "SELECT " + accountColumns + " FROM " + tbl + orderBy(ordering, account.OrderingFields, "", "last_name ASC, first_name ASC")
	if err := sqlx.SelectContext(ctx, repo.exec, &profiles, q); err != nil {
		return nil, errors.Wrapf(err, "querying %s", tbl)
	}
	return profiles, nil
}

func (repo accountRepository) getBy(ctx context.Context, role account.Role, column string, arg interface{}) (account.Profile, error) {
	tbl, err := table(role)
	if err != nil {
		return account.Profile{}, err
	}
	var p account.Profile
	q := "SELECT " + accountColumns + " FROM " + tbl + " WHERE " + column + " = $1"
	if err := sqlx.GetContext(ctx, repo.exec, &p, q, arg); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return account.Profile{}, account.ErrNotFound(role)
		}
		return account.Profile{}, errors.Wrapf(err, "getting %s by %s", role, column)
	}
	return p, nil
}

func (repo accountRepository) GetAccount(ctx context.Context, role account.Role, id int) (account.Profile, error) {
	return repo.getBy(ctx, role, "id", id)
}

func (repo accountRepository) GetAccountByUsername(ctx context.Context, role account.Role, username string) (account.Profile, error) {
	return repo.getBy(ctx, role, "username", username)
}

func (repo accountRepository) UpdateAccount(ctx context.Context, role account.Role, p account.Profile) (account.Profile, error) {
	tbl, err := table(role)
	if err != nil {
		return account.Profile{}, err
	}
	q := "UPDATE " + tbl + " SET first_name = $1, last_name = $2, email = $3, username = $4, password_hash = $5 WHERE id = $6"
	res, err := repo.exec.ExecContext(ctx, q, p.FirstName, p.LastName, p.Email, p.Username, p.PasswordHash, p.ID)
	if err != nil {
		return account.Profile{}, repo.mapErr(role, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.Profile{}, account.ErrNotFound(role)
	}
	return p, nil
}

// DeleteAccount relies on the foreign keys: courses.teacher_id is set to null,
// enrollments and submissions of a student are deleted.
func (repo accountRepository) DeleteAccount(ctx context.Context, role account.Role, id int) error {
	tbl, err := table(role)
	if err != nil {
		return err
	}
	res, err := repo.exec.ExecContext(ctx, "DELETE FROM "+tbl+" WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", role)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.ErrNotFound(role)
	}
	return nil
}

func (repo accountRepository) CountAccounts(ctx context.Context, role account.Role) (int, error) {
	tbl, err := table(role)
	if err != nil {
		return 0, err
	}
	var count int
	if err := sqlx.GetContext(ctx, repo.exec, &count, "SELECT COUNT(*) FROM "+tbl); err != nil {
		return 0, errors.Wrapf(err, "counting %s", tbl)
	}
	return count, nil
}
