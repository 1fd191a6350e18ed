package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) table(role account.Role) (*table[account.Profile], error) {
	t, ok := repo.db.data.accounts[role]
	if !ok {
		return nil, account.ErrInvalidRole
	}
	return t, nil
}

func usernameTaken(t *table[account.Profile], username string, excludeID int) bool {
	for id, p := range t.rows {
		if id != excludeID && p.Username == username {
			return true
		}
	}
	return false
}

func (repo *accountRepository) CheckUsernameUniqueness(_ context.Context, role account.Role, username string, excludeID int) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	t, err := repo.table(role)
	if err != nil {
		return err
	}
	if usernameTaken(t, username, excludeID) {
		return account.ErrUsernameExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, role account.Role, p account.Profile) (account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	t, err := repo.table(role)
	if err != nil {
		return account.Profile{}, err
	}
	if usernameTaken(t, p.Username, 0) {
		return account.Profile{}, account.ErrUsernameExists
	}
	return t.insert(func(id int) account.Profile { p.ID = id; return p }), nil
}

func (repo *accountRepository) QueryAccounts(_ context.Context, role account.Role, ordering ...core.DBOrdering) ([]account.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	t, err := repo.table(role)
	if err != nil {
		return nil, err
	}
	profiles := t.sorted()
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}}
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareProfiles(profiles[i], profiles[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return false
	})
	return profiles, nil
}

func compareProfiles(a, b account.Profile, field string) int {
	switch field {
	case "id":
		return a.ID - b.ID
	case "first_name":
		return strings.Compare(a.FirstName, b.FirstName)
	case "last_name":
		return strings.Compare(a.LastName, b.LastName)
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func (repo *accountRepository) GetAccount(_ context.Context, role account.Role, id int) (account.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	t, err := repo.table(role)
	if err != nil {
		return account.Profile{}, err
	}
	if p, ok := t.rows[id]; ok {
		return p, nil
	}
	return account.Profile{}, account.ErrNotFound(role)
}

func (repo *accountRepository) GetAccountByUsername(_ context.Context, role account.Role, username string) (account.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	t, err := repo.table(role)
	if err != nil {
		return account.Profile{}, err
	}
	for _, p := range t.rows {
		if p.Username == username {
			return p, nil
		}
	}
	return account.Profile{}, account.ErrNotFound(role)
}

func (repo *accountRepository) UpdateAccount(_ context.Context, role account.Role, p account.Profile) (account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	t, err := repo.table(role)
	if err != nil {
		return account.Profile{}, err
	}
	orig, ok := t.rows[p.ID]
	if !ok {
		return account.Profile{}, account.ErrNotFound(role)
	}
	if usernameTaken(t, p.Username, p.ID) {
		return account.Profile{}, account.ErrUsernameExists
	}
	p.CreatedAt = orig.CreatedAt
	t.rows[p.ID] = p
	return p, nil
}

func (repo *accountRepository) DeleteAccount(_ context.Context, role account.Role, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	t, err := repo.table(role)
	if err != nil {
		return err
	}
	if _, ok := t.rows[id]; !ok {
		return account.ErrNotFound(role)
	}
	switch role {
	case account.RoleTeacher:
		repo.db.data.deleteTeacher(id)
	case account.RoleStudent:
		repo.db.data.deleteStudent(id)
	default:
		delete(t.rows, id)
	}
	return nil
}

func (repo *accountRepository) CountAccounts(_ context.Context, role account.Role) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	t, err := repo.table(role)
	if err != nil {
		return 0, err
	}
	return len(t.rows), nil
}
