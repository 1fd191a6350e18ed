package account_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/storage/database/dummy"
	"github.com/trezcool/elimu/tests"
)

func setup(t *testing.T) (*account.Service, account.Repository) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewAccountRepository(db)
	return account.NewService(repo, nil), repo
}

func newAccount(uname string) account.NewAccount {
	return account.NewAccount{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     uname + "@test.cd",
		Username:  uname,
		Password:  "s3cr3t!pwd",
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	vErr, ok := err.(*core.ValidationError)
	if !ok {
		t.Fatalf("error = %#v; want *core.ValidationError", err)
	}
	fields := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		fields[f.Field] = f.Error
	}
	return fields
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acc, err := svc.Create(ctx, account.RoleStudent, newAccount("jdoe"))
	require.NoError(t, err)
	assert.IsType(t, account.Student{}, acc)
	assert.Greater(t, acc.GetProfile().ID, 0)

	got, err := svc.Get(ctx, account.RoleStudent, acc.GetProfile().ID)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", got.GetProfile().Username)
	assert.NoError(t, got.GetProfile().CheckPassword("s3cr3t!pwd"))

	t.Run("duplicate username in the same role", func(t *testing.T) {
		_, err := svc.Create(ctx, account.RoleStudent, newAccount("jdoe"))
		assert.Equal(t, map[string]string{"username": account.ErrUsernameExists.Error()}, fieldErrors(t, err))
	})

	t.Run("same username in another role", func(t *testing.T) {
		acc, err := svc.Create(ctx, account.RoleTeacher, newAccount("jdoe"))
		require.NoError(t, err)
		assert.IsType(t, account.Teacher{}, acc)
	})

	t.Run("usernames are case sensitive", func(t *testing.T) {
		_, err := svc.Create(ctx, account.RoleStudent, newAccount("JDoe"))
		assert.NoError(t, err)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.Create(ctx, account.Role("janitor"), newAccount("bob"))
		assert.Equal(t, account.ErrInvalidRole, err)
	})
}

// unseenUsernames lets every username through the uniqueness lookup, like a concurrent request not yet committed.
type unseenUsernames struct {
	account.Repository
}

func (unseenUsernames) CheckUsernameUniqueness(context.Context, account.Role, string, int) error {
	return nil
}

func TestService_CreateStorageConstraint(t *testing.T) {
	_, repo := setup(t)
	svc := account.NewService(unseenUsernames{repo}, nil)
	ctx := context.Background()

	t.Run("lookup misses the username", func(t *testing.T) {
		_, err := svc.Create(ctx, account.RoleStudent, newAccount("jdoe"))
		require.NoError(t, err)
		_, err = svc.Create(ctx, account.RoleStudent, newAccount("jdoe"))
		assert.Equal(t, map[string]string{"username": account.ErrUsernameExists.Error()}, fieldErrors(t, err))

		jane, err := svc.Create(ctx, account.RoleStudent, newAccount("jane"))
		require.NoError(t, err)
		_, err = svc.Update(ctx, account.RoleStudent, jane.GetProfile().ID, account.UpdateAccount{
			FirstName: "Jane", LastName: "Doe", Email: "jane@test.cd", Username: "jdoe",
		})
		assert.Equal(t, map[string]string{"username": account.ErrUsernameExists.Error()}, fieldErrors(t, err))
	})

	t.Run("concurrent creates", func(t *testing.T) {
		const n = 6
		errs := make(chan error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Create(ctx, account.RoleTeacher, newAccount("racer"))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var created int
		for err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.Equal(t, map[string]string{"username": account.ErrUsernameExists.Error()}, fieldErrors(t, err))
		}
		assert.Equal(t, 1, created)

		count, err := repo.CountAccounts(ctx, account.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestService_Update(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	jane := testutil.CreateAccount(t, repo, account.RoleTeacher, "Jane", "Doe", "jane", "janepwd123")
	john := testutil.CreateAccount(t, repo, account.RoleTeacher, "John", "Doe", "john", "johnpwd123")

	update := func(uname, pwd string) account.UpdateAccount {
		return account.UpdateAccount{FirstName: "Janet", LastName: "Doe", Email: "janet@test.cd", Username: uname, Password: pwd}
	}

	t.Run("username of another row", func(t *testing.T) {
		_, err := svc.Update(ctx, account.RoleTeacher, jane.GetProfile().ID, update(john.GetProfile().Username, ""))
		assert.Equal(t, map[string]string{"username": account.ErrUsernameExists.Error()}, fieldErrors(t, err))
	})

	t.Run("own username, blank password keeps the hash", func(t *testing.T) {
		acc, err := svc.Update(ctx, account.RoleTeacher, jane.GetProfile().ID, update("jane", ""))
		require.NoError(t, err)
		p := acc.GetProfile()
		assert.Equal(t, "Janet", p.FirstName)
		assert.Equal(t, jane.GetProfile().PasswordHash, p.PasswordHash)
		assert.NoError(t, p.CheckPassword("janepwd123"))
	})

	t.Run("new password is rehashed", func(t *testing.T) {
		acc, err := svc.Update(ctx, account.RoleTeacher, jane.GetProfile().ID, update("janet", "newpwd456"))
		require.NoError(t, err)
		assert.NoError(t, acc.GetProfile().CheckPassword("newpwd456"))
		assert.Error(t, acc.GetProfile().CheckPassword("janepwd123"))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.Update(ctx, account.RoleTeacher, 999, update("ghost", ""))
		assert.Equal(t, account.ErrTeacherNotFound, err)
	})
}

func TestService_Delete(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	st := testutil.CreateAccount(t, repo, account.RoleStudent, "Jane", "Doe", "jane", "")
	require.NoError(t, svc.Delete(ctx, account.RoleStudent, st.GetProfile().ID))

	_, err := svc.Get(ctx, account.RoleStudent, st.GetProfile().ID)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, account.ErrStudentNotFound, svc.Delete(ctx, account.RoleStudent, st.GetProfile().ID))
}

func TestService_EnsureAdmin(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	admin, created, err := svc.EnsureAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, admin.CheckPassword("admin123"))

	again, created, err := svc.EnsureAdmin(ctx, "admin", "other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	n, err := repo.CountAccounts(ctx, account.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_SetPassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	st := testutil.CreateAccount(t, repo, account.RoleStudent, "Jane", "Doe", "jane", "oldpwd123")

	require.NoError(t, svc.SetPassword(ctx, account.RoleStudent, "jane", "x"))
	acc, err := svc.Get(ctx, account.RoleStudent, st.GetProfile().ID)
	require.NoError(t, err)
	assert.NoError(t, acc.GetProfile().CheckPassword("x"))

	assert.Equal(t, account.ErrTeacherNotFound, svc.SetPassword(ctx, account.RoleTeacher, "jane", "x"))
	assert.True(t, core.IsValidationError(svc.SetPassword(ctx, account.RoleStudent, "jane", "")))
}

func TestNewAccount_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	tests := []struct {
		name    string
		mutate  func(na *account.NewAccount)
		wantTag string // "" if valid
	}{
		{name: "valid"},
		{name: "missing first name", mutate: func(na *account.NewAccount) { na.FirstName = "  " }, wantTag: "required"},
		{name: "invalid email", mutate: func(na *account.NewAccount) { na.Email = "lol" }, wantTag: "email"},
		{name: "username with spaces", mutate: func(na *account.NewAccount) { na.Username = "j doe" }, wantTag: "alphanum_"},
		{name: "short password", mutate: func(na *account.NewAccount) { na.Password = "abc" }, wantTag: "pwdminlen"},
		{name: "password with whitespace", mutate: func(na *account.NewAccount) { na.Password = "abc def ghi" }, wantTag: "pwdnospace"},
		{name: "password similar to username", mutate: func(na *account.NewAccount) { na.Password = "jdoe123" }, wantTag: "pwdtoosim"},
		{name: "password similar to name", mutate: func(na *account.NewAccount) { na.Password = "JaneDoe" }, wantTag: "pwdtoosim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na := newAccount("jdoe")
			if tt.mutate != nil {
				tt.mutate(&na)
			}
			err := na.Validate(validate)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "error = %v; want validator.ValidationErrors", err)
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}
}
