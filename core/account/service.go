package account

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrUsernameExists = errors.New("username already exists")

	ErrAdminNotFound   = core.NewNotFoundError("admin")
	ErrTeacherNotFound = core.NewNotFoundError("teacher")
	ErrStudentNotFound = core.NewNotFoundError("student")

	// OrderingFields lists the columns account listings may be ordered by.
	OrderingFields = []string{"id", "first_name", "last_name", "username", "created_at"}
)

// ErrNotFound returns the not-found error of the given role.
func ErrNotFound(role Role) error {
	switch role {
	case RoleAdmin:
		return ErrAdminNotFound
	case RoleTeacher:
		return ErrTeacherNotFound
	}
	return ErrStudentNotFound
}

type (
	// Repository stores admins, teachers and students in one table per role.
	// Usernames are unique per role; the storage layer reports a duplicate as ErrUsernameExists.
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists if another account of role (other than excludeID) uses username.
		CheckUsernameUniqueness(ctx context.Context, role Role, username string, excludeID int) error
		CreateAccount(ctx context.Context, role Role, p Profile) (Profile, error)
		QueryAccounts(ctx context.Context, role Role, ordering ...core.DBOrdering) ([]Profile, error)
		GetAccount(ctx context.Context, role Role, id int) (Profile, error)
		GetAccountByUsername(ctx context.Context, role Role, username string) (Profile, error)
		UpdateAccount(ctx context.Context, role Role, p Profile) (Profile, error)
		// DeleteAccount removes the account along with its dependants
		// (a teacher's courses become unassigned, a student's enrollments and submissions are deleted).
		DeleteAccount(ctx context.Context, role Role, id int) error
		CountAccounts(ctx context.Context, role Role) (int, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

func (svc *Service) checkUniqueness(ctx context.Context, role Role, uname string, excludeID int) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, role, uname, excludeID); err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return core.NewFieldError("username", ErrUsernameExists)
		}
		return errors.Wrap(err, "checking username uniqueness")
	}
	return nil
}

// Create stores a new account of the given role; na must have been validated.
func (svc *Service) Create(ctx context.Context, role Role, na NewAccount) (Account, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if err := svc.checkUniqueness(ctx, role, na.Username, 0); err != nil {
		return nil, err
	}

	p := Profile{
		FirstName: na.FirstName,
		LastName:  na.LastName,
		Email:     na.Email,
		Username:  na.Username,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.SetPassword(na.Password); err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}

	p, err := svc.repo.CreateAccount(ctx, role, p)
	if err != nil {
		return nil, uniqueUsernameErr(err)
	}
	acc, _ := New(role, p)
	if role != RoleAdmin {
		svc.sendAccountCreatedMail(acc)
	}
	return acc, nil
}

func (svc *Service) Query(ctx context.Context, role Role, ordering ...core.DBOrdering) ([]Account, error) {
	profiles, err := svc.repo.QueryAccounts(ctx, role, ordering...)
	if err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(profiles))
	for _, p := range profiles {
		acc, err := New(role, p)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func (svc *Service) Get(ctx context.Context, role Role, id int) (Account, error) {
	p, err := svc.repo.GetAccount(ctx, role, id)
	if err != nil {
		return nil, err
	}
	return New(role, p)
}

// GetByUsername looks the username up within the table of role only.
func (svc *Service) GetByUsername(ctx context.Context, role Role, uname string) (Account, error) {
	p, err := svc.repo.GetAccountByUsername(ctx, role, core.CleanString(uname))
	if err != nil {
		return nil, err
	}
	return New(role, p)
}

// Update replaces the profile fields of an account; ua must have been validated.
func (svc *Service) Update(ctx context.Context, role Role, id int, ua UpdateAccount) (Account, error) {
	p, err := svc.repo.GetAccount(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if err := svc.checkUniqueness(ctx, role, ua.Username, id); err != nil {
		return nil, err
	}

	p.FirstName = ua.FirstName
	p.LastName = ua.LastName
	p.Email = ua.Email
	p.Username = ua.Username
	if ua.Password != "" {
		if err := p.SetPassword(ua.Password); err != nil {
			return nil, errors.Wrap(err, "hashing password")
		}
	}

	if p, err = svc.repo.UpdateAccount(ctx, role, p); err != nil {
		return nil, uniqueUsernameErr(err)
	}
	return New(role, p)
}

func (svc *Service) Delete(ctx context.Context, role Role, id int) error {
	return svc.repo.DeleteAccount(ctx, role, id)
}

// SetPassword replaces the password of the account without applying the password policy.
func (svc *Service) SetPassword(ctx context.Context, role Role, uname, pwd string) error {
	if pwd == "" {
		return core.NewFieldError("password", errors.New("this field is required"))
	}
	p, err := svc.repo.GetAccountByUsername(ctx, role, core.CleanString(uname))
	if err != nil {
		return err
	}
	if err := p.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateAccount(ctx, role, p)
	return err
}

// EnsureAdmin creates the admin `uname` unless it already exists.
// It reports whether the admin was created.
func (svc *Service) EnsureAdmin(ctx context.Context, uname, pwd string) (Admin, bool, error) {
	uname = core.CleanString(uname)
	p, err := svc.repo.GetAccountByUsername(ctx, RoleAdmin, uname)
	if err == nil {
		return Admin{p}, false, nil
	}
	if !core.IsNotFound(err) {
		return Admin{}, false, err
	}

	p = Profile{
		FirstName: "Admin",
		LastName:  "User",
		Email:     uname + "@localhost",
		Username:  uname,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.SetPassword(pwd); err != nil {
		return Admin{}, false, errors.Wrap(err, "hashing password")
	}
	if p, err = svc.repo.CreateAccount(ctx, RoleAdmin, p); err != nil {
		return Admin{}, false, uniqueUsernameErr(err)
	}
	return Admin{p}, true, nil
}

func (svc *Service) sendAccountCreatedMail(acc Account) {
	if svc.mailSvc == nil {
		return
	}
	p := acc.GetProfile()
	if p.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.FullName(), Address: p.Email}},
		Subject:      "Your account has been created",
		TemplateName: "account_created",
		TemplateData: map[string]interface{}{
			"Name":     p.FullName(),
			"Role":     acc.Role().String(),
			"Username": p.Username,
		},
	})
}

func uniqueUsernameErr(err error) error {
	if errors.Cause(err) == ErrUsernameExists {
		return core.NewFieldError("username", ErrUsernameExists)
	}
	return err
}
