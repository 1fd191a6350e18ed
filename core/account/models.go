package account

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/elimu/core"
)

// Role selects one of the three credential tables.
type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

var (
	Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

	ErrInvalidRole = errors.New("invalid role")
)

// ParseRole parses a case-insensitive role name.
func ParseRole(s string) (Role, error) {
	role := Role(core.CleanString(s, true /* lower */))
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Profile is the shape shared by admins, teachers and students.
type Profile struct {
	ID           int       `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash []byte    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"` // UTC
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Profile) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p Profile) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

// Account is one of Admin, Teacher or Student.
type Account interface {
	Role() Role
	GetProfile() Profile
	isAccount()
}

type (
	Admin   struct{ Profile }
	Teacher struct{ Profile }
	Student struct{ Profile }
)

var (
	_ Account = Admin{}
	_ Account = Teacher{}
	_ Account = Student{}
)

func (Admin) Role() Role   { return RoleAdmin }
func (Teacher) Role() Role { return RoleTeacher }
func (Student) Role() Role { return RoleStudent }

func (a Admin) GetProfile() Profile   { return a.Profile }
func (t Teacher) GetProfile() Profile { return t.Profile }
func (s Student) GetProfile() Profile { return s.Profile }

func (Admin) isAccount()   {}
func (Teacher) isAccount() {}
func (Student) isAccount() {}

// New wraps a Profile into the variant matching role.
func New(role Role, p Profile) (Account, error) {
	switch role {
	case RoleAdmin:
		return Admin{p}, nil
	case RoleTeacher:
		return Teacher{p}, nil
	case RoleStudent:
		return Student{p}, nil
	}
	return nil, ErrInvalidRole
}

// NewAccount contains information needed to create a new account.
type NewAccount struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Username  string `json:"username" validate:"required,max=50,alphanum_"`
	Password  string `json:"password" validate:"required"`
}

func (na *NewAccount) Clean() {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Username = core.CleanString(na.Username)
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Clean()
	return validate.Struct(na)
}

// UpdateAccount replaces an account's fields. A blank Password keeps the existing hash.
type UpdateAccount struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Username  string `json:"username" validate:"required,max=50,alphanum_"`
	Password  string `json:"password"`
}

func (ua *UpdateAccount) Validate(validate *validator.Validate) error {
	ua.FirstName = core.CleanString(ua.FirstName)
	ua.LastName = core.CleanString(ua.LastName)
	ua.Email = core.CleanString(ua.Email, true /* lower */)
	ua.Username = core.CleanString(ua.Username)
	return validate.Struct(ua)
}
