package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
)

var (
	// ErrAuthFailure is returned for an unknown role, an unknown username or a wrong password alike.
	ErrAuthFailure  = errors.New("invalid username or password")
	ErrInvalidToken = errors.New("invalid or expired token")

	// SigningMethod signs every token issued by a TokenManager.
	SigningMethod = jwt.SigningMethodHS256

	// compared against when the username is unknown, so that both failures cost a bcrypt comparison.
	dummyProfile = func() account.Profile {
		var p account.Profile
		_ = p.SetPassword("not-a-real-password")
		return p
	}()
)

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserID      int          `json:"userId"`
	Role        account.Role `json:"userType"`
	DisplayName string       `json:"userName"`
}

func (id Identity) IsZero() bool { return id.UserID == 0 }

// Claims represents the authorization claims transmitted via a JWT.
// Subject holds the account id.
type Claims struct {
	jwt.StandardClaims
	Role account.Role `json:"role"`
	Name string       `json:"name,omitempty"`
}

func (c Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if !c.Role.IsValid() {
		return ErrInvalidToken
	}
	if id, err := strconv.Atoi(c.Subject); err != nil || id <= 0 {
		return ErrInvalidToken
	}
	return nil
}

// Identity returns the caller the claims were issued for.
func (c Claims) Identity() Identity {
	id, _ := strconv.Atoi(c.Subject)
	return Identity{UserID: id, Role: c.Role, DisplayName: c.Name}
}

// TokenManager issues and parses signed session tokens. Tokens expire after a fixed delta and cannot be refreshed.
type TokenManager struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(conf *core.Config) *TokenManager {
	return &TokenManager{
		secret: []byte(conf.SecretKey),
		issuer: conf.AppName,
		expiry: conf.Server.JWTExpirationDelta,
		now:    time.Now,
	}
}

// SigningKey is the key the HTTP layer verifies tokens with.
func (tm *TokenManager) SigningKey() []byte { return tm.secret }

func (tm *TokenManager) NewClaims(ident Identity) *Claims {
	now := tm.now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    tm.issuer,
			Subject:   strconv.Itoa(ident.UserID),
			ExpiresAt: now.Add(tm.expiry).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role: ident.Role,
		Name: ident.DisplayName,
	}
}

// Generate returns a signed token binding the identity's id and role.
func (tm *TokenManager) Generate(ident Identity) (string, error) {
	token := jwt.NewWithClaims(SigningMethod, tm.NewClaims(ident))
	ss, err := token.SignedString(tm.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Parse verifies a token string and returns the identity it was issued for.
func (tm *TokenManager) Parse(tokenStr string) (Identity, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != SigningMethod.Alg() {
			return nil, ErrInvalidToken
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	return claims.Identity(), nil
}

// AccountFinder looks an account up by username within a single role.
type AccountFinder interface {
	GetByUsername(ctx context.Context, role account.Role, uname string) (account.Account, error)
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token string `json:"token"`
	Identity
}

// Authenticator verifies credentials and issues session tokens.
type Authenticator struct {
	accounts AccountFinder
	tokens   *TokenManager
}

func NewAuthenticator(accounts AccountFinder, tokens *TokenManager) *Authenticator {
	return &Authenticator{accounts: accounts, tokens: tokens}
}

// Login looks the username up in the table of the claimed role only.
func (a *Authenticator) Login(ctx context.Context, userType, uname, pwd string) (LoginResult, error) {
	role, err := account.ParseRole(userType)
	if err != nil || uname == "" || pwd == "" {
		return LoginResult{}, ErrAuthFailure
	}

	acc, err := a.accounts.GetByUsername(ctx, role, uname)
	if err != nil {
		if core.IsNotFound(err) {
			_ = dummyProfile.CheckPassword(pwd)
			return LoginResult{}, ErrAuthFailure
		}
		return LoginResult{}, errors.Wrap(err, "finding account by username")
	}

	p := acc.GetProfile()
	if err := p.CheckPassword(pwd); err != nil {
		return LoginResult{}, ErrAuthFailure
	}

	ident := Identity{UserID: p.ID, Role: acc.Role(), DisplayName: p.FirstName + " " + p.LastName}
	token, err := a.tokens.Generate(ident)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, "generating token")
	}
	return LoginResult{Token: token, Identity: ident}, nil
}
