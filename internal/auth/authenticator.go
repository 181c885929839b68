package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Authenticator resolves a bearer token to an active user.
type Authenticator struct {
	Tokens *TokenManager
	Users  user.Directory
}

func NewAuthenticator(tokens *TokenManager, users user.Directory) *Authenticator {
	return &Authenticator{Tokens: tokens, Users: users}
}

// Authenticate never panics; every failure is ErrUnauthenticated wrapped with
// the cause.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (u *user.User, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			u, err = nil, fmt.Errorf("%w: lookup panic: %v", ErrUnauthenticated, rec)
		}
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	id, err := a.Tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	u, err = a.Users.GetActive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: user %d: %w", ErrUnauthenticated, id, err)
	}
	if u == nil || !u.IsActive {
		return nil, fmt.Errorf("%w: user %d inactive", ErrUnauthenticated, id)
	}
	return u, nil
}

// Credentials looks users up by login email.
type Credentials interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Login checks a password and issues an access token.
func (a *Authenticator) Login(ctx context.Context, users Credentials, email, password string) (string, *user.User, error) {
	u, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || !u.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := a.Tokens.Issue(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
