package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	users map[int64]*user.User
	panic bool
}

func (f *fakeDirectory) GetActive(_ context.Context, id int64) (*user.User, error) {
	if f.panic {
		panic("boom")
	}
	u, ok := f.users[id]
	if !ok || !u.IsActive {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (f *fakeDirectory) ListActiveByRole(context.Context, user.Role) ([]*user.User, error) {
	return nil, nil
}

func (f *fakeDirectory) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, "crm")
	tok, err := m.Issue(42)
	require.NoError(t, err)

	id, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenManager_Expired(t *testing.T) {
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewTokenManager("secret", time.Minute, "crm").WithClock(func() time.Time { return past })
	tok, err := m.Issue(1)
	require.NoError(t, err)

	later := m.WithClock(func() time.Time { return past.Add(2 * time.Minute) })
	_, err = later.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManager_RejectsForeignSignatureAndAlgorithm(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, "crm")
	other := NewTokenManager("other", time.Hour, "crm")
	tok, err := other.Issue(1)
	require.NoError(t, err)
	_, err = m.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticator(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, "crm")
	dir := &fakeDirectory{users: map[int64]*user.User{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: false},
	}}
	a := NewAuthenticator(m, dir)
	ctx := context.Background()

	good, _ := m.Issue(1)
	u, err := a.Authenticate(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	inactive, _ := m.Issue(2)
	_, err = a.Authenticate(ctx, inactive)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	missing, _ := m.Issue(99)
	_, err = a.Authenticate(ctx, missing)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = a.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = a.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	dir.panic = true
	_, err = a.Authenticate(ctx, good)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", h)
}

func TestAuthenticator_Login(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	dir := &fakeDirectory{users: map[int64]*user.User{
		7: {ID: 7, Email: "ann@example.com", PasswordHash: hash, IsActive: true},
		8: {ID: 8, Email: "gone@example.com", PasswordHash: hash},
	}}
	a := NewAuthenticator(NewTokenManager("secret", time.Hour, "test"), dir)
	ctx := context.Background()

	token, u, err := a.Login(ctx, dir, "  Ann@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)

	got, err := a.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)

	_, _, err = a.Login(ctx, dir, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Login(ctx, dir, "gone@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Login(ctx, dir, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
