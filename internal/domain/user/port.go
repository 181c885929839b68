package user

import "context"

// Directory is the read side other subsystems use to resolve people.
type Directory interface {
	// GetActive returns the user only if it exists and is active.
	GetActive(ctx context.Context, id int64) (*User, error)
	ListActiveByRole(ctx context.Context, role Role) ([]*User, error)
}

type Repo interface {
	Directory
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetRoles(ctx context.Context, id int64, roles []Role) error
}
