package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (email, first_name, last_name, password_hash, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at;`

	qUserSelect = `
SELECT u.id, u.email, u.first_name, u.last_name, u.password_hash, u.is_active, u.created_at,
       COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
FROM users u
LEFT JOIN user_roles r ON r.user_id = u.id
`

	qUserByID = qUserSelect + `
WHERE u.id = $1
GROUP BY u.id;`

	qUserActiveByID = qUserSelect + `
WHERE u.id = $1 AND u.is_active
GROUP BY u.id;`

	qUserByEmail = qUserSelect + `
WHERE u.email = $1
GROUP BY u.id;`

	qUsersActiveByRole = qUserSelect + `
WHERE u.is_active
  AND EXISTS (SELECT 1 FROM user_roles x WHERE x.user_id = u.id AND x.role = $1)
GROUP BY u.id
ORDER BY u.id;`

	qUserRolesDelete = `DELETE FROM user_roles WHERE user_id = $1;`

	qUserRolesInsert = `
INSERT INTO user_roles (user_id, role)
SELECT $1, unnest($2::text[]);`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qUserInsert,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt); err != nil {
		return mapErr("user insert", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.one(ctx, qUserByID, id)
}

func (r *UserRepo) GetActive(ctx context.Context, id int64) (*user.User, error) {
	return r.one(ctx, qUserActiveByID, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.one(ctx, qUserByEmail, email)
}

func (r *UserRepo) ListActiveByRole(ctx context.Context, role user.Role) ([]*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qUsersActiveByRole, string(role))
	if err != nil {
		return nil, mapErr("users by role", err)
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		var u user.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *UserRepo) SetRoles(ctx context.Context, id int64, roles []user.Role) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	eq := r.db.execQueryer(ctx)
	if _, err := eq.Exec(ctx, qUserRolesDelete, id); err != nil {
		return mapErr("user roles delete", err)
	}
	if len(names) == 0 {
		return nil
	}
	if _, err := eq.Exec(ctx, qUserRolesInsert, id, names); err != nil {
		return mapErr("user roles insert", err)
	}
	return nil
}

func (r *UserRepo) one(ctx context.Context, q string, arg any) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, q, arg), &u); err != nil {
		return nil, mapErr("select user", err)
	}
	return &u, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	var roles []string
	if err := row.Scan(
		&out.ID, &out.Email, &out.FirstName, &out.LastName,
		&out.PasswordHash, &out.IsActive, &out.CreatedAt, &roles,
	); err != nil {
		return err
	}
	out.Roles = parseRoles(roles)
	return nil
}

// parseRoles drops role names outside the closed set.
func parseRoles(raw []string) []user.Role {
	out := make([]user.Role, 0, len(raw))
	for _, s := range raw {
		if r, ok := user.ParseRole(s); ok {
			out = append(out, r)
		}
	}
	return out
}
