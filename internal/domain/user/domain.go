package user

import (
	"sort"
	"strings"
	"time"
)

// Role is a closed set of group memberships a user can hold.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleCustomer      Role = "customer"
	RoleDriver        Role = "driver"
	RoleMaster        Role = "master"
)

var roleTitles = map[Role]string{
	RoleAdministrator: "Administrator",
	RoleCustomer:      "Customer",
	RoleDriver:        "Driver",
	RoleMaster:        "Master",
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := roleTitles[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := roleTitles[r]
	return ok
}

func (r Role) Title() string {
	if t, ok := roleTitles[r]; ok {
		return t
	}
	return string(r)
}

// IsWorker reports whether the role performs inspections on work objects.
func (r Role) IsWorker() bool {
	return r.Valid() && r != RoleAdministrator && r != RoleCustomer
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is the full name, or the email when no name is set.
func (u *User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Email
	}
	return full
}

func (u *User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// WorkerRoles returns the worker roles of the user sorted by key.
func (u *User) WorkerRoles() []Role {
	out := make([]Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		if r.IsWorker() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PrimaryWorkerRole picks the lexicographically smallest worker role.
func (u *User) PrimaryWorkerRole() (Role, bool) {
	roles := u.WorkerRoles()
	if len(roles) == 0 {
		return "", false
	}
	return roles[0], true
}
