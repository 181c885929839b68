package postgres

import (
	"testing"

	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/stretchr/testify/assert"
)

func TestParseRoles_DropsUnknown(t *testing.T) {
	got := parseRoles([]string{"administrator", "auditor", " Master ", ""})
	assert.Equal(t, []user.Role{user.RoleAdministrator, user.RoleMaster}, got)

	assert.Empty(t, parseRoles(nil))
	assert.NotNil(t, parseRoles(nil))
}
