package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

func TestContext_ResolveRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  Role
	}{
		{"empty roles default to user", nil, RoleUser},
		{"plain user", []string{"User"}, RoleUser},
		{"administrator", []string{"Administrator"}, RoleAdministrator},
		{"administrator case-insensitive", []string{"administrator"}, RoleAdministrator},
		{"administrator among others", []string{"User", "Administrator"}, RoleAdministrator},
		{"unknown roles default to user", []string{"Auditor"}, RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Context{Roles: tt.roles}
			assert.Equal(t, tt.want, c.ResolveRole())
		})
	}
}

func TestContext_Validate(t *testing.T) {
	t.Run("user without tenant fails", func(t *testing.T) {
		c := Context{Roles: []string{"User"}}
		err := c.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.NewError(types.GUARD_MISSING_TENANT, "")))
	})

	t.Run("whitespace tenant fails", func(t *testing.T) {
		c := Context{TenantID: "   ", Roles: []string{"User"}}
		assert.Error(t, c.Validate())
	})

	t.Run("administrator without tenant passes", func(t *testing.T) {
		c := Context{Roles: []string{"Administrator"}}
		assert.NoError(t, c.Validate())
	})

	t.Run("user with tenant passes", func(t *testing.T) {
		c := Context{TenantID: "acme", Roles: []string{"User"}}
		assert.NoError(t, c.Validate())
	})
}

func TestFromMetadata(t *testing.T) {
	t.Run("decodes context", func(t *testing.T) {
		meta := map[string]any{
			MetadataKey: map[string]any{
				"tenant_id":   "acme",
				"tenant_name": "Acme Corp",
				"roles":       []any{"User"},
				"namespace":   "duploservices-acme",
			},
		}

		c, err := FromMetadata(meta)
		require.NoError(t, err)
		assert.Equal(t, "acme", c.TenantID)
		assert.Equal(t, "Acme Corp", c.TenantName)
		assert.Equal(t, []string{"User"}, c.Roles)
		assert.Equal(t, "duploservices-acme", c.Namespace)
	})

	t.Run("missing field yields zero context", func(t *testing.T) {
		c, err := FromMetadata(map[string]any{"other": 1})
		require.NoError(t, err)
		assert.Empty(t, c.TenantID)
	})

	t.Run("nil metadata yields zero context", func(t *testing.T) {
		c, err := FromMetadata(nil)
		require.NoError(t, err)
		assert.Empty(t, c.TenantID)
	})

	t.Run("malformed context fails", func(t *testing.T) {
		_, err := FromMetadata(map[string]any{MetadataKey: map[string]any{"roles": 42}})
		require.Error(t, err)
	})
}
