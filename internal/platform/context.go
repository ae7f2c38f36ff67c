// Package platform carries the per-request authorization context extracted
// from the chat payload: which tenant the caller belongs to and which role
// it acts under.
package platform

import (
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// Role is the resolved authorization role for a request.
type Role string

const (
	// RoleAdministrator bypasses tenant scoping entirely.
	RoleAdministrator Role = "Administrator"
	// RoleUser is confined to a single tenant's sub-graph.
	RoleUser Role = "User"
)

// MetadataKey is the message metadata field carrying the platform context.
const MetadataKey = "platform_context"

// Context is the authorization input for a request. For any non-administrator
// role a non-empty tenant id is mandatory; its absence is a hard failure.
type Context struct {
	TenantID   string   `json:"tenant_id" yaml:"tenant_id" mapstructure:"tenant_id"`
	TenantName string   `json:"tenant_name,omitempty" yaml:"tenant_name" mapstructure:"tenant_name"`
	Roles      []string `json:"roles,omitempty" yaml:"roles" mapstructure:"roles"`
	Namespace  string   `json:"namespace,omitempty" yaml:"namespace" mapstructure:"namespace"`
}

// ResolveRole collapses the role list to the effective role. Any role entry
// matching "administrator" (case-insensitive) wins; everything else is User.
func (c Context) ResolveRole() Role {
	for _, r := range c.Roles {
		if strings.EqualFold(r, string(RoleAdministrator)) {
			return RoleAdministrator
		}
	}
	return RoleUser
}

// IsAdministrator reports whether the effective role is Administrator.
func (c Context) IsAdministrator() bool {
	return c.ResolveRole() == RoleAdministrator
}

// Validate enforces the tenant invariant: non-administrator contexts must
// carry a tenant id.
func (c Context) Validate() error {
	if !c.IsAdministrator() && strings.TrimSpace(c.TenantID) == "" {
		return types.NewError(types.GUARD_MISSING_TENANT,
			"tenant id is required for non-administrator roles")
	}
	return nil
}

// FromMetadata decodes a Context from a message metadata map. The context is
// expected under the MetadataKey field; a missing field yields a zero Context
// and no error so the caller can decide how strict to be.
func FromMetadata(meta map[string]any) (Context, error) {
	var ctx Context
	if meta == nil {
		return ctx, nil
	}
	raw, ok := meta[MetadataKey]
	if !ok {
		return ctx, nil
	}
	if err := mapstructure.Decode(raw, &ctx); err != nil {
		return Context{}, types.WrapError(types.CONTEXT_EXTRACTION_FAILED,
			"failed to decode platform context", err)
	}
	return ctx, nil
}
