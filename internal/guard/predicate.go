package guard

import "fmt"

// Tenant scoping conventions shared by both rewrite strategies. Queries are
// anchored on the primary node variable; the tenant id always travels as a
// bound parameter, never spliced into the query text.
const (
	// PrimaryVariable is the node variable every tenant-scoped query must bind.
	PrimaryVariable = "n"

	// TenantParamName is the parameter carrying the effective tenant id.
	TenantParamName = "tenant_id"

	// membershipRelationship links any tenant-owned node to its Tenant node.
	membershipRelationship = "BELONGS_TO"

	// tenantLabel is the label of the tenant entity itself.
	tenantLabel = "Tenant"
)

// membershipPredicate builds the tenant scoping predicate injected by both
// rewrite strategies: either the primary node reaches the tenant through the
// membership relationship, or the primary node is the tenant node itself.
func membershipPredicate() string {
	return fmt.Sprintf(
		"(EXISTS { MATCH (%[1]s)-[:%[2]s]->(:%[3]s {id: $%[4]s}) } OR (%[1]s:%[3]s AND %[1]s.id = $%[4]s))",
		PrimaryVariable, membershipRelationship, tenantLabel, TenantParamName,
	)
}

// bindsPrimaryVariable reports whether a match pattern binds the primary
// variable as a node, e.g. "(n)", "(n:Service)", "(n {name: ...})".
func bindsPrimaryVariable(pattern string) bool {
	for i := 0; i+1 < len(pattern); i++ {
		if pattern[i] != '(' {
			continue
		}
		j := i + 1
		for j < len(pattern) && (pattern[j] == ' ' || pattern[j] == '\t' || pattern[j] == '\n') {
			j++
		}
		if j >= len(pattern) || pattern[j] != PrimaryVariable[0] {
			continue
		}
		k := j + 1
		if k >= len(pattern) {
			continue
		}
		switch pattern[k] {
		case ')', ':', ' ', '\t', '\n', '{':
			return true
		}
	}
	return false
}
