package domain

import "strings"

// ObjectKind mirrors the GRANTED_ON column of
// SNOWFLAKE.ACCOUNT_USAGE.GRANTS_TO_ROLES.
type ObjectKind string

const (
	KindDatabase      ObjectKind = "DATABASE"
	KindSchema        ObjectKind = "SCHEMA"
	KindTable         ObjectKind = "TABLE"
	KindView          ObjectKind = "VIEW"
	KindWarehouse     ObjectKind = "WAREHOUSE"
	KindAgent         ObjectKind = "AGENT"
	KindProcedure     ObjectKind = "PROCEDURE"
	KindSearchService ObjectKind = "CORTEX_SEARCH_SERVICE"
	KindStage         ObjectKind = "STAGE"
	KindRole          ObjectKind = "ROLE"
)

// GrantRecord is one row of a role's grant snapshot. Snapshots are immutable
// and expire with the query that produced them; nothing here persists.
type GrantRecord struct {
	GrantedOn   ObjectKind
	Privilege   string
	ObjectName  string // fully-qualified object name
	GrantedRole string // set only when GrantedOn == KindRole
}

// CortexDatabaseRoles are the database roles that confer Cortex LLM access.
// A role is considered Cortex-ready when it holds at least one of them.
var CortexDatabaseRoles = []string{
	"SNOWFLAKE.CORTEX_USER",
	"SNOWFLAKE.CORTEX_ANALYST_USER",
}

// QualifierParts splits a fully-qualified identifier into its dot-separated
// components. A parenthesized procedure signature is stripped first so that
// parameter types containing dots cannot confuse the split.
func QualifierParts(identifier string) []string {
	name := identifier
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.Split(name, ".")
}

// ParentDatabase returns the database component of a qualified identifier,
// or "" when the identifier has fewer than two components.
func ParentDatabase(identifier string) string {
	parts := QualifierParts(identifier)
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// ParentSchema returns the DB.SCHEMA prefix of a qualified identifier,
// or "" when the identifier has fewer than two components.
func ParentSchema(identifier string) string {
	parts := QualifierParts(identifier)
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "." + parts[1]
}
