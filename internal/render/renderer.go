// Package render produces executable Snowflake grant scripts from privilege
// sets. Output is deterministic: the same inputs always yield the same text.
package render

import (
	"fmt"
	"strings"

	"cortex-grants/internal/domain"
)

// Options controls script style.
type Options struct {
	// UseSessionVariables emits SET role_name = '...' once and references the
	// role through IDENTIFIER($role_name), so operators can retarget the
	// script by editing a single line. When false the role name is inlined
	// into every statement.
	UseSessionVariables bool
	// Warehouse is the warehouse granted USAGE in bootstrap scripts.
	Warehouse string
}

// Renderer renders grant scripts.
type Renderer struct {
	opts Options
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	if opts.Warehouse == "" {
		opts.Warehouse = "COMPUTE_WH"
	}
	return &Renderer{opts: opts}
}

// DefaultRoleName derives the conventional consumer-role name for an agent.
func DefaultRoleName(agent domain.Agent) string {
	return strings.ToUpper(agent.Name) + "_USER_ROLE"
}

// Bootstrap renders the full least-privilege script for a new consumer role
// of the given agent. Statement order is fixed: role creation, agent usage,
// database usage, schema usage, view select, table select, search-service
// usage, procedure usage, stage read, warehouse usage. Within each category
// object names appear in lexicographic order, verbatim as extracted.
func (r *Renderer) Bootstrap(agent domain.Agent, set *domain.PrivilegeSet, roleName string) string {
	if roleName == "" {
		roleName = DefaultRoleName(agent)
	}
	if set == nil || set.IsEmpty() {
		return fmt.Sprintf(
			"SELECT 'Agent %s references no grantable objects; no grants required.' AS status;\n",
			agent.FQN())
	}

	var b scriptBuilder
	b.commentf("Least-privilege grant script for agent %s", agent.FQN())
	b.commentf("Review before executing; statements are idempotent.")
	b.blank()

	role := roleName
	if r.opts.UseSessionVariables {
		b.stmtf("SET role_name = '%s'", roleName)
		role = "IDENTIFIER($role_name)"
	}
	b.stmtf("CREATE ROLE IF NOT EXISTS %s", role)
	b.blank()

	b.stmtf("GRANT USAGE ON AGENT %s TO ROLE %s", agent.FQN(), role)
	b.grants("USAGE", "DATABASE", set.Databases(), role)
	b.grants("USAGE", "SCHEMA", set.Schemas(), role)
	b.grants("SELECT", "VIEW", set.Views(), role)
	b.grants("SELECT", "TABLE", set.Tables(), role)
	b.grants("USAGE", "CORTEX SEARCH SERVICE", set.SearchServices(), role)
	b.grants("USAGE", "PROCEDURE", set.Procedures(), role)
	b.grants("READ", "STAGE", set.Stages(), role)
	b.stmtf("GRANT USAGE ON WAREHOUSE %s TO ROLE %s", r.opts.Warehouse, role)
	b.blank()

	b.commentf("Cortex entitlement for the consumer role")
	b.stmtf("GRANT DATABASE ROLE SNOWFLAKE.CORTEX_USER TO ROLE %s", role)
	b.blank()

	b.commentf("Finally, grant the role to the agent's users:")
	b.commentf("GRANT ROLE %s TO USER <username>;", roleName)
	return b.String()
}

// Incremental renders only the statements needed to close the gaps found by a
// compatibility check against an existing role. No role creation is emitted.
func (r *Renderer) Incremental(role string, agent domain.Agent, missing *domain.PrivilegeSet, needAgentUsage, needCortex, needWarehouse bool) string {
	empty := missing == nil || missing.IsEmpty()
	if empty && !needAgentUsage && !needCortex && !needWarehouse {
		return fmt.Sprintf(
			"SELECT 'Role %s already satisfies agent %s; no grants required.' AS status;\n",
			role, agent.FQN())
	}

	var b scriptBuilder
	b.commentf("Incremental grants for role %s to use agent %s", role, agent.FQN())
	b.blank()

	target := role
	if r.opts.UseSessionVariables {
		b.stmtf("SET role_name = '%s'", role)
		target = "IDENTIFIER($role_name)"
	}

	if needAgentUsage {
		b.stmtf("GRANT USAGE ON AGENT %s TO ROLE %s", agent.FQN(), target)
	}
	if !empty {
		b.grants("USAGE", "DATABASE", missing.Databases(), target)
		b.grants("USAGE", "SCHEMA", missing.Schemas(), target)
		b.grants("SELECT", "VIEW", missing.Views(), target)
		b.grants("SELECT", "TABLE", missing.Tables(), target)
		b.grants("USAGE", "CORTEX SEARCH SERVICE", missing.SearchServices(), target)
		b.grants("USAGE", "PROCEDURE", missing.Procedures(), target)
		b.grants("READ", "STAGE", missing.Stages(), target)
	}
	if needWarehouse {
		b.stmtf("GRANT USAGE ON WAREHOUSE %s TO ROLE %s", r.opts.Warehouse, target)
	}
	if needCortex {
		b.stmtf("GRANT DATABASE ROLE SNOWFLAKE.CORTEX_USER TO ROLE %s", target)
	}
	return b.String()
}

// Remediation renders fix-up SQL for the readiness issues reported on a
// role. Unrecognized issue strings are skipped; callers only pass the
// domain.Issue* constants.
func (r *Renderer) Remediation(role string, issues []string) string {
	if len(issues) == 0 {
		return ""
	}

	var b scriptBuilder
	b.commentf("Remediation for role %s", role)
	b.blank()

	for _, issue := range issues {
		switch issue {
		case domain.IssueNoGrants:
			b.commentf("%s: grant the role access to the objects it needs,", issue)
			b.commentf("starting with a database and schema.")
			b.stmtf("GRANT USAGE ON DATABASE <database> TO ROLE %s", role)
			b.stmtf("GRANT USAGE ON SCHEMA <database>.<schema> TO ROLE %s", role)
		case domain.IssueNoCortexRole:
			b.commentf("%s", issue)
			b.stmtf("GRANT DATABASE ROLE SNOWFLAKE.CORTEX_USER TO ROLE %s", role)
		case domain.IssueNoWarehouse:
			b.commentf("%s", issue)
			b.stmtf("GRANT USAGE ON WAREHOUSE %s TO ROLE %s", r.opts.Warehouse, role)
		case domain.IssueNoDatabase:
			b.commentf("%s", issue)
			b.stmtf("GRANT USAGE ON DATABASE <database> TO ROLE %s", role)
			b.stmtf("GRANT USAGE ON SCHEMA <database>.<schema> TO ROLE %s", role)
		case domain.IssueNoTables:
			b.commentf("%s", issue)
			b.stmtf("GRANT SELECT ON ALL TABLES IN SCHEMA <database>.<schema> TO ROLE %s", role)
		}
		b.blank()
	}
	return b.String()
}

// scriptBuilder accumulates SQL text with uniform statement termination.
type scriptBuilder struct {
	sb strings.Builder
}

func (b *scriptBuilder) commentf(format string, args ...any) {
	fmt.Fprintf(&b.sb, "-- "+format+"\n", args...)
}

func (b *scriptBuilder) stmtf(format string, args ...any) {
	fmt.Fprintf(&b.sb, format+";\n", args...)
}

func (b *scriptBuilder) blank() {
	b.sb.WriteString("\n")
}

// grants emits one GRANT per object, in the order given.
func (b *scriptBuilder) grants(privilege, objectType string, names []string, role string) {
	for _, name := range names {
		b.stmtf("GRANT %s ON %s %s TO ROLE %s", privilege, objectType, name, role)
	}
}

func (b *scriptBuilder) String() string {
	return b.sb.String()
}
