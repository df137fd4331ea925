package domain

// Readiness issue messages. The remediation renderer matches on these
// strings, so they are shared constants rather than ad hoc literals.
const (
	IssueNoGrants     = "No grants found"
	IssueNoCortexRole = "Missing CORTEX_USER or CORTEX_ANALYST_USER role"
	IssueNoWarehouse  = "No warehouse USAGE privileges"
	IssueNoDatabase   = "No database or schema access"
	IssueNoTables     = "No SELECT privileges on tables/views"
)

// ReadinessMax is the number of checks contributing to the readiness score.
const ReadinessMax = 4

// RoleReport summarizes a role's readiness to use Cortex Analyst.
type RoleReport struct {
	Role           string
	Grants         []GrantRecord
	HasCortex      bool
	CortexRoles    []string // which of CortexDatabaseRoles were found
	WarehouseCount int
	DatabaseCount  int
	TableCount     int // tables and views pooled
	ReadinessScore int // 0..ReadinessMax
	Issues         []string
	RemediationSQL string // empty when no issues
}

// Ready reports whether every readiness check passed.
func (r *RoleReport) Ready() bool { return r.ReadinessScore == ReadinessMax }

// AgentReport is the result of analyzing one agent's tool configuration.
type AgentReport struct {
	Agent       Agent
	Properties  map[string]string // raw DESCRIBE AGENT properties
	Tools       []ToolDescriptor
	Required    *PrivilegeSet
	Diagnostics []ToolDiagnostic
	RoleName    string
	Script      string // bootstrap least-privilege SQL
}

// CompatibilityReport answers whether a role can use a specific agent, and
// if not, what is missing.
type CompatibilityReport struct {
	Role           string
	Agent          Agent
	HasAgentAccess bool
	HasCortex      bool
	HasWarehouse   bool
	Missing        *PrivilegeSet
	Satisfied      bool   // true when Missing is empty
	FixSQL         string // incremental grant script, empty when Satisfied
	Diagnostics    []ToolDiagnostic
}

// Compatible reports whether all three top-level checks passed and no
// object-level grants are missing.
func (r *CompatibilityReport) Compatible() bool {
	return r.HasAgentAccess && r.HasCortex && r.HasWarehouse && r.Satisfied
}
