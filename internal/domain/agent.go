package domain

import "fmt"

// ToolKind classifies an agent tool by the resource it needs access to.
type ToolKind string

const (
	ToolAnalyst ToolKind = "cortex_analyst_text_to_sql"
	ToolSearch  ToolKind = "cortex_search"
	ToolGeneric ToolKind = "generic"
	ToolUnknown ToolKind = "unknown"
)

// Agent identifies a Cortex agent object in the account.
type Agent struct {
	Database string
	Schema   string
	Name     string
}

// FQN returns the fully-qualified agent name.
func (a Agent) FQN() string {
	return fmt.Sprintf("%s.%s.%s", a.Database, a.Schema, a.Name)
}

// ToolDescriptor is a normalized view of one entry in an agent's tool list.
type ToolDescriptor struct {
	Name        string
	Kind        ToolKind
	ResourceRef string         // qualified object name or @-prefixed stage path
	Extra       map[string]any // remaining tool fields, kept for display
}

// ToolDiagnostic records a non-fatal, per-tool problem encountered during
// extraction. Diagnostics never abort the batch; they are surfaced to the
// caller alongside the result.
type ToolDiagnostic struct {
	Tool    string
	Message string
}
