// Package diff compares a required privilege set against a role's current
// grants and computes the minimal missing set.
package diff

import (
	"strings"

	"cortex-grants/internal/domain"
)

// Result is the outcome of a grant diff. Satisfied is true when nothing is
// missing; callers surface that as "fully satisfied" instead of rendering an
// empty grant list.
type Result struct {
	Missing   *domain.PrivilegeSet
	Satisfied bool
}

// Diff computes which required objects have no matching grant. Comparison is
// case-insensitive on the qualified name, keyed by the GRANTED_ON kind.
//
// TABLE and VIEW grants are pooled in both directions: a required table
// counts as satisfied by a VIEW grant on the same name and vice versa.
// Snowflake reports semantic views under either kind depending on how they
// were created, so distinguishing them here would produce false negatives.
//
// Pure function of its two inputs; re-running with the same arguments yields
// the same result.
func Diff(required *domain.PrivilegeSet, grants []domain.GrantRecord) Result {
	granted := index(grants)

	missing := domain.NewPrivilegeSet()
	tableOrView := union(granted[domain.KindTable], granted[domain.KindView])

	// Inserts are closure-free: a missing leaf must not drag its already
	// granted parent database or schema back into the missing set.
	for _, db := range required.Databases() {
		if !has(granted[domain.KindDatabase], db) {
			missing.Add(domain.KindDatabase, db)
		}
	}
	for _, sch := range required.Schemas() {
		if !has(granted[domain.KindSchema], sch) {
			missing.Add(domain.KindSchema, sch)
		}
	}
	for _, tbl := range required.Tables() {
		if !has(tableOrView, tbl) {
			missing.Add(domain.KindTable, tbl)
		}
	}
	for _, view := range required.Views() {
		if !has(tableOrView, view) {
			missing.Add(domain.KindView, view)
		}
	}
	for _, svc := range required.SearchServices() {
		if !has(granted[domain.KindSearchService], svc) {
			missing.Add(domain.KindSearchService, svc)
		}
	}
	for _, proc := range required.Procedures() {
		if !has(granted[domain.KindProcedure], proc) {
			missing.Add(domain.KindProcedure, proc)
		}
	}
	for _, stage := range required.Stages() {
		if !has(granted[domain.KindStage], stage) {
			missing.Add(domain.KindStage, stage)
		}
	}

	return Result{Missing: missing, Satisfied: missing.IsEmpty()}
}

// HasAgentUsage reports whether the grants include USAGE on the given agent.
func HasAgentUsage(grants []domain.GrantRecord, agentFQN string) bool {
	want := strings.ToUpper(agentFQN)
	for _, g := range grants {
		if g.GrantedOn == domain.KindAgent && strings.ToUpper(g.ObjectName) == want {
			return true
		}
	}
	return false
}

// HasWarehouseUsage reports whether the grants include at least one
// warehouse grant.
func HasWarehouseUsage(grants []domain.GrantRecord) bool {
	for _, g := range grants {
		if g.GrantedOn == domain.KindWarehouse {
			return true
		}
	}
	return false
}

// CortexRoles returns which of the Cortex database roles appear among the
// role grants, in the canonical order of domain.CortexDatabaseRoles.
func CortexRoles(grants []domain.GrantRecord) []string {
	held := map[string]struct{}{}
	for _, g := range grants {
		if g.GrantedRole != "" {
			held[strings.ToUpper(g.GrantedRole)] = struct{}{}
		}
	}
	var found []string
	for _, want := range domain.CortexDatabaseRoles {
		if _, ok := held[want]; ok {
			found = append(found, want)
		}
	}
	return found
}

// index groups grant object names by kind, uppercased for comparison.
func index(grants []domain.GrantRecord) map[domain.ObjectKind]map[string]struct{} {
	out := map[domain.ObjectKind]map[string]struct{}{}
	for _, g := range grants {
		if g.ObjectName == "" {
			continue
		}
		kind := g.GrantedOn
		if out[kind] == nil {
			out[kind] = map[string]struct{}{}
		}
		out[kind][strings.ToUpper(g.ObjectName)] = struct{}{}
	}
	return out
}

func has(set map[string]struct{}, name string) bool {
	if set == nil {
		return false
	}
	_, ok := set[strings.ToUpper(name)]
	return ok
}

func union(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
