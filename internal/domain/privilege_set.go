package domain

import "sort"

// PrivilegeSet is a flat collection of fully-qualified object identifiers
// grouped by grantable kind. It is used both for the "required" set produced
// by extraction and for the "missing" set produced by diffing.
//
// Invariant for extraction-built sets: every schema entry's parent database
// is present in databases, and every table/view/service/procedure/stage
// entry's parent database and schema are present in databases and schemas.
// The kind-specific Add* methods maintain this closure; Add is the
// closure-free variant for sets built by subtraction. Callers never insert
// into the maps directly.
type PrivilegeSet struct {
	databases      map[string]struct{}
	schemas        map[string]struct{}
	tables         map[string]struct{}
	views          map[string]struct{}
	searchServices map[string]struct{}
	procedures     map[string]struct{}
	stages         map[string]struct{}
}

// NewPrivilegeSet returns an empty PrivilegeSet.
func NewPrivilegeSet() *PrivilegeSet {
	return &PrivilegeSet{
		databases:      map[string]struct{}{},
		schemas:        map[string]struct{}{},
		tables:         map[string]struct{}{},
		views:          map[string]struct{}{},
		searchServices: map[string]struct{}{},
		procedures:     map[string]struct{}{},
		stages:         map[string]struct{}{},
	}
}

// addParents records the database and DB.SCHEMA prefix of a qualified name.
func (s *PrivilegeSet) addParents(identifier string) {
	if db := ParentDatabase(identifier); db != "" {
		s.databases[db] = struct{}{}
	}
	if sch := ParentSchema(identifier); sch != "" {
		s.schemas[sch] = struct{}{}
	}
}

// AddDatabase records a database name.
func (s *PrivilegeSet) AddDatabase(name string) {
	if name != "" {
		s.databases[name] = struct{}{}
	}
}

// AddSchema records a qualified DB.SCHEMA name and its parent database.
func (s *PrivilegeSet) AddSchema(qualified string) {
	if qualified == "" {
		return
	}
	s.schemas[qualified] = struct{}{}
	if db := ParentDatabase(qualified); db != "" {
		s.databases[db] = struct{}{}
	}
}

// AddTable records a qualified table name and its parents.
func (s *PrivilegeSet) AddTable(fqn string) {
	if fqn == "" {
		return
	}
	s.tables[fqn] = struct{}{}
	s.addParents(fqn)
}

// AddView records a qualified view (or semantic view) name and its parents.
func (s *PrivilegeSet) AddView(fqn string) {
	if fqn == "" {
		return
	}
	s.views[fqn] = struct{}{}
	s.addParents(fqn)
}

// AddSearchService records a qualified Cortex search service name and its parents.
func (s *PrivilegeSet) AddSearchService(fqn string) {
	if fqn == "" {
		return
	}
	s.searchServices[fqn] = struct{}{}
	s.addParents(fqn)
}

// AddProcedure records a qualified procedure name, preserving any
// parenthesized parameter-type signature verbatim. Grants on procedures are
// by exact signature.
func (s *PrivilegeSet) AddProcedure(fqn string) {
	if fqn == "" {
		return
	}
	s.procedures[fqn] = struct{}{}
	s.addParents(fqn)
}

// AddStage records a qualified stage name and its parents.
func (s *PrivilegeSet) AddStage(fqn string) {
	if fqn == "" {
		return
	}
	s.stages[fqn] = struct{}{}
	s.addParents(fqn)
}

// Add records name under kind without deriving parent entries. Missing sets
// computed by diffing use it, so a missing leaf does not drag an already
// granted parent back in. Kinds with no bucket here (agents, warehouses,
// roles) are ignored.
func (s *PrivilegeSet) Add(kind ObjectKind, name string) {
	if name == "" {
		return
	}
	switch kind {
	case KindDatabase:
		s.databases[name] = struct{}{}
	case KindSchema:
		s.schemas[name] = struct{}{}
	case KindTable:
		s.tables[name] = struct{}{}
	case KindView:
		s.views[name] = struct{}{}
	case KindSearchService:
		s.searchServices[name] = struct{}{}
	case KindProcedure:
		s.procedures[name] = struct{}{}
	case KindStage:
		s.stages[name] = struct{}{}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Databases returns the database names in lexicographic order.
func (s *PrivilegeSet) Databases() []string { return sortedKeys(s.databases) }

// Schemas returns the qualified schema names in lexicographic order.
func (s *PrivilegeSet) Schemas() []string { return sortedKeys(s.schemas) }

// Tables returns the qualified table names in lexicographic order.
func (s *PrivilegeSet) Tables() []string { return sortedKeys(s.tables) }

// Views returns the qualified view names in lexicographic order.
func (s *PrivilegeSet) Views() []string { return sortedKeys(s.views) }

// SearchServices returns the qualified search service names in lexicographic order.
func (s *PrivilegeSet) SearchServices() []string { return sortedKeys(s.searchServices) }

// Procedures returns the qualified procedure names in lexicographic order.
func (s *PrivilegeSet) Procedures() []string { return sortedKeys(s.procedures) }

// Stages returns the qualified stage names in lexicographic order.
func (s *PrivilegeSet) Stages() []string { return sortedKeys(s.stages) }

// IsEmpty reports whether no identifiers of any kind are present.
func (s *PrivilegeSet) IsEmpty() bool {
	return len(s.databases) == 0 && len(s.schemas) == 0 && len(s.tables) == 0 &&
		len(s.views) == 0 && len(s.searchServices) == 0 &&
		len(s.procedures) == 0 && len(s.stages) == 0
}

// Count returns the total number of identifiers across all kinds.
func (s *PrivilegeSet) Count() int {
	return len(s.databases) + len(s.schemas) + len(s.tables) + len(s.views) +
		len(s.searchServices) + len(s.procedures) + len(s.stages)
}

// Equal reports whether two sets contain exactly the same identifiers.
func (s *PrivilegeSet) Equal(other *PrivilegeSet) bool {
	if other == nil {
		return s == nil
	}
	eq := func(a, b map[string]struct{}) bool {
		if len(a) != len(b) {
			return false
		}
		for k := range a {
			if _, ok := b[k]; !ok {
				return false
			}
		}
		return true
	}
	return eq(s.databases, other.databases) && eq(s.schemas, other.schemas) &&
		eq(s.tables, other.tables) && eq(s.views, other.views) &&
		eq(s.searchServices, other.searchServices) &&
		eq(s.procedures, other.procedures) && eq(s.stages, other.stages)
}
