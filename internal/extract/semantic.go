package extract

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SemanticRefs are the object references found in one semantic definition.
type SemanticRefs struct {
	Tables         []string // qualified DB.SCHEMA.TABLE, sorted, deduplicated
	SearchServices []string // qualified DB.SCHEMA.SERVICE, sorted, deduplicated
}

// Table-wrapper keys. A mapping under any of these keys that carries
// database/schema/table fields is a table reference.
var tableWrapperKeys = map[string]bool{
	"table":        true,
	"base_table":   true,
	"source_table": true,
}

// Field-name variants across semantic schema versions.
var (
	databaseKeys     = []string{"database", "db"}
	schemaKeys       = []string{"schema", "schema_name"}
	tableNameKeys    = []string{"table", "table_name", "name"}
	serviceNameKeys  = []string{"service", "service_name", "name"}
	directTableKeys  = []string{"table", "table_name"}
	directServiceKey = []string{"service", "service_name"}
)

// WalkSemanticDefinition parses a semantic view/model YAML body and walks
// the whole tree depth-first, collecting table and search-service
// references. The same logical reference appears at different nesting
// depths across schema versions (flat semantic-view format vs. nested
// semantic-model format), so no fixed schema is assumed: every mapping and
// sequence is visited.
func WalkSemanticDefinition(body string) (*SemanticRefs, error) {
	var root any
	if err := yaml.Unmarshal([]byte(body), &root); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	tables := map[string]struct{}{}
	services := map[string]struct{}{}
	walk(root, tables, services)

	refs := &SemanticRefs{
		Tables:         make([]string, 0, len(tables)),
		SearchServices: make([]string, 0, len(services)),
	}
	for t := range tables {
		refs.Tables = append(refs.Tables, t)
	}
	for s := range services {
		refs.SearchServices = append(refs.SearchServices, s)
	}
	sort.Strings(refs.Tables)
	sort.Strings(refs.SearchServices)
	return refs, nil
}

func walk(node any, tables, services map[string]struct{}) {
	switch n := node.(type) {
	case map[string]any:
		for key, value := range n {
			lower := strings.ToLower(key)
			if child, ok := asMap(value); ok {
				if tableWrapperKeys[lower] {
					if fqn := compose(child, databaseKeys, schemaKeys, tableNameKeys); fqn != "" {
						tables[fqn] = struct{}{}
					}
				}
				if lower == "cortex_search_service" {
					if fqn := compose(child, databaseKeys, schemaKeys, serviceNameKeys); fqn != "" {
						services[fqn] = struct{}{}
					}
				}
			}
			walk(value, tables, services)
		}
		// Nested semantic-model format: the reference fields sit directly on
		// the mapping with no wrapper key ({database, schema, table}). The
		// bare "name" variant is only accepted under a wrapper key, since an
		// unwrapped {database, schema, name} could describe anything.
		if fqn := compose(n, databaseKeys, schemaKeys, directTableKeys); fqn != "" {
			tables[fqn] = struct{}{}
		}
		if fqn := compose(n, databaseKeys, schemaKeys, directServiceKey); fqn != "" {
			services[fqn] = struct{}{}
		}
	case map[any]any:
		// yaml.v3 decodes string-keyed maps as map[string]any, but mixed-key
		// documents still come back as map[any]any.
		converted := make(map[string]any, len(n))
		for k, v := range n {
			if ks, ok := k.(string); ok {
				converted[ks] = v
			}
		}
		walk(converted, tables, services)
	case []any:
		for _, item := range n {
			walk(item, tables, services)
		}
	}
}

// asMap normalizes a YAML node into a string-keyed map when possible.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// compose builds DB.SCHEMA.NAME from the first present variant of each field.
// All three components must be non-empty scalars; otherwise "" is returned.
func compose(m map[string]any, dbKeys, schKeys, nameKeys []string) string {
	db := scalarField(m, dbKeys)
	sch := scalarField(m, schKeys)
	name := scalarField(m, nameKeys)
	if db == "" || sch == "" || name == "" {
		return ""
	}
	return db + "." + sch + "." + name
}

// scalarField returns the first key whose value is a non-empty string,
// matching keys case-insensitively.
func scalarField(m map[string]any, keys []string) string {
	for _, want := range keys {
		for k, v := range m {
			if !strings.EqualFold(k, want) {
				continue
			}
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
