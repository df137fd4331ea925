package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-grants/internal/domain"
)

// staticResolver serves canned YAML bodies keyed by identifier.
func staticResolver(bodies map[string]string) Resolver {
	return func(_ context.Context, identifier string) (string, error) {
		body, ok := bodies[identifier]
		if !ok {
			return "", fmt.Errorf("no such definition %q", identifier)
		}
		return body, nil
	}
}

func noResolver(_ context.Context, identifier string) (string, error) {
	return "", fmt.Errorf("unexpected resolve of %q", identifier)
}

const salesModelYAML = `
name: sales_model
tables:
  - name: orders
    base_table:
      database: SALES_DB
      schema: PUBLIC
      table: ORDERS
  - name: customers
    base_table:
      database: SALES_DB
      schema: PUBLIC
      table: CUSTOMERS
`

func TestExtractAnalystSemanticView(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{
				"tool_spec": map[string]any{
					"name":           "sales_analyst",
					"type":           "cortex_analyst_text_to_sql",
					"semantic_model": "SALES_DB.PUBLIC.SALES_SV",
				},
			},
		},
	}

	res, err := New(nil).Extract(context.Background(), spec,
		staticResolver(map[string]string{"SALES_DB.PUBLIC.SALES_SV": salesModelYAML}))
	require.NoError(t, err)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"SALES_DB.PUBLIC.SALES_SV"}, res.Required.Views())
	assert.Equal(t, []string{"SALES_DB.PUBLIC.CUSTOMERS", "SALES_DB.PUBLIC.ORDERS"}, res.Required.Tables())
	assert.Equal(t, []string{"SALES_DB"}, res.Required.Databases())
	assert.Equal(t, []string{"SALES_DB.PUBLIC"}, res.Required.Schemas())
	require.Len(t, res.Tools, 1)
	assert.Equal(t, domain.ToolAnalyst, res.Tools[0].Kind)
	assert.Equal(t, "SALES_DB.PUBLIC.SALES_SV", res.Tools[0].ResourceRef)
}

func TestExtractAnalystStageFile(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{
				"name":                "analyst",
				"type":                "cortex_analyst_text_to_sql",
				"semantic_model_file": "@ML_DB.MODELS.SEMANTIC_STAGE/models/sales.yaml",
			},
		},
	}

	res, err := New(nil).Extract(context.Background(), spec,
		staticResolver(map[string]string{"@ML_DB.MODELS.SEMANTIC_STAGE/models/sales.yaml": salesModelYAML}))
	require.NoError(t, err)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"ML_DB.MODELS.SEMANTIC_STAGE"}, res.Required.Stages())
	assert.Equal(t, []string{"SALES_DB.PUBLIC.CUSTOMERS", "SALES_DB.PUBLIC.ORDERS"}, res.Required.Tables())
	// Parents of both the stage and the referenced tables.
	assert.Equal(t, []string{"ML_DB", "SALES_DB"}, res.Required.Databases())
}

func TestExtractSemanticModelPreferredOverFile(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{
				"name":                "analyst",
				"type":                "cortex_analyst_text_to_sql",
				"semantic_model":      "DB1.S1.SV",
				"semantic_model_file": "@DB2.S2.STG/f.yaml",
			},
		},
	}

	res, err := New(nil).Extract(context.Background(), spec,
		staticResolver(map[string]string{"DB1.S1.SV": salesModelYAML}))
	require.NoError(t, err)

	assert.Equal(t, []string{"DB1.S1.SV"}, res.Required.Views())
	assert.Empty(t, res.Required.Stages())
}

func TestExtractSearchAndGenericTools(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{
				"name":           "doc_search",
				"type":           "cortex_search",
				"search_service": "DOCS_DB.SEARCH.DOC_SVC",
			},
			map[string]any{
				"name":      "refund",
				"type":      "generic",
				"procedure": "OPS_DB.PROCS.REFUND(VARCHAR, NUMBER)",
			},
		},
	}

	res, err := New(nil).Extract(context.Background(), spec, noResolver)
	require.NoError(t, err)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"DOCS_DB.SEARCH.DOC_SVC"}, res.Required.SearchServices())
	assert.Equal(t, []string{"OPS_DB.PROCS.REFUND(VARCHAR, NUMBER)"}, res.Required.Procedures())
	// Signature is stripped when deriving parents.
	assert.Equal(t, []string{"DOCS_DB", "OPS_DB"}, res.Required.Databases())
	assert.Equal(t, []string{"DOCS_DB.SEARCH", "OPS_DB.PROCS"}, res.Required.Schemas())
}

func TestExtractToolListPathPrecedence(t *testing.T) {
	searchTool := func(svc string) []any {
		return []any{map[string]any{
			"name":           "s",
			"type":           "cortex_search",
			"search_service": svc,
		}}
	}

	tests := []struct {
		name string
		spec map[string]any
		want string
	}{
		{
			name: "top_level_wins",
			spec: map[string]any{
				"tools":      searchTool("DB.S.TOP"),
				"definition": map[string]any{"tools": searchTool("DB.S.NESTED")},
			},
			want: "DB.S.TOP",
		},
		{
			name: "definition_tools",
			spec: map[string]any{
				"definition": map[string]any{"tools": searchTool("DB.S.DEF")},
			},
			want: "DB.S.DEF",
		},
		{
			name: "spec_tools",
			spec: map[string]any{
				"spec": map[string]any{"tools": searchTool("DB.S.SPEC")},
			},
			want: "DB.S.SPEC",
		},
		{
			name: "empty_list_does_not_win",
			spec: map[string]any{
				"tools": []any{},
				"spec":  map[string]any{"tools": searchTool("DB.S.FALLBACK")},
			},
			want: "DB.S.FALLBACK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(nil).Extract(context.Background(), tt.spec, noResolver)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, res.Required.SearchServices())
		})
	}
}

func TestExtractNoToolsAnywhere(t *testing.T) {
	spec := map[string]any{"name": "empty_agent", "definition": map[string]any{}}

	_, err := New(nil).Extract(context.Background(), spec, noResolver)
	var notFound *domain.ToolsNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"tools", "definition.tools", "spec.tools"}, notFound.SearchedPaths)
}

func TestExtractMalformedStagePathSkipsToolOnly(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{
				"name":                "broken",
				"type":                "cortex_analyst_text_to_sql",
				"semantic_model_file": "@BADSTAGE/file.yaml",
			},
			map[string]any{
				"name":           "ok",
				"type":           "cortex_search",
				"search_service": "DB.S.SVC",
			},
		},
	}

	res, err := New(nil).Extract(context.Background(), spec, noResolver)
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "broken", res.Diagnostics[0].Tool)
	assert.Contains(t, res.Diagnostics[0].Message, "malformed stage path")
	assert.Empty(t, res.Required.Stages())
	assert.Equal(t, []string{"DB.S.SVC"}, res.Required.SearchServices())
}

func TestExtractResolverFailureIsPerTool(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{
				"name":           "unreachable",
				"type":           "cortex_analyst_text_to_sql",
				"semantic_model": "DB.S.MISSING_SV",
			},
			map[string]any{
				"name":           "fine",
				"type":           "cortex_analyst_text_to_sql",
				"semantic_model": "DB.S.GOOD_SV",
			},
		},
	}

	res, err := New(nil).Extract(context.Background(), spec,
		staticResolver(map[string]string{"DB.S.GOOD_SV": salesModelYAML}))
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "unreachable", res.Diagnostics[0].Tool)
	assert.Contains(t, res.Diagnostics[0].Message, "unavailable")
	// The failing tool still contributes its view; its tables are unknown.
	assert.Equal(t, []string{"DB.S.GOOD_SV", "DB.S.MISSING_SV"}, res.Required.Views())
	assert.Equal(t, []string{"SALES_DB.PUBLIC.CUSTOMERS", "SALES_DB.PUBLIC.ORDERS"}, res.Required.Tables())
}

func TestExtractUnrecognizedSemanticFormat(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{
				"name":           "odd",
				"type":           "cortex_analyst_text_to_sql",
				"semantic_model": "DB.S.ODD_SV",
			},
		},
	}

	res, err := New(nil).Extract(context.Background(), spec,
		staticResolver(map[string]string{"DB.S.ODD_SV": "description: just prose, no tables\n"}))
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, "0 tables found")
	assert.Empty(t, res.Required.Tables())
}

func TestExtractUnknownToolType(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{"name": "mystery", "type": "web_browser"},
		},
	}

	res, err := New(nil).Extract(context.Background(), spec, noResolver)
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, "web_browser")
	require.Len(t, res.Tools, 1)
	assert.Equal(t, domain.ToolUnknown, res.Tools[0].Kind)
	assert.True(t, res.Required.IsEmpty())
}

func TestExtractLegacyTypeNames(t *testing.T) {
	assert.Equal(t, domain.ToolAnalyst, classify("cortex_analyst"))
	assert.Equal(t, domain.ToolAnalyst, classify("analyst_text_to_sql"))
	assert.Equal(t, domain.ToolAnalyst, classify("CORTEX_ANALYST_TEXT_TO_SQL"))
	assert.Equal(t, domain.ToolGeneric, classify("procedure"))
	assert.Equal(t, domain.ToolGeneric, classify("generic_procedure"))
	assert.Equal(t, domain.ToolUnknown, classify(""))
}

func TestExtractIdempotent(t *testing.T) {
	spec := map[string]any{
		"tools": []any{
			map[string]any{
				"name":           "analyst",
				"type":           "cortex_analyst_text_to_sql",
				"semantic_model": "SALES_DB.PUBLIC.SALES_SV",
			},
			map[string]any{
				"name":           "search",
				"type":           "cortex_search",
				"search_service": "DOCS_DB.SEARCH.SVC",
			},
		},
	}
	resolver := staticResolver(map[string]string{"SALES_DB.PUBLIC.SALES_SV": salesModelYAML})

	first, err := New(nil).Extract(context.Background(), spec, resolver)
	require.NoError(t, err)
	second, err := New(nil).Extract(context.Background(), spec, resolver)
	require.NoError(t, err)

	assert.True(t, first.Required.Equal(second.Required))
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

func TestParseStagePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "valid", path: "@DB.SCHEMA.STAGE/models/sales.yaml", want: "DB.SCHEMA.STAGE"},
		{name: "no_relative_path", path: "@DB.SCHEMA.STAGE", want: "DB.SCHEMA.STAGE"},
		{name: "deep_path", path: "@DB.SCHEMA.STAGE/a/b/c.yaml", want: "DB.SCHEMA.STAGE"},
		{name: "missing_at", path: "DB.SCHEMA.STAGE/f.yaml", wantErr: true},
		{name: "two_components", path: "@DB.STAGE/f.yaml", wantErr: true},
		{name: "four_components", path: "@A.B.C.D/f.yaml", wantErr: true},
		{name: "empty_component", path: "@DB..STAGE/f.yaml", wantErr: true},
		{name: "empty", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStagePath(tt.path)
			if tt.wantErr {
				var malformed *domain.MalformedStagePathError
				require.ErrorAs(t, err, &malformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
