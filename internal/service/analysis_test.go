package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-grants/internal/domain"
	"cortex-grants/internal/render"
)

// fakeReader is an in-memory MetadataReader with per-method call counters.
type fakeReader struct {
	roles      []string
	grants     map[string][]domain.GrantRecord
	agents     []domain.Agent
	describe   map[string]map[string]string
	viewYAML   map[string]string
	stageYAML  map[string]string
	rolesCalls int
	grantCalls int
	lastRole   string
}

func (f *fakeReader) Roles(context.Context) ([]string, error) {
	f.rolesCalls++
	return f.roles, nil
}

func (f *fakeReader) GrantsToRole(_ context.Context, role string) ([]domain.GrantRecord, error) {
	f.grantCalls++
	f.lastRole = role
	return f.grants[role], nil
}

func (f *fakeReader) Agents(context.Context, string, string) ([]domain.Agent, error) {
	return f.agents, nil
}

func (f *fakeReader) DescribeAgent(_ context.Context, agent domain.Agent) (map[string]string, error) {
	props, ok := f.describe[agent.FQN()]
	if !ok {
		return nil, domain.ErrNotFound("agent %s returned no description", agent.FQN())
	}
	return props, nil
}

func (f *fakeReader) SemanticViewYAML(_ context.Context, viewName string) (string, error) {
	body, ok := f.viewYAML[viewName]
	if !ok {
		return "", domain.ErrNotFound("semantic view %s has no YAML definition", viewName)
	}
	return body, nil
}

func (f *fakeReader) StageFileYAML(_ context.Context, stagePath string) (string, error) {
	body, ok := f.stageYAML[stagePath]
	if !ok {
		return "", domain.ErrNotFound("stage file %s is empty or missing", stagePath)
	}
	return body, nil
}

func newTestAnalysis(reader *fakeReader) *Analysis {
	renderer := render.New(render.Options{UseSessionVariables: true, Warehouse: "COMPUTE_WH"})
	return NewAnalysis(reader, renderer, time.Minute, nil)
}

var (
	testAgent = domain.Agent{Database: "AI_DB", Schema: "AGENTS", Name: "SALES_HELPER"}

	readyGrants = []domain.GrantRecord{
		{GrantedOn: domain.KindRole, GrantedRole: "SNOWFLAKE.CORTEX_USER"},
		{GrantedOn: domain.KindWarehouse, Privilege: "USAGE", ObjectName: "COMPUTE_WH"},
		{GrantedOn: domain.KindDatabase, Privilege: "USAGE", ObjectName: "SALES_DB"},
		{GrantedOn: domain.KindSchema, Privilege: "USAGE", ObjectName: "SALES_DB.PUBLIC"},
		{GrantedOn: domain.KindTable, Privilege: "SELECT", ObjectName: "SALES_DB.PUBLIC.ORDERS"},
		{GrantedOn: domain.KindView, Privilege: "SELECT", ObjectName: "SALES_DB.PUBLIC.SALES_SV"},
	}

	agentProps = map[string]string{
		"agent_spec": `{
			"tools": [
				{"name": "analyst", "type": "cortex_analyst_text_to_sql",
				 "semantic_model": "SALES_DB.PUBLIC.SALES_SV"}
			]
		}`,
	}

	salesYAML = `
tables:
  - table:
      database: SALES_DB
      schema: PUBLIC
      table: ORDERS
`
)

func TestCheckRoleReady(t *testing.T) {
	reader := &fakeReader{grants: map[string][]domain.GrantRecord{"ANALYST": readyGrants}}
	svc := newTestAnalysis(reader)

	report, err := svc.CheckRole(context.Background(), "analyst")
	require.NoError(t, err)

	assert.Equal(t, "ANALYST", report.Role)
	assert.True(t, report.Ready())
	assert.Equal(t, domain.ReadinessMax, report.ReadinessScore)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.RemediationSQL)
	assert.Equal(t, []string{"SNOWFLAKE.CORTEX_USER"}, report.CortexRoles)
	assert.Equal(t, 1, report.WarehouseCount)
	assert.Equal(t, 2, report.TableCount)
}

func TestCheckRoleNormalizesRoleCaseForReader(t *testing.T) {
	// The service uppercases once; readers never see the caller's casing.
	reader := &fakeReader{grants: map[string][]domain.GrantRecord{"ANALYST": readyGrants}}
	svc := newTestAnalysis(reader)

	report, err := svc.CheckRole(context.Background(), "AnAlYsT")
	require.NoError(t, err)

	assert.Equal(t, "ANALYST", reader.lastRole)
	assert.Equal(t, 4, report.ReadinessScore)
}

func TestCheckRoleNoGrants(t *testing.T) {
	svc := newTestAnalysis(&fakeReader{grants: map[string][]domain.GrantRecord{}})

	report, err := svc.CheckRole(context.Background(), "EMPTY_ROLE")
	require.NoError(t, err)

	assert.Equal(t, 0, report.ReadinessScore)
	assert.Equal(t, []string{
		domain.IssueNoGrants,
		domain.IssueNoCortexRole,
		domain.IssueNoWarehouse,
		domain.IssueNoDatabase,
		domain.IssueNoTables,
	}, report.Issues)
	assert.Contains(t, report.RemediationSQL, "GRANT DATABASE ROLE SNOWFLAKE.CORTEX_USER TO ROLE EMPTY_ROLE;")
}

func TestCheckRolePartialReadiness(t *testing.T) {
	grants := []domain.GrantRecord{
		{GrantedOn: domain.KindRole, GrantedRole: "SNOWFLAKE.CORTEX_ANALYST_USER"},
		{GrantedOn: domain.KindWarehouse, Privilege: "USAGE", ObjectName: "WH"},
	}
	svc := newTestAnalysis(&fakeReader{grants: map[string][]domain.GrantRecord{"PARTIAL": grants}})

	report, err := svc.CheckRole(context.Background(), "PARTIAL")
	require.NoError(t, err)

	assert.Equal(t, 2, report.ReadinessScore)
	assert.Equal(t, []string{domain.IssueNoDatabase, domain.IssueNoTables}, report.Issues)
}

func TestCheckRoleEmptyName(t *testing.T) {
	svc := newTestAnalysis(&fakeReader{})
	_, err := svc.CheckRole(context.Background(), "")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestAnalyzeAgent(t *testing.T) {
	reader := &fakeReader{
		describe: map[string]map[string]string{testAgent.FQN(): agentProps},
		viewYAML: map[string]string{"SALES_DB.PUBLIC.SALES_SV": salesYAML},
	}
	svc := newTestAnalysis(reader)

	report, err := svc.AnalyzeAgent(context.Background(), testAgent, "")
	require.NoError(t, err)

	assert.Equal(t, "SALES_HELPER_USER_ROLE", report.RoleName)
	assert.Equal(t, []string{"SALES_DB.PUBLIC.SALES_SV"}, report.Required.Views())
	assert.Equal(t, []string{"SALES_DB.PUBLIC.ORDERS"}, report.Required.Tables())
	assert.Empty(t, report.Diagnostics)
	assert.Contains(t, report.Script, "CREATE ROLE IF NOT EXISTS IDENTIFIER($role_name);")
	assert.Contains(t, report.Script, "GRANT USAGE ON AGENT AI_DB.AGENTS.SALES_HELPER")
}

func TestAnalyzeAgentStageResolver(t *testing.T) {
	props := map[string]string{
		"agent_spec": `{
			"tools": [
				{"name": "analyst", "type": "cortex_analyst_text_to_sql",
				 "semantic_model_file": "@ML_DB.MODELS.STG/sales.yaml"}
			]
		}`,
	}
	reader := &fakeReader{
		describe:  map[string]map[string]string{testAgent.FQN(): props},
		stageYAML: map[string]string{"@ML_DB.MODELS.STG/sales.yaml": salesYAML},
	}
	svc := newTestAnalysis(reader)

	report, err := svc.AnalyzeAgent(context.Background(), testAgent, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"ML_DB.MODELS.STG"}, report.Required.Stages())
	assert.Equal(t, []string{"SALES_DB.PUBLIC.ORDERS"}, report.Required.Tables())
}

func TestAnalyzeAgentNoSpecProperty(t *testing.T) {
	reader := &fakeReader{
		describe: map[string]map[string]string{testAgent.FQN(): {"comment": "nothing useful"}},
	}
	svc := newTestAnalysis(reader)

	_, err := svc.AnalyzeAgent(context.Background(), testAgent, "")
	var notFound *domain.ToolsNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestAnalyzeAgentToolsProperty(t *testing.T) {
	// Some DESCRIBE variants expose the tool list as its own property.
	props := map[string]string{
		"tools": `[{"name": "s", "type": "cortex_search", "search_service": "DB.S.SVC"}]`,
	}
	reader := &fakeReader{describe: map[string]map[string]string{testAgent.FQN(): props}}
	svc := newTestAnalysis(reader)

	report, err := svc.AnalyzeAgent(context.Background(), testAgent, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"DB.S.SVC"}, report.Required.SearchServices())
}

func TestCheckCompatibilityCompatible(t *testing.T) {
	grants := append([]domain.GrantRecord{
		{GrantedOn: domain.KindAgent, Privilege: "USAGE", ObjectName: testAgent.FQN()},
	}, readyGrants...)
	reader := &fakeReader{
		grants:   map[string][]domain.GrantRecord{"ANALYST": grants},
		describe: map[string]map[string]string{testAgent.FQN(): agentProps},
		viewYAML: map[string]string{"SALES_DB.PUBLIC.SALES_SV": salesYAML},
	}
	svc := newTestAnalysis(reader)

	report, err := svc.CheckCompatibility(context.Background(), "ANALYST", testAgent)
	require.NoError(t, err)

	assert.True(t, report.Compatible())
	assert.True(t, report.Satisfied)
	assert.Empty(t, report.FixSQL)
}

func TestCheckCompatibilityMissingGrants(t *testing.T) {
	reader := &fakeReader{
		grants:   map[string][]domain.GrantRecord{"NEWROLE": nil},
		describe: map[string]map[string]string{testAgent.FQN(): agentProps},
		viewYAML: map[string]string{"SALES_DB.PUBLIC.SALES_SV": salesYAML},
	}
	svc := newTestAnalysis(reader)

	report, err := svc.CheckCompatibility(context.Background(), "NEWROLE", testAgent)
	require.NoError(t, err)

	assert.False(t, report.Compatible())
	assert.False(t, report.HasAgentAccess)
	assert.False(t, report.HasCortex)
	assert.False(t, report.HasWarehouse)
	assert.Equal(t, []string{"SALES_DB.PUBLIC.ORDERS"}, report.Missing.Tables())
	assert.Contains(t, report.FixSQL, "GRANT USAGE ON AGENT AI_DB.AGENTS.SALES_HELPER")
	assert.Contains(t, report.FixSQL, "GRANT DATABASE ROLE SNOWFLAKE.CORTEX_USER")
	assert.Contains(t, report.FixSQL, "GRANT USAGE ON WAREHOUSE COMPUTE_WH")
	assert.NotContains(t, report.FixSQL, "CREATE ROLE")
}

func TestCachingAndRefresh(t *testing.T) {
	reader := &fakeReader{
		roles:  []string{"A", "B"},
		grants: map[string][]domain.GrantRecord{"A": readyGrants},
	}
	svc := newTestAnalysis(reader)

	_, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	_, err = svc.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, reader.rolesCalls)

	_, err = svc.CheckRole(context.Background(), "A")
	require.NoError(t, err)
	_, err = svc.CheckRole(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, reader.grantCalls, "grant snapshots are cached case-insensitively")

	svc.Refresh()
	_, err = svc.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reader.rolesCalls)
}
