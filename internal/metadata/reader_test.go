package metadata

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-grants/internal/domain"
)

func newMockReader(t *testing.T) (*Reader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewReader(db, nil), mock
}

func TestRolesAccountUsage(t *testing.T) {
	reader, mock := newMockReader(t)
	mock.ExpectQuery("ACCOUNT_USAGE.ROLES").WillReturnRows(
		sqlmock.NewRows([]string{"NAME"}).AddRow("ANALYST").AddRow("PUBLIC").AddRow("ANALYST"))

	roles, err := reader.Roles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ANALYST", "PUBLIC"}, roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRolesFallbackToShow(t *testing.T) {
	reader, mock := newMockReader(t)
	mock.ExpectQuery("ACCOUNT_USAGE.ROLES").WillReturnError(fmt.Errorf("no ACCOUNT_USAGE access"))
	mock.ExpectQuery("SHOW ROLES").WillReturnRows(
		sqlmock.NewRows([]string{"created_on", "name"}).AddRow("2026-01-01", "SYSADMIN"))

	roles, err := reader.Roles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SYSADMIN"}, roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRolesBothPathsFail(t *testing.T) {
	reader, mock := newMockReader(t)
	mock.ExpectQuery("ACCOUNT_USAGE.ROLES").WillReturnError(fmt.Errorf("down"))
	mock.ExpectQuery("SHOW ROLES").WillReturnError(fmt.Errorf("also down"))

	_, err := reader.Roles(context.Background())
	var unavailable *domain.UnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestGrantsToRole(t *testing.T) {
	reader, mock := newMockReader(t)
	rows := sqlmock.NewRows([]string{"GRANTED_ON", "PRIVILEGE", "GRANTED_ROLE", "OBJECT_NAME"}).
		AddRow("TABLE", "SELECT", nil, "DB.S.T").
		AddRow("ROLE", "USAGE", "SNOWFLAKE.CORTEX_USER", "SNOWFLAKE.CORTEX_USER")
	mock.ExpectQuery("GRANTS_TO_ROLES").WithArgs("ANALYST").WillReturnRows(rows)

	grants, err := reader.GrantsToRole(context.Background(), "analyst")
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, domain.KindTable, grants[0].GrantedOn)
	assert.Equal(t, "DB.S.T", grants[0].ObjectName)
	assert.Empty(t, grants[0].GrantedRole)
	assert.Equal(t, "SNOWFLAKE.CORTEX_USER", grants[1].GrantedRole)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentsScoping(t *testing.T) {
	tests := []struct {
		name      string
		database  string
		schema    string
		wantQuery string
	}{
		{name: "account", wantQuery: "SHOW AGENTS IN ACCOUNT"},
		{name: "database", database: "AI_DB", wantQuery: "SHOW AGENTS IN DATABASE AI_DB"},
		{name: "schema", database: "AI_DB", schema: "AGENTS", wantQuery: `SHOW AGENTS IN SCHEMA AI_DB\.AGENTS`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, mock := newMockReader(t)
			mock.ExpectQuery(tt.wantQuery).WillReturnRows(
				sqlmock.NewRows([]string{"name", "database_name", "schema_name"}).
					AddRow("HELPER", "AI_DB", "AGENTS"))

			agents, err := reader.Agents(context.Background(), tt.database, tt.schema)
			require.NoError(t, err)
			require.Len(t, agents, 1)
			assert.Equal(t, "AI_DB.AGENTS.HELPER", agents[0].FQN())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAgentsRejectsBadIdentifier(t *testing.T) {
	reader, _ := newMockReader(t)
	_, err := reader.Agents(context.Background(), "AI_DB; DROP TABLE X", "")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDescribeAgentColumnCaseTolerance(t *testing.T) {
	reader, mock := newMockReader(t)
	// Column case varies across Snowflake versions.
	mock.ExpectQuery(`DESCRIBE AGENT AI_DB\.AGENTS\.HELPER`).WillReturnRows(
		sqlmock.NewRows([]string{"PROPERTY", "VALUE"}).
			AddRow("agent_spec", `{"tools": []}`).
			AddRow("comment", "demo"))

	props, err := reader.DescribeAgent(context.Background(),
		domain.Agent{Database: "AI_DB", Schema: "AGENTS", Name: "HELPER"})
	require.NoError(t, err)
	assert.Equal(t, `{"tools": []}`, props["agent_spec"])
	assert.Equal(t, "demo", props["comment"])
}

func TestDescribeAgentInvalidName(t *testing.T) {
	reader, _ := newMockReader(t)
	_, err := reader.DescribeAgent(context.Background(),
		domain.Agent{Database: "AI_DB", Schema: "bad-schema", Name: "HELPER"})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestSemanticViewYAML(t *testing.T) {
	reader, mock := newMockReader(t)
	mock.ExpectQuery(`SYSTEM\$READ_YAML_FROM_SEMANTIC_VIEW`).
		WithArgs("DB.S.SV").
		WillReturnRows(sqlmock.NewRows([]string{"YAML_DEF"}).AddRow("tables: []\n"))

	body, err := reader.SemanticViewYAML(context.Background(), "DB.S.SV")
	require.NoError(t, err)
	assert.Equal(t, "tables: []\n", body)
}

func TestSemanticViewYAMLMissing(t *testing.T) {
	reader, mock := newMockReader(t)
	mock.ExpectQuery(`SYSTEM\$READ_YAML_FROM_SEMANTIC_VIEW`).
		WithArgs("DB.S.SV").
		WillReturnRows(sqlmock.NewRows([]string{"YAML_DEF"}))

	_, err := reader.SemanticViewYAML(context.Background(), "DB.S.SV")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestStageFileYAMLJoinsLines(t *testing.T) {
	reader, mock := newMockReader(t)
	mock.ExpectQuery(`SELECT \$1 AS line FROM @ML_DB\.MODELS\.STG/sales\.yaml`).
		WillReturnRows(sqlmock.NewRows([]string{"LINE"}).
			AddRow("tables:").
			AddRow("  - table:").
			AddRow("      database: D"))

	body, err := reader.StageFileYAML(context.Background(), "@ML_DB.MODELS.STG/sales.yaml")
	require.NoError(t, err)
	assert.Equal(t, "tables:\n  - table:\n      database: D", body)
}

func TestStageFileYAMLValidation(t *testing.T) {
	reader, _ := newMockReader(t)

	_, err := reader.StageFileYAML(context.Background(), "ML_DB.MODELS.STG/sales.yaml")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = reader.StageFileYAML(context.Background(), "@ML_DB.STG/sales.yaml")
	require.ErrorAs(t, err, &validation)
}
