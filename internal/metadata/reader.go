package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cortex-grants/internal/ddl"
	"cortex-grants/internal/domain"
)

// Querier is the subset of *sql.DB the reader needs. Tests substitute a stub.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Reader issues read-only introspection queries against the account catalog.
type Reader struct {
	db     Querier
	logger *slog.Logger
}

// NewReader creates a Reader over the given connection.
func NewReader(db Querier, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{db: db, logger: logger}
}

const rolesQuery = `
	SELECT DISTINCT NAME FROM SNOWFLAKE.ACCOUNT_USAGE.ROLES
	WHERE DELETED_ON IS NULL ORDER BY NAME`

// Roles returns all role names visible to the session, sorted and
// deduplicated. ACCOUNT_USAGE is tried first; SHOW ROLES is the fallback for
// sessions without ACCOUNT_USAGE access.
func (r *Reader) Roles(ctx context.Context) ([]string, error) {
	rows, err := r.queryMaps(ctx, rolesQuery)
	if err != nil {
		r.logger.Warn("ACCOUNT_USAGE.ROLES query failed, falling back to SHOW ROLES", "error", err)
		rows, err = r.queryMaps(ctx, "SHOW ROLES")
		if err != nil {
			return nil, domain.ErrUnavailable("query roles: %v", err)
		}
	}

	seen := map[string]struct{}{}
	for _, row := range rows {
		if name := row["name"]; name != "" {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

const grantsQuery = `
	SELECT
		GRANTED_ON,
		PRIVILEGE,
		CASE WHEN GRANTED_ON = 'ROLE' THEN NAME ELSE NULL END AS GRANTED_ROLE,
		NAME AS OBJECT_NAME
	FROM SNOWFLAKE.ACCOUNT_USAGE.GRANTS_TO_ROLES
	WHERE GRANTEE_NAME = ?
	  AND DELETED_ON IS NULL
	ORDER BY GRANTED_ON, NAME`

// GrantsToRole returns the current grant snapshot for a role.
func (r *Reader) GrantsToRole(ctx context.Context, role string) ([]domain.GrantRecord, error) {
	rows, err := r.queryMaps(ctx, grantsQuery, strings.ToUpper(role))
	if err != nil {
		return nil, domain.ErrUnavailable("query grants for %s: %v", role, err)
	}
	grants := make([]domain.GrantRecord, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, domain.GrantRecord{
			GrantedOn:   domain.ObjectKind(row["granted_on"]),
			Privilege:   row["privilege"],
			GrantedRole: row["granted_role"],
			ObjectName:  row["object_name"],
		})
	}
	return grants, nil
}

// Agents lists Cortex agents, scoped to a database or schema when given.
// Identifiers are validated before interpolation — SHOW does not accept
// bind parameters.
func (r *Reader) Agents(ctx context.Context, database, schema string) ([]domain.Agent, error) {
	query := "SHOW AGENTS IN ACCOUNT"
	switch {
	case database != "" && schema != "":
		if err := ddl.ValidateIdentifier(database); err != nil {
			return nil, domain.ErrValidation("database: %v", err)
		}
		if err := ddl.ValidateIdentifier(schema); err != nil {
			return nil, domain.ErrValidation("schema: %v", err)
		}
		query = fmt.Sprintf("SHOW AGENTS IN SCHEMA %s.%s", database, schema)
	case database != "":
		if err := ddl.ValidateIdentifier(database); err != nil {
			return nil, domain.ErrValidation("database: %v", err)
		}
		query = fmt.Sprintf("SHOW AGENTS IN DATABASE %s", database)
	}

	rows, err := r.queryMaps(ctx, query)
	if err != nil {
		return nil, domain.ErrUnavailable("list agents: %v", err)
	}
	agents := make([]domain.Agent, 0, len(rows))
	for _, row := range rows {
		name := row["name"]
		db := row["database_name"]
		sch := row["schema_name"]
		if name == "" || db == "" || sch == "" {
			r.logger.Warn("SHOW AGENTS row missing name/database_name/schema_name, skipping")
			continue
		}
		agents = append(agents, domain.Agent{Database: db, Schema: sch, Name: name})
	}
	return agents, nil
}

// DescribeAgent returns the property/value map from DESCRIBE AGENT.
func (r *Reader) DescribeAgent(ctx context.Context, agent domain.Agent) (map[string]string, error) {
	for _, part := range []string{agent.Database, agent.Schema, agent.Name} {
		if err := ddl.ValidateIdentifier(part); err != nil {
			return nil, domain.ErrValidation("agent name: %v", err)
		}
	}
	rows, err := r.queryMaps(ctx, fmt.Sprintf("DESCRIBE AGENT %s", agent.FQN()))
	if err != nil {
		return nil, domain.ErrUnavailable("describe agent %s: %v", agent.FQN(), err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound("agent %s returned no description", agent.FQN())
	}
	props := make(map[string]string, len(rows))
	for _, row := range rows {
		if key := row["property"]; key != "" {
			props[key] = row["value"]
		}
	}
	if len(props) == 0 {
		return nil, domain.ErrUnavailable("describe agent %s: no property/value columns in result", agent.FQN())
	}
	return props, nil
}

// SemanticViewYAML reads the YAML definition of a semantic view. Returns
// NotFoundError when the view has no definition.
func (r *Reader) SemanticViewYAML(ctx context.Context, viewName string) (string, error) {
	rows, err := r.queryMaps(ctx,
		"SELECT SYSTEM$READ_YAML_FROM_SEMANTIC_VIEW(?) AS yaml_def", viewName)
	if err != nil {
		return "", domain.ErrUnavailable("read semantic view %s: %v", viewName, err)
	}
	if len(rows) == 0 {
		return "", domain.ErrNotFound("semantic view %s has no YAML definition", viewName)
	}
	// Column naming varies between deployments; fall back to the first column.
	if v := rows[0]["yaml_def"]; v != "" {
		return v, nil
	}
	for _, v := range rows[0] {
		if v != "" {
			return v, nil
		}
	}
	return "", domain.ErrNotFound("semantic view %s has no YAML definition", viewName)
}

// StageFileYAML reads a staged semantic-model file. stagePath is the
// @-prefixed path from the tool spec (@DB.SCHEMA.STAGE/rel/file.yaml).
// Staged files come back one row per line; the lines are rejoined.
func (r *Reader) StageFileYAML(ctx context.Context, stagePath string) (string, error) {
	if !strings.HasPrefix(stagePath, "@") {
		return "", domain.ErrValidation("stage path %q must start with @", stagePath)
	}
	stage, _, _ := strings.Cut(strings.TrimPrefix(stagePath, "@"), "/")
	if err := ddl.ValidateQualifiedName(stage, 3); err != nil {
		return "", domain.ErrValidation("stage path %q: %v", stagePath, err)
	}

	rows, err := r.queryMaps(ctx, fmt.Sprintf("SELECT $1 AS line FROM %s", stagePath))
	if err != nil {
		return "", domain.ErrUnavailable("read stage file %s: %v", stagePath, err)
	}
	if len(rows) == 0 {
		return "", domain.ErrNotFound("stage file %s is empty or missing", stagePath)
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row["line"])
	}
	return strings.Join(lines, "\n"), nil
}

// queryMaps runs a query and returns each row as a map keyed by
// lower-cased column name. SHOW and DESCRIBE result columns vary in case
// across Snowflake versions, so all lookups go through this normalization.
func (r *Reader) queryMaps(ctx context.Context, query string, args ...any) ([]map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	lower := make([]string, len(cols))
	for i, c := range cols {
		lower[i] = strings.ToLower(c)
	}

	var out []map[string]string
	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(map[string]string, len(cols))
		for i, name := range lower {
			if vals[i].Valid {
				row[name] = vals[i].String
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
