// Package service contains the business logic layer, sitting between the
// HTTP/CLI surfaces and the metadata reader.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cortex-grants/internal/diff"
	"cortex-grants/internal/domain"
	"cortex-grants/internal/extract"
	"cortex-grants/internal/render"
)

// MetadataReader is the account-introspection surface the service depends
// on. *metadata.Reader satisfies it; tests substitute a fake.
type MetadataReader interface {
	Roles(ctx context.Context) ([]string, error)
	GrantsToRole(ctx context.Context, role string) ([]domain.GrantRecord, error)
	Agents(ctx context.Context, database, schema string) ([]domain.Agent, error)
	DescribeAgent(ctx context.Context, agent domain.Agent) (map[string]string, error)
	SemanticViewYAML(ctx context.Context, viewName string) (string, error)
	StageFileYAML(ctx context.Context, stagePath string) (string, error)
}

// specPropertyKeys are the DESCRIBE AGENT properties that may carry the
// agent specification JSON, tried in order.
var specPropertyKeys = []string{"agent_spec", "spec", "definition"}

// Analysis implements role readiness checks, agent privilege extraction,
// and role/agent compatibility checks. Metadata reads are cached with a TTL
// so repeated dashboard loads do not hammer ACCOUNT_USAGE.
type Analysis struct {
	reader    MetadataReader
	extractor *extract.Extractor
	renderer  *render.Renderer
	cache     *gocache.Cache
	logger    *slog.Logger
}

// NewAnalysis creates the analysis service.
func NewAnalysis(reader MetadataReader, renderer *render.Renderer, ttl time.Duration, logger *slog.Logger) *Analysis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analysis{
		reader:    reader,
		extractor: extract.New(logger),
		renderer:  renderer,
		cache:     gocache.New(ttl, 2*ttl),
		logger:    logger,
	}
}

// Refresh drops all cached metadata. The next read of each key goes back to
// the account.
func (s *Analysis) Refresh() {
	s.cache.Flush()
}

// ListRoles returns the visible role names.
func (s *Analysis) ListRoles(ctx context.Context) ([]string, error) {
	if v, ok := s.cache.Get("roles"); ok {
		return v.([]string), nil
	}
	roles, err := s.reader.Roles(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault("roles", roles)
	return roles, nil
}

// ListAgents returns the Cortex agents visible in the given scope. Empty
// database and schema mean account-wide.
func (s *Analysis) ListAgents(ctx context.Context, database, schema string) ([]domain.Agent, error) {
	key := "agents:" + database + ":" + schema
	if v, ok := s.cache.Get(key); ok {
		return v.([]domain.Agent), nil
	}
	agents, err := s.reader.Agents(ctx, database, schema)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, agents)
	return agents, nil
}

// grantsFor fetches a role's grants through the cache. The role name is
// normalized to uppercase here so every MetadataReader implementation sees
// the same form and the cache key agrees with the reader call.
func (s *Analysis) grantsFor(ctx context.Context, role string) ([]domain.GrantRecord, error) {
	role = strings.ToUpper(role)
	key := "grants:" + role
	if v, ok := s.cache.Get(key); ok {
		return v.([]domain.GrantRecord), nil
	}
	grants, err := s.reader.GrantsToRole(ctx, role)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, grants)
	return grants, nil
}

// CheckRole builds the readiness report for a role. Four checks contribute
// one point each: a Cortex database role, warehouse usage, database or
// schema access, and table or view select.
func (s *Analysis) CheckRole(ctx context.Context, role string) (*domain.RoleReport, error) {
	if role == "" {
		return nil, domain.ErrValidation("role name is required")
	}
	grants, err := s.grantsFor(ctx, role)
	if err != nil {
		return nil, err
	}

	report := &domain.RoleReport{
		Role:        strings.ToUpper(role),
		Grants:      grants,
		CortexRoles: diff.CortexRoles(grants),
	}
	report.HasCortex = len(report.CortexRoles) > 0

	for _, g := range grants {
		switch g.GrantedOn {
		case domain.KindWarehouse:
			report.WarehouseCount++
		case domain.KindDatabase:
			report.DatabaseCount++
		case domain.KindTable, domain.KindView:
			if strings.EqualFold(g.Privilege, "SELECT") {
				report.TableCount++
			}
		}
	}

	if len(grants) == 0 {
		report.Issues = append(report.Issues, domain.IssueNoGrants)
	}
	score := 0
	check := func(ok bool, issue string) {
		if ok {
			score++
		} else {
			report.Issues = append(report.Issues, issue)
		}
	}
	check(report.HasCortex, domain.IssueNoCortexRole)
	check(report.WarehouseCount > 0, domain.IssueNoWarehouse)
	check(report.DatabaseCount > 0, domain.IssueNoDatabase)
	check(report.TableCount > 0, domain.IssueNoTables)
	report.ReadinessScore = score

	if len(report.Issues) > 0 {
		report.RemediationSQL = s.renderer.Remediation(report.Role, report.Issues)
	}
	s.logger.Info("role checked", "role", report.Role,
		"score", report.ReadinessScore, "issues", len(report.Issues))
	return report, nil
}

// AnalyzeAgent extracts the privileges an agent's tools require and renders
// the bootstrap script for a new consumer role. An empty roleName picks the
// <AGENT>_USER_ROLE default.
func (s *Analysis) AnalyzeAgent(ctx context.Context, agent domain.Agent, roleName string) (*domain.AgentReport, error) {
	props, err := s.describe(ctx, agent)
	if err != nil {
		return nil, err
	}
	res, err := s.extractTools(ctx, props)
	if err != nil {
		return nil, err
	}
	if roleName == "" {
		roleName = render.DefaultRoleName(agent)
	}

	report := &domain.AgentReport{
		Agent:       agent,
		Properties:  props,
		Tools:       res.Tools,
		Required:    res.Required,
		Diagnostics: res.Diagnostics,
		RoleName:    roleName,
		Script:      s.renderer.Bootstrap(agent, res.Required, roleName),
	}
	s.logger.Info("agent analyzed", "agent", agent.FQN(),
		"tools", len(res.Tools), "objects", res.Required.Count(),
		"diagnostics", len(res.Diagnostics))
	return report, nil
}

// CheckCompatibility answers whether an existing role can use an agent, and
// renders an incremental fix script when it cannot.
func (s *Analysis) CheckCompatibility(ctx context.Context, role string, agent domain.Agent) (*domain.CompatibilityReport, error) {
	if role == "" {
		return nil, domain.ErrValidation("role name is required")
	}
	grants, err := s.grantsFor(ctx, role)
	if err != nil {
		return nil, err
	}
	props, err := s.describe(ctx, agent)
	if err != nil {
		return nil, err
	}
	res, err := s.extractTools(ctx, props)
	if err != nil {
		return nil, err
	}

	d := diff.Diff(res.Required, grants)
	report := &domain.CompatibilityReport{
		Role:           strings.ToUpper(role),
		Agent:          agent,
		HasAgentAccess: diff.HasAgentUsage(grants, agent.FQN()),
		HasCortex:      len(diff.CortexRoles(grants)) > 0,
		HasWarehouse:   diff.HasWarehouseUsage(grants),
		Missing:        d.Missing,
		Satisfied:      d.Satisfied,
		Diagnostics:    res.Diagnostics,
	}
	if !report.Compatible() {
		report.FixSQL = s.renderer.Incremental(report.Role, agent, d.Missing,
			!report.HasAgentAccess, !report.HasCortex, !report.HasWarehouse)
	}
	s.logger.Info("compatibility checked", "role", report.Role,
		"agent", agent.FQN(), "compatible", report.Compatible(),
		"missing", d.Missing.Count())
	return report, nil
}

func (s *Analysis) describe(ctx context.Context, agent domain.Agent) (map[string]string, error) {
	key := "describe:" + strings.ToUpper(agent.FQN())
	if v, ok := s.cache.Get(key); ok {
		return v.(map[string]string), nil
	}
	props, err := s.reader.DescribeAgent(ctx, agent)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, props)
	return props, nil
}

// extractTools parses the agent specification out of the DESCRIBE
// properties and runs the extractor over it, resolving semantic definitions
// through the metadata reader.
func (s *Analysis) extractTools(ctx context.Context, props map[string]string) (*extract.Result, error) {
	spec, err := parseAgentSpec(props)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(ctx, spec, func(ctx context.Context, identifier string) (string, error) {
		if strings.HasPrefix(identifier, "@") {
			return s.reader.StageFileYAML(ctx, identifier)
		}
		return s.reader.SemanticViewYAML(ctx, identifier)
	})
}

// parseAgentSpec locates and decodes the specification JSON among the
// DESCRIBE AGENT properties. Property names are matched case-insensitively
// since DESCRIBE output casing varies across versions. A standalone "tools"
// property is accepted as a spec of its own.
func parseAgentSpec(props map[string]string) (map[string]any, error) {
	lower := make(map[string]string, len(props))
	for k, v := range props {
		lower[strings.ToLower(k)] = v
	}
	for _, key := range specPropertyKeys {
		raw := lower[key]
		if raw == "" {
			continue
		}
		var spec map[string]any
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			return nil, domain.ErrValidation("agent property %s is not valid JSON: %v", key, err)
		}
		return spec, nil
	}
	if raw := lower["tools"]; raw != "" {
		var tools []any
		if err := json.Unmarshal([]byte(raw), &tools); err != nil {
			return nil, domain.ErrValidation("agent property tools is not valid JSON: %v", err)
		}
		return map[string]any{"tools": tools}, nil
	}
	searched := make([]string, 0, len(specPropertyKeys)+1)
	searched = append(searched, specPropertyKeys...)
	searched = append(searched, "tools")
	return nil, &domain.ToolsNotFoundError{SearchedPaths: searched}
}
