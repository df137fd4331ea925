package api

import "cortex-grants/internal/domain"

// Wire representations. Privilege sets flatten into sorted name lists so the
// JSON is stable across requests.

type agentRef struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Name     string `json:"name"`
}

type privilegeSetDTO struct {
	Databases      []string `json:"databases"`
	Schemas        []string `json:"schemas"`
	Tables         []string `json:"tables"`
	Views          []string `json:"views"`
	SearchServices []string `json:"search_services"`
	Procedures     []string `json:"procedures"`
	Stages         []string `json:"stages"`
}

func privilegeSet(s *domain.PrivilegeSet) privilegeSetDTO {
	if s == nil {
		s = domain.NewPrivilegeSet()
	}
	return privilegeSetDTO{
		Databases:      s.Databases(),
		Schemas:        s.Schemas(),
		Tables:         s.Tables(),
		Views:          s.Views(),
		SearchServices: s.SearchServices(),
		Procedures:     s.Procedures(),
		Stages:         s.Stages(),
	}
}

type grantDTO struct {
	GrantedOn   string `json:"granted_on"`
	Privilege   string `json:"privilege"`
	ObjectName  string `json:"object_name"`
	GrantedRole string `json:"granted_role,omitempty"`
}

type diagnosticDTO struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

func diagnostics(in []domain.ToolDiagnostic) []diagnosticDTO {
	out := make([]diagnosticDTO, 0, len(in))
	for _, d := range in {
		out = append(out, diagnosticDTO{Tool: d.Tool, Message: d.Message})
	}
	return out
}

type roleReportResponse struct {
	Role           string     `json:"role"`
	Ready          bool       `json:"ready"`
	ReadinessScore int        `json:"readiness_score"`
	ReadinessMax   int        `json:"readiness_max"`
	HasCortex      bool       `json:"has_cortex"`
	CortexRoles    []string   `json:"cortex_roles"`
	WarehouseCount int        `json:"warehouse_count"`
	DatabaseCount  int        `json:"database_count"`
	TableCount     int        `json:"table_count"`
	Issues         []string   `json:"issues"`
	RemediationSQL string     `json:"remediation_sql,omitempty"`
	Grants         []grantDTO `json:"grants"`
}

func roleReportDTO(r *domain.RoleReport) roleReportResponse {
	grants := make([]grantDTO, 0, len(r.Grants))
	for _, g := range r.Grants {
		grants = append(grants, grantDTO{
			GrantedOn:   string(g.GrantedOn),
			Privilege:   g.Privilege,
			ObjectName:  g.ObjectName,
			GrantedRole: g.GrantedRole,
		})
	}
	issues := r.Issues
	if issues == nil {
		issues = []string{}
	}
	cortexRoles := r.CortexRoles
	if cortexRoles == nil {
		cortexRoles = []string{}
	}
	return roleReportResponse{
		Role:           r.Role,
		Ready:          r.Ready(),
		ReadinessScore: r.ReadinessScore,
		ReadinessMax:   domain.ReadinessMax,
		HasCortex:      r.HasCortex,
		CortexRoles:    cortexRoles,
		WarehouseCount: r.WarehouseCount,
		DatabaseCount:  r.DatabaseCount,
		TableCount:     r.TableCount,
		Issues:         issues,
		RemediationSQL: r.RemediationSQL,
		Grants:         grants,
	}
}

type toolDTO struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	ResourceRef string `json:"resource_ref,omitempty"`
}

type agentReportResponse struct {
	Agent       agentRef        `json:"agent"`
	Tools       []toolDTO       `json:"tools"`
	Required    privilegeSetDTO `json:"required"`
	Diagnostics []diagnosticDTO `json:"diagnostics"`
	RoleName    string          `json:"role_name"`
	Script      string          `json:"script"`
}

func agentReportDTO(r *domain.AgentReport) agentReportResponse {
	tools := make([]toolDTO, 0, len(r.Tools))
	for _, t := range r.Tools {
		tools = append(tools, toolDTO{Name: t.Name, Kind: string(t.Kind), ResourceRef: t.ResourceRef})
	}
	return agentReportResponse{
		Agent:       agentRef{Database: r.Agent.Database, Schema: r.Agent.Schema, Name: r.Agent.Name},
		Tools:       tools,
		Required:    privilegeSet(r.Required),
		Diagnostics: diagnostics(r.Diagnostics),
		RoleName:    r.RoleName,
		Script:      r.Script,
	}
}

type compatibilityResponse struct {
	Role           string          `json:"role"`
	Agent          agentRef        `json:"agent"`
	Compatible     bool            `json:"compatible"`
	HasAgentAccess bool            `json:"has_agent_access"`
	HasCortex      bool            `json:"has_cortex"`
	HasWarehouse   bool            `json:"has_warehouse"`
	Satisfied      bool            `json:"satisfied"`
	Missing        privilegeSetDTO `json:"missing"`
	FixSQL         string          `json:"fix_sql,omitempty"`
	Diagnostics    []diagnosticDTO `json:"diagnostics"`
}

func compatibilityDTO(r *domain.CompatibilityReport) compatibilityResponse {
	return compatibilityResponse{
		Role:           r.Role,
		Agent:          agentRef{Database: r.Agent.Database, Schema: r.Agent.Schema, Name: r.Agent.Name},
		Compatible:     r.Compatible(),
		HasAgentAccess: r.HasAgentAccess,
		HasCortex:      r.HasCortex,
		HasWarehouse:   r.HasWarehouse,
		Satisfied:      r.Satisfied,
		Missing:        privilegeSet(r.Missing),
		FixSQL:         r.FixSQL,
		Diagnostics:    diagnostics(r.Diagnostics),
	}
}
