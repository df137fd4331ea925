package ui

import (
	"fmt"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"cortex-grants/internal/domain"
)

type navItem struct {
	Label string
	Href  string
	Key   string
}

var navItems = []navItem{
	{Label: "Overview", Href: "/ui", Key: "home"},
	{Label: "Roles", Href: "/ui/roles", Key: "roles"},
	{Label: "Agents", Href: "/ui/agents", Key: "agents"},
}

func appPage(title, active string, body ...Node) Node {
	nav := make([]Node, 0, len(navItems))
	for _, item := range navItems {
		className := "nav-link"
		if item.Key == active {
			className += " active"
		}
		nav = append(nav, A(Href(item.Href), Class(className), Text(item.Label)))
	}

	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | Cortex Grants")),
			Link(Rel("icon"), Href("data:,")),
			StyleEl(Raw(stylesheet)),
		),
		Body(
			Main(Class("shell"),
				Aside(Class("sidebar"),
					Div(Class("brand"),
						Strong(Text("Cortex Grants")),
						P(Class("muted"), Text("Agent least-privilege toolkit")),
					),
					Nav(Class("nav"), Group(nav)),
				),
				Section(Class("main"),
					H1(Class("page-title"), Text(title)),
					Div(Class("content"), Group(body)),
				),
			),
		),
	)
}

func errorPage(title, message string) Node {
	return appPage(title, "",
		Div(Class("card error"),
			P(Text(message)),
			A(Href("/ui"), Text("Back to overview")),
		),
	)
}

func overviewPage() Node {
	card := func(title, desc, href, label string) Node {
		return Div(Class("card"),
			H2(Text(title)),
			P(Text(desc)),
			A(Href(href), Text(label)),
		)
	}
	return appPage("Overview", "home",
		Div(Class("cards"),
			card("Roles", "Check a role's Cortex readiness and current grants.", "/ui/roles", "Browse roles"),
			card("Agents", "Inspect agent tools and generate least-privilege grant scripts.", "/ui/agents", "Browse agents"),
		),
	)
}

func rolesPage(roles []string) Node {
	rows := make([]Node, 0, len(roles))
	for _, role := range roles {
		rows = append(rows, Tr(
			Td(A(Href("/ui/roles/"+role), Text(role))),
		))
	}
	return appPage("Roles", "roles",
		P(Class("muted"), Text(fmt.Sprintf("%d roles visible to this session.", len(roles)))),
		Table(Class("table"),
			THead(Tr(Th(Text("Role")))),
			TBody(Group(rows)),
		),
	)
}

func scoreBadge(score, max int) Node {
	className := "badge warn"
	if score == max {
		className = "badge ok"
	} else if score == 0 {
		className = "badge bad"
	}
	return Span(Class(className), Text(fmt.Sprintf("%d / %d", score, max)))
}

func roleDetailPage(report *domain.RoleReport) Node {
	body := []Node{
		Div(Class("card"),
			H2(Text("Readiness")),
			P(scoreBadge(report.ReadinessScore, domain.ReadinessMax)),
			summaryTable([][2]string{
				{"Cortex database role", yesNo(report.HasCortex)},
				{"Warehouse grants", fmt.Sprintf("%d", report.WarehouseCount)},
				{"Database grants", fmt.Sprintf("%d", report.DatabaseCount)},
				{"Table/view SELECT grants", fmt.Sprintf("%d", report.TableCount)},
			}),
		),
	}
	if len(report.Issues) > 0 {
		issues := make([]Node, 0, len(report.Issues))
		for _, issue := range report.Issues {
			issues = append(issues, Li(Text(issue)))
		}
		body = append(body, Div(Class("card"),
			H2(Text("Issues")),
			Ul(Group(issues)),
		))
	}
	if report.RemediationSQL != "" {
		body = append(body, sqlCard("Remediation SQL", report.RemediationSQL))
	}
	if len(report.Grants) > 0 {
		rows := make([]Node, 0, len(report.Grants))
		for _, g := range report.Grants {
			rows = append(rows, Tr(
				Td(Text(string(g.GrantedOn))),
				Td(Text(g.Privilege)),
				Td(Code(Text(g.ObjectName))),
			))
		}
		body = append(body, Div(Class("card"),
			H2(Text(fmt.Sprintf("Current grants (%d)", len(report.Grants)))),
			Table(Class("table"),
				THead(Tr(Th(Text("Granted on")), Th(Text("Privilege")), Th(Text("Object")))),
				TBody(Group(rows)),
			),
		))
	}
	return appPage("Role "+report.Role, "roles", body...)
}

func agentsPage(agents []domain.Agent) Node {
	rows := make([]Node, 0, len(agents))
	for _, a := range agents {
		href := fmt.Sprintf("/ui/agents/%s/%s/%s", a.Database, a.Schema, a.Name)
		rows = append(rows, Tr(
			Td(A(Href(href), Text(a.FQN()))),
			Td(A(Href(href+"/compatibility"), Text("Check a role"))),
		))
	}
	return appPage("Agents", "agents",
		P(Class("muted"), Text(fmt.Sprintf("%d agents found.", len(agents)))),
		Table(Class("table"),
			THead(Tr(Th(Text("Agent")), Th(Text("")))),
			TBody(Group(rows)),
		),
	)
}

func agentDetailPage(report *domain.AgentReport) Node {
	a := report.Agent
	body := []Node{}

	if len(report.Tools) > 0 {
		rows := make([]Node, 0, len(report.Tools))
		for _, t := range report.Tools {
			rows = append(rows, Tr(
				Td(Text(t.Name)),
				Td(Text(string(t.Kind))),
				Td(Code(Text(t.ResourceRef))),
			))
		}
		body = append(body, Div(Class("card"),
			H2(Text(fmt.Sprintf("Tools (%d)", len(report.Tools)))),
			Table(Class("table"),
				THead(Tr(Th(Text("Name")), Th(Text("Type")), Th(Text("Resource")))),
				TBody(Group(rows)),
			),
		))
	}
	if len(report.Diagnostics) > 0 {
		items := make([]Node, 0, len(report.Diagnostics))
		for _, d := range report.Diagnostics {
			items = append(items, Li(Strong(Text(d.Tool+": ")), Text(d.Message)))
		}
		body = append(body, Div(Class("card warn-card"),
			H2(Text("Diagnostics")),
			Ul(Group(items)),
		))
	}
	body = append(body, requiredCard(report.Required))
	body = append(body,
		sqlCard(fmt.Sprintf("Grant script for role %s", report.RoleName), report.Script),
		P(A(
			Href(fmt.Sprintf("/api/v1/agents/%s/%s/%s/script?role=%s", a.Database, a.Schema, a.Name, report.RoleName)),
			Class("btn"),
			Text("Download .sql"),
		)),
	)
	return appPage("Agent "+a.FQN(), "agents", body...)
}

func compatibilityFormPage(agent domain.Agent, roles []string) Node {
	options := make([]Node, 0, len(roles))
	for _, role := range roles {
		options = append(options, Option(Value(role), Text(role)))
	}
	return appPage("Compatibility check", "agents",
		Div(Class("card"),
			P(Text("Check whether an existing role can use agent "+agent.FQN()+".")),
			Form(Method("get"),
				Label(Text("Role")),
				Select(Name("role"), Group(options)),
				Button(Type("submit"), Class("btn"), Text("Check")),
			),
		),
	)
}

func compatibilityResultPage(report *domain.CompatibilityReport) Node {
	verdict := Div(Class("card bad-card"), H2(Text("Not compatible")))
	if report.Compatible() {
		verdict = Div(Class("card ok-card"), H2(Text("Compatible")))
	}
	body := []Node{
		verdict,
		Div(Class("card"),
			H2(Text("Checks")),
			summaryTable([][2]string{
				{"USAGE on agent", yesNo(report.HasAgentAccess)},
				{"Cortex database role", yesNo(report.HasCortex)},
				{"Warehouse usage", yesNo(report.HasWarehouse)},
				{"Object grants complete", yesNo(report.Satisfied)},
			}),
		),
	}
	if !report.Satisfied {
		body = append(body, requiredCard(report.Missing))
	}
	if report.FixSQL != "" {
		body = append(body, sqlCard("Fix SQL", report.FixSQL))
	}
	return appPage(fmt.Sprintf("Role %s vs %s", report.Role, report.Agent.FQN()), "agents", body...)
}

// requiredCard lists a privilege set grouped by kind, omitting empty groups.
func requiredCard(set *domain.PrivilegeSet) Node {
	if set == nil || set.IsEmpty() {
		return Div(Class("card"),
			H2(Text("Required objects")),
			P(Class("muted"), Text("No grantable objects.")),
		)
	}
	group := func(label string, names []string) Node {
		if len(names) == 0 {
			return nil
		}
		items := make([]Node, 0, len(names))
		for _, n := range names {
			items = append(items, Li(Code(Text(n))))
		}
		return Div(
			H3(Text(label)),
			Ul(Group(items)),
		)
	}
	return Div(Class("card"),
		H2(Text(fmt.Sprintf("Required objects (%d)", set.Count()))),
		group("Databases", set.Databases()),
		group("Schemas", set.Schemas()),
		group("Views", set.Views()),
		group("Tables", set.Tables()),
		group("Search services", set.SearchServices()),
		group("Procedures", set.Procedures()),
		group("Stages", set.Stages()),
	)
}

func sqlCard(title, sql string) Node {
	return Div(Class("card"),
		H2(Text(title)),
		Pre(Class("sql"), Code(Text(sql))),
	)
}

func summaryTable(rows [][2]string) Node {
	out := make([]Node, 0, len(rows))
	for _, row := range rows {
		out = append(out, Tr(Td(Text(row[0])), Td(Text(row[1]))))
	}
	return Table(Class("table"), TBody(Group(out)))
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
