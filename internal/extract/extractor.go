// Package extract turns an agent's tool specification and the semantic
// definitions it references into a flat set of required object privileges.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"cortex-grants/internal/domain"
)

// Resolver fetches the raw YAML body of a semantic view or staged
// semantic-model file. The identifier is either a qualified view name or an
// @-prefixed stage path. Implementations may perform I/O and may fail;
// failures are converted into per-tool diagnostics, never batch aborts.
type Resolver func(ctx context.Context, identifier string) (string, error)

// toolListPaths are the candidate locations of the tool list inside an agent
// specification, tried in order. The first present, non-empty list wins.
// Schema versions have moved the list between these keys.
var toolListPaths = []string{"tools", "definition.tools", "spec.tools"}

// maxConcurrentResolves bounds parallel resolver calls. Per-tool fetches are
// independent, so they run concurrently; the final union is order-independent.
const maxConcurrentResolves = 4

// Result is the outcome of extracting one agent specification.
type Result struct {
	Required    *domain.PrivilegeSet
	Tools       []domain.ToolDescriptor
	Diagnostics []domain.ToolDiagnostic
}

// Extractor derives required privileges from agent tool specifications.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract walks the agent specification, classifies each tool, resolves the
// semantic definitions of analyst tools through the resolver callback, and
// returns the union of required object identifiers.
//
// The only blocking failure is a spec with no tool list at all
// (ToolsNotFoundError). Everything local to one tool — malformed stage
// paths, unreachable semantic definitions, unrecognized formats — becomes a
// diagnostic and the batch continues.
func (e *Extractor) Extract(ctx context.Context, agentSpec map[string]any, resolve Resolver) (*Result, error) {
	rawTools, err := findToolList(agentSpec)
	if err != nil {
		return nil, err
	}

	res := &Result{Required: domain.NewPrivilegeSet()}

	// First pass: classify tools and collect the identifiers that need a
	// semantic-definition fetch.
	type pendingResolve struct {
		tool       string
		identifier string
	}
	var pending []pendingResolve

	for i, raw := range rawTools {
		entry, ok := raw.(map[string]any)
		if !ok {
			res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{
				Tool:    fmt.Sprintf("tool_%d", i),
				Message: "tool entry is not an object, skipped",
			})
			continue
		}
		tool := unwrapTool(entry)
		name := stringField(tool, "name", "tool_name")
		if name == "" {
			name = fmt.Sprintf("tool_%d", i)
		}
		kind := classify(stringField(tool, "type", "tool_type", "kind"))
		desc := domain.ToolDescriptor{Name: name, Kind: kind, Extra: tool}

		switch kind {
		case domain.ToolAnalyst:
			// A semantic view name is preferred over a staged model file
			// when both are present.
			if model := stringField(tool, "semantic_model"); model != "" {
				desc.ResourceRef = model
				res.Required.AddView(model)
				pending = append(pending, pendingResolve{tool: name, identifier: model})
			} else if file := stringField(tool, "semantic_model_file"); file != "" {
				desc.ResourceRef = file
				stage, perr := ParseStagePath(file)
				if perr != nil {
					res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{Tool: name, Message: perr.Error()})
					e.logger.Warn("skipping tool with malformed stage path", "tool", name, "path", file)
					break
				}
				res.Required.AddStage(stage)
				pending = append(pending, pendingResolve{tool: name, identifier: file})
			} else {
				res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{
					Tool:    name,
					Message: "analyst tool has neither semantic_model nor semantic_model_file",
				})
			}
		case domain.ToolSearch:
			if svc := stringField(tool, "search_service"); svc != "" {
				desc.ResourceRef = svc
				res.Required.AddSearchService(svc)
			} else {
				res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{
					Tool:    name,
					Message: "search tool has no search_service",
				})
			}
		case domain.ToolGeneric:
			// The procedure identifier may carry a parenthesized parameter
			// signature; it is preserved verbatim since procedure grants are
			// by exact signature.
			if proc := stringField(tool, "procedure"); proc != "" {
				desc.ResourceRef = proc
				res.Required.AddProcedure(proc)
			} else {
				res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{
					Tool:    name,
					Message: "generic tool has no procedure",
				})
			}
		default:
			res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{
				Tool:    name,
				Message: fmt.Sprintf("unrecognized tool type %q, no grants derived", stringField(tool, "type", "tool_type", "kind")),
			})
		}
		res.Tools = append(res.Tools, desc)
	}

	// Second pass: fetch semantic definitions concurrently, then walk each
	// one. Walking is serialized; only the I/O overlaps.
	bodies := make([]string, len(pending))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentResolves)
	for i, p := range pending {
		g.Go(func() error {
			body, rerr := resolve(gctx, p.identifier)
			if rerr != nil || body == "" {
				mu.Lock()
				res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{
					Tool:    p.tool,
					Message: (&domain.ResourceUnavailableError{Identifier: p.identifier, Err: rerr}).Error(),
				})
				mu.Unlock()
				return nil
			}
			bodies[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, p := range pending {
		if bodies[i] == "" {
			continue
		}
		refs, werr := WalkSemanticDefinition(bodies[i])
		if werr != nil {
			res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{
				Tool:    p.tool,
				Message: fmt.Sprintf("semantic definition %q: %v", p.identifier, werr),
			})
			continue
		}
		if len(refs.Tables) == 0 && len(refs.SearchServices) == 0 {
			res.Diagnostics = append(res.Diagnostics, domain.ToolDiagnostic{
				Tool:    p.tool,
				Message: (&domain.UnsupportedSemanticFormatError{Identifier: p.identifier}).Error(),
			})
			continue
		}
		for _, t := range refs.Tables {
			res.Required.AddTable(t)
		}
		for _, s := range refs.SearchServices {
			res.Required.AddSearchService(s)
		}
	}

	return res, nil
}

// findToolList locates the tool list in the agent spec, honoring the
// documented path precedence. A present-but-empty list does not win; the
// search continues to the next candidate.
func findToolList(agentSpec map[string]any) ([]any, error) {
	candidates := [][]string{
		{"tools"},
		{"definition", "tools"},
		{"spec", "tools"},
	}
	for _, path := range candidates {
		node := any(agentSpec)
		found := true
		for _, key := range path {
			m, isMap := node.(map[string]any)
			if !isMap {
				found = false
				break
			}
			child, present := m[key]
			if !present {
				found = false
				break
			}
			node = child
		}
		if !found {
			continue
		}
		if list, isList := node.([]any); isList && len(list) > 0 {
			return list, nil
		}
	}
	return nil, &domain.ToolsNotFoundError{SearchedPaths: toolListPaths}
}

// unwrapTool peels the per-tool nesting some schema versions introduce:
// tool properties may live under tool_spec, definition, or spec instead of
// on the entry itself.
func unwrapTool(entry map[string]any) map[string]any {
	for _, key := range []string{"tool_spec", "definition", "spec"} {
		if inner, ok := entry[key].(map[string]any); ok {
			return inner
		}
	}
	return entry
}

// classify maps a raw type string onto a ToolKind. Legacy type names are
// accepted alongside the current ones.
func classify(rawType string) domain.ToolKind {
	switch strings.ToLower(rawType) {
	case string(domain.ToolAnalyst), "cortex_analyst", "analyst_text_to_sql":
		return domain.ToolAnalyst
	case string(domain.ToolSearch):
		return domain.ToolSearch
	case string(domain.ToolGeneric), "procedure", "generic_procedure":
		return domain.ToolGeneric
	default:
		return domain.ToolUnknown
	}
}

// stringField returns the first non-empty string value among the given keys.
func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// ParseStagePath splits an @-prefixed stage path of the form
// @DB.SCHEMA.STAGE/relative/file.yaml into the qualified stage name.
// Exactly three dot-separated components are required before the first
// slash; anything else is a MalformedStagePathError.
func ParseStagePath(path string) (stage string, err error) {
	if !strings.HasPrefix(path, "@") {
		return "", &domain.MalformedStagePathError{Path: path}
	}
	head, _, _ := strings.Cut(strings.TrimPrefix(path, "@"), "/")
	parts := strings.Split(head, ".")
	if len(parts) != 3 {
		return "", &domain.MalformedStagePathError{Path: path}
	}
	for _, p := range parts {
		if p == "" {
			return "", &domain.MalformedStagePathError{Path: path}
		}
	}
	return head, nil
}
