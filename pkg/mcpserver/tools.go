package mcpserver

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jingkaihe/skillcomposer/pkg/analyzer"
	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/optimizer"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// contextArguments is the argument object shared by discover_skills and
// compose_skills
type contextArguments struct {
	ProjectIdea        string         `json:"project_idea"`
	ProjectType        string         `json:"project_type"`
	Technologies       []string       `json:"technologies"`
	Requirements       []string       `json:"requirements"`
	Objectives         []string       `json:"objectives"`
	SecurityLevel      string         `json:"security_level"`
	ComplianceRequired bool           `json:"compliance_required"`
	PlatformTargets    []string       `json:"platform_targets"`
	RequestedSkills    []string       `json:"requested_skills"`
	Constraints        map[string]any `json:"constraints"`
}

// projectContext validates the arguments and fills what the idea implies
func (a contextArguments) projectContext() (skilltypes.ProjectContext, error) {
	level, err := skilltypes.ParseSecurityLevel(a.SecurityLevel)
	if err != nil {
		return skilltypes.ProjectContext{}, err
	}
	pc := skilltypes.ProjectContext{
		ProjectIdea:        strings.TrimSpace(a.ProjectIdea),
		ProjectType:        a.ProjectType,
		Technologies:       a.Technologies,
		Requirements:       a.Requirements,
		Objectives:         a.Objectives,
		SecurityLevel:      level,
		ComplianceRequired: a.ComplianceRequired,
		PlatformTargets:    a.PlatformTargets,
		RequestedSkills:    a.RequestedSkills,
	}
	// absent constraints fall through to the registry defaults
	if len(a.Constraints) > 0 {
		if pc.Constraints, err = skilltypes.DecodeConstraints(a.Constraints); err != nil {
			return pc, err
		}
	}
	return analyzer.Complete(pc), nil
}

func contextToolOptions(description string) []mcp.ToolOption {
	stringList := map[string]any{"type": "string"}
	return []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("project_idea",
			mcp.Required(),
			mcp.Description("Free-text description of the project"),
		),
		mcp.WithString("project_type",
			mcp.Description("Project type, e.g. microservices or openssl. Inferred from the idea when omitted."),
		),
		mcp.WithArray("technologies",
			mcp.Description("Technologies used by the project. Inferred from the idea when omitted."),
			mcp.Items(stringList),
		),
		mcp.WithArray("requirements",
			mcp.Description("Functional requirements"),
			mcp.Items(stringList),
		),
		mcp.WithArray("objectives",
			mcp.Description("Quality objectives"),
			mcp.Items(stringList),
		),
		mcp.WithString("security_level",
			mcp.Description("Security posture"),
			mcp.Enum(string(skilltypes.SecurityStandard), string(skilltypes.SecurityHigh)),
		),
		mcp.WithBoolean("compliance_required",
			mcp.Description("Whether regulatory compliance validation is required"),
		),
		mcp.WithArray("platform_targets",
			mcp.Description("Target platforms"),
			mcp.Items(stringList),
		),
		mcp.WithArray("requested_skills",
			mcp.Description("Skill ids to consider even when they are not auto-composed"),
			mcp.Items(stringList),
		),
		mcp.WithObject("constraints",
			mcp.Description("Resource limits: max_tokens, max_execution_seconds, max_skills"),
		),
	}
}

func discoverTool() mcp.Tool {
	return mcp.NewTool(ToolDiscoverSkills, contextToolOptions(
		"Find the catalog skills relevant to a project, with their relevance scores")...)
}

func composeTool() mcp.Tool {
	return mcp.NewTool(ToolComposeSkills, contextToolOptions(
		"Compose an ordered, budget-bounded and verified skill plan for a project")...)
}

func listTool() mcp.Tool {
	return mcp.NewTool(ToolListSkills,
		mcp.WithDescription("List the skills in the catalog, optionally filtered by type or tag"),
		mcp.WithString("skill_type",
			mcp.Description("Only list skills of this type"),
		),
		mcp.WithString("tag",
			mcp.Description("Only list skills with a tag matching this glob pattern"),
		),
	)
}

// skillSummary is the compact skill view returned by the tools
type skillSummary struct {
	ID          string   `json:"skill_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Kind        string   `json:"skill_type"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags,omitempty"`
	TokenBudget int      `json:"token_budget"`
	Score       *int     `json:"score,omitempty"`
}

func summarize(s *skilltypes.Skill) skillSummary {
	return skillSummary{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Kind:        string(s.Kind),
		Priority:    s.Priority.String(),
		Tags:        s.Tags,
		TokenBudget: s.TokenBudget,
	}
}

func (s *Server) handleDiscover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args contextArguments
	if err := decodeArguments(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.ProjectIdea == "" {
		return mcp.NewToolResultError("project_idea is required"), nil
	}
	pc, err := args.projectContext()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pc = s.registry.Prepare(ctx, pc)
	candidates := s.registry.Discover(ctx, pc)
	out := make([]skillSummary, 0, len(candidates))
	for _, c := range candidates {
		summary := summarize(c)
		score := optimizer.Score(c, pc)
		summary.Score = &score
		out = append(out, summary)
	}

	return jsonResult(map[string]any{
		"project_type": pc.ProjectType,
		"technologies": pc.Technologies,
		"triggers":     analyzer.ExtractTriggers(pc),
		"candidates":   out,
	})
}

func (s *Server) handleCompose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args contextArguments
	if err := decodeArguments(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.ProjectIdea == "" {
		return mcp.NewToolResultError("project_idea is required"), nil
	}
	pc, err := args.projectContext()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pc = s.registry.Prepare(ctx, pc)
	comp := s.registry.DiscoverAndCompose(ctx, pc)

	result := map[string]any{"composition": comp}
	if s.history != nil {
		rec, err := s.history.Record(ctx, pc, comp, s.registry.Catalog().Version())
		if err != nil {
			logger.G(ctx).WithError(err).Warn("failed to record composition")
		} else {
			result["record_id"] = rec.ID
		}
	}
	return jsonResult(result)
}

func (s *Server) handleList(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		SkillType string `json:"skill_type"`
		Tag       string `json:"tag"`
	}
	if err := decodeArguments(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var filter catalog.Filter
	if args.SkillType != "" {
		kind, err := skilltypes.ParseKind(args.SkillType)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.Kinds = []skilltypes.Kind{kind}
	}
	if args.Tag != "" {
		filter.Tags = []string{args.Tag}
	}

	matched, err := s.registry.ListSkills(filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]skillSummary, 0, len(matched))
	for _, m := range matched {
		out = append(out, summarize(m))
	}
	return jsonResult(map[string]any{
		"skills":          out,
		"total":           len(out),
		"catalog_version": s.registry.Catalog().Version(),
	})
}
