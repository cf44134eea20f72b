// Package mcp exposes the review engine over the Model Context Protocol so
// agent IDEs can convene a panel without shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"consilium/internal/content"
	"consilium/internal/engine"
	"consilium/internal/models"
	"consilium/internal/output"
	"consilium/internal/reviewer"
)

// Settings carries the effective configuration the tools run with. The cmd
// layer resolves it from viper once at startup; tests build it directly.
type Settings struct {
	Reviewers []reviewer.Config
	Options   reviewer.Options
	MaxRounds int
	Timeout   time.Duration
	MaxBytes  int
	Policy    models.FailurePolicy
	Search    bool
	Version   string
}

// Server exposes blinded panel reviews as MCP tools.
type Server struct {
	settings Settings
}

// NewServer creates the MCP server wrapper with the given settings.
func NewServer(settings Settings) *Server {
	return &Server{settings: settings}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	version := s.settings.Version
	if version == "" {
		version = "dev"
	}
	srv := server.NewMCPServer("consilium", version, server.WithToolCapabilities(true))

	// Register all tools
	srv.AddTool(s.reviewTool())
	srv.AddTool(s.reviewersTool())
	srv.AddTool(s.checklistTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
// Progress stays silent: stdout belongs to the protocol.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// buildPanel constructs the configured capabilities.
func (s *Server) buildPanel() ([]reviewer.Capability, error) {
	return reviewer.Build(s.settings.Reviewers, s.settings.Options)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// consilium_review
func (s *Server) reviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("consilium_review",
		mcp.WithDescription("Run a blinded multi-round consensus review of an artifact. Anonymous AI reviewers evaluate it independently, then discuss each other's positions across bounded rounds until they agree or the budget runs out. Returns a JSON summary with the outcome, per-round tallies, and the full Markdown report."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The artifact text to review")),
		mcp.WithString("mode", mcp.Description("Review mode: plan, code, analysis, report (default: code)")),
		mcp.WithNumber("rounds", mcp.Description("Maximum panel rounds (default: configured review.max_rounds)")),
		mcp.WithString("policy", mcp.Description("Failure policy: strict aborts on any reviewer failure, degraded continues with placeholders (default: configured review.failure_policy)")),
		mcp.WithBoolean("search", mcp.Description("Allow reviewers that support it to search the web")),
	)
	return tool, s.handleReview
}

func (s *Server) handleReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}
	if text == "" {
		return mcp.NewToolResultError("content is empty"), nil
	}

	mode := models.ModeCode
	if m := request.GetString("mode", ""); m != "" {
		mode, err = models.ParseMode(m)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	rounds := s.settings.MaxRounds
	if r := request.GetInt("rounds", 0); r > 0 {
		rounds = r
	}

	policy := s.settings.Policy
	if p := request.GetString("policy", ""); p != "" {
		policy, err = models.ParseFailurePolicy(p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	search := request.GetBool("search", s.settings.Search)

	panel, err := s.buildPanel()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("panel configuration: %v", err)), nil
	}

	// Best-effort; an empty working dir just means no VCS context in the report.
	workingDir, _ := os.Getwd()

	res, err := engine.RunSession(ctx, engine.Params{
		Mode:          mode,
		Artifact:      content.FromText(text, s.settings.MaxBytes),
		Panel:         panel,
		MaxRounds:     rounds,
		Timeout:       s.settings.Timeout,
		Policy:        policy,
		SearchEnabled: search,
		WorkingDir:    workingDir,
		Version:       s.settings.Version,
		UI:            output.Silent(),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
	}

	result := map[string]any{
		"session_id":  res.Session.ID,
		"mode":        string(mode),
		"outcome":     string(res.Outcome.Final),
		"reason":      res.Outcome.Reason,
		"rounds_used": len(res.Outcome.Rounds),
		"max_rounds":  rounds,
		"approve":     res.Outcome.Tally.Approve,
		"reject":      res.Outcome.Tally.Reject,
		"report":      res.Report,
	}
	if len(res.Outcome.Incomplete) > 0 {
		result["incomplete"] = res.Outcome.Incomplete
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// consilium_reviewers
func (s *Server) reviewersTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("consilium_reviewers",
		mcp.WithDescription("List the configured reviewer capabilities and probe their availability. Returns a JSON array with name, kind, and availability."),
	)
	return tool, s.handleReviewers
}

func (s *Server) handleReviewers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	panel, err := s.buildPanel()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("panel configuration: %v", err)), nil
	}

	type reviewerOut struct {
		Name      string `json:"name"`
		Kind      string `json:"kind"`
		Available bool   `json:"available"`
		Error     string `json:"error,omitempty"`
	}

	// Build preserves config order, so configs and capabilities line up.
	out := make([]reviewerOut, len(panel))
	for i, c := range panel {
		kind := s.settings.Reviewers[i].Kind
		if kind == "" {
			kind = reviewer.KindCLI
		}
		out[i] = reviewerOut{Name: c.Name(), Kind: kind, Available: true}
		if err := c.Available(); err != nil {
			out[i].Available = false
			out[i].Error = err.Error()
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reviewers: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// consilium_checklist
func (s *Server) checklistTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("consilium_checklist",
		mcp.WithDescription("Get the review checklist a panel is asked to apply for a given mode. This is the same text embedded in every reviewer prompt."),
		mcp.WithString("mode", mcp.Required(), mcp.Description("Review mode: plan, code, analysis, report")),
	)
	return tool, s.handleChecklist
}

func (s *Server) handleChecklist(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modeStr, err := request.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: mode"), nil
	}
	mode, err := models.ParseMode(modeStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(engine.Checklist(mode)), nil
}
