package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/pulse/internal/engine"
)

// Server exposes project analytics as MCP tools.
type Server struct {
	source  engine.Source
	engine  *engine.Engine
	logger  *slog.Logger
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(src engine.Source, eng *engine.Engine, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}
	return &Server{source: src, engine: eng, logger: logger, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("pulse", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.healthTool())
	srv.AddTool(s.prioritiesTool())
	srv.AddTool(s.chatActivityTool())
	srv.AddTool(s.burndownTool())
	srv.AddTool(s.recommendationsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

func projectParam() mcp.ToolOption {
	return mcp.WithString("project", mcp.Required(), mcp.Description("Project name or ID"))
}

// pulse_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_list_projects",
		mcp.WithDescription("List all projects. Returns a JSON array with id, name, team lead, members, mentors and dates."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.source.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	type projectOut struct {
		ID        string     `json:"id"`
		Name      string     `json:"name"`
		TeamLead  string     `json:"teamLead"`
		Members   []string   `json:"members"`
		Mentors   []string   `json:"mentors"`
		CreatedAt time.Time  `json:"createdAt"`
		EndDate   *time.Time `json:"endDate,omitempty"`
	}

	out := make([]projectOut, len(projects))
	for i, p := range projects {
		out[i] = projectOut{
			ID:        p.ID,
			Name:      p.Name,
			TeamLead:  p.TeamLead,
			Members:   p.Members,
			Mentors:   p.Mentors,
			CreatedAt: p.CreatedAt,
			EndDate:   p.EndDate,
		}
	}
	return jsonResult(out)
}

// pulse_health
func (s *Server) healthTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_health",
		mcp.WithDescription("Assess project health: risk level, risk factors, urgent tasks, velocity and estimated days to complete."),
		projectParam(),
	)
	return tool, s.handleHealth
}

func (s *Server) handleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, errResult := s.load(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	report, err := s.engine.AnalyzeHealth(snap.Project, snap.Tasks)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("health analysis failed: %v", err)), nil
	}
	return jsonResult(report)
}

// pulse_priorities
func (s *Server) prioritiesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_priorities",
		mcp.WithDescription("Rank the open tasks of a project by priority score, highest first, with the reasons for each score."),
		projectParam(),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tasks to return (0 for all)")),
	)
	return tool, s.handlePriorities
}

func (s *Server) handlePriorities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, errResult := s.load(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	ranked, err := s.engine.ScoreTaskPriorities(snap.Tasks, request.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("priority scoring failed: %v", err)), nil
	}
	return jsonResult(ranked)
}

// pulse_chat_activity
func (s *Server) chatActivityTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_chat_activity",
		mcp.WithDescription("Summarize project chat activity per team member over a window of days, or compare the 7, 14 and 30 day windows when trends is set."),
		projectParam(),
		mcp.WithNumber("days", mcp.Description("Window length in days (default 7)")),
		mcp.WithBoolean("trends", mcp.Description("Return the 7/14/30 day comparison and week-over-week trend")),
	)
	return tool, s.handleChatActivity
}

func (s *Server) handleChatActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, errResult := s.load(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	if request.GetBool("trends", false) {
		trends, err := s.engine.ChatTrends(snap.Project, snap.Messages)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("chat trends failed: %v", err)), nil
		}
		return jsonResult(trends)
	}

	days := request.GetInt("days", engine.DefaultChatWindowDays)
	summary, err := s.engine.AnalyzeChatActivity(snap.Project, snap.Messages, days)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat analysis failed: %v", err)), nil
	}
	return jsonResult(summary)
}

// pulse_burndown
func (s *Server) burndownTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_burndown",
		mcp.WithDescription("Daily burndown series of remaining tasks from project start through the latest deadline; future days are projected."),
		projectParam(),
	)
	return tool, s.handleBurndown
}

func (s *Server) handleBurndown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, errResult := s.load(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	series, err := s.engine.BuildBurndown(snap.Project, snap.Tasks)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("burndown failed: %v", err)), nil
	}
	return jsonResult(series)
}

// pulse_recommendations
func (s *Server) recommendationsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_recommendations",
		mcp.WithDescription("Recommend next steps, risks, deadline alerts and a timeline prediction for a project. Set ai to ask the narrative service; it falls back to the built-in rules when unavailable."),
		projectParam(),
		mcp.WithBoolean("ai", mcp.Description("Use the narrative service when configured")),
	)
	return tool, s.handleRecommendations
}

func (s *Server) handleRecommendations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, errResult := s.load(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	report, err := s.engine.Analyze(ctx, *snap, engine.Options{
		IncludeChat: true,
		Narrative:   request.GetBool("ai", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return jsonResult(report.Recommendations)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// load resolves the project argument and loads its snapshot. A non-nil
// result is the error to hand back to the client.
func (s *Server) load(ctx context.Context, request mcp.CallToolRequest) (*engine.Snapshot, *mcp.CallToolResult) {
	ref, err := request.RequireString("project")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: project")
	}
	snap, err := engine.Load(ctx, s.source, ref, time.Time{})
	if err != nil {
		s.logger.Debug("mcp load failed", "project", ref, "error", err)
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to load project %s: %v", ref, err))
	}
	return snap, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
