// Package mcpserver exposes a skill registry over the Model Context Protocol.
// Every registered skill becomes a tool whose arguments are the skill's
// declared parameters, and the run_turn tool runs selection and execution for
// a free-text utterance.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/deepnoodle-ai/skillet/slogger"
)

// RunTurnTool is the name of the selection tool.
const RunTurnTool = "run_turn"

// Options configures a Server.
type Options struct {
	Registry *skillet.Registry

	// Runner backs the run_turn tool. Nil omits it.
	Runner *skillet.Runner

	Name    string
	Version string
	Logger  slogger.Logger
}

// Server is an MCP server over a registry.
type Server struct {
	mcp      *server.MCPServer
	registry *skillet.Registry
	runner   *skillet.Runner
	logger   slogger.Logger

	mu    sync.Mutex
	tools map[string]string // tool name -> schema signature
}

// New creates a server and registers a tool for every skill currently in
// the registry.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.Name == "" {
		opts.Name = "skillet"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{
		mcp: server.NewMCPServer(opts.Name, opts.Version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		registry: opts.Registry,
		runner:   opts.Runner,
		logger:   opts.Logger,
		tools:    map[string]string{},
	}
	if s.runner != nil {
		s.mcp.AddTool(runTurnTool(), s.handleRunTurn)
	}
	s.Sync()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Sync reconciles the tool list with the registry: new skills and skills
// whose description or parameters changed are (re)added and removed skills are deleted. It returns the number of
// skill tools.
func (s *Server) Sync() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := map[string]string{}
	var added []server.ServerTool
	for _, sk := range s.registry.All() {
		if sk.Name == RunTurnTool {
			s.logger.Warn("skill name collides with the run_turn tool, not exposed", "skill", sk.Name)
			continue
		}
		sig := signature(sk)
		current[sk.Name] = sig
		if prev, ok := s.tools[sk.Name]; ok && prev == sig {
			continue
		}
		added = append(added, server.ServerTool{Tool: skillTool(sk), Handler: s.skillHandler(sk.Name)})
	}
	var removed []string
	for name := range s.tools {
		if _, ok := current[name]; !ok {
			removed = append(removed, name)
		}
	}
	if len(removed) > 0 {
		sort.Strings(removed)
		s.mcp.DeleteTools(removed...)
	}
	if len(added) > 0 {
		s.mcp.AddTools(added...)
	}
	if len(added) > 0 || len(removed) > 0 {
		s.logger.Debug("synced mcp tools", "added", len(added), "removed", len(removed))
	}
	s.tools = current
	return len(current)
}

// SyncEvery calls Sync on an interval until ctx is done, for registries that
// change underneath the server (hot reload, the HTTP editor).
func (s *Server) SyncEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync()
		}
	}
}

// ServeStdio serves the protocol on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HTTPHandler serves the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

func skillTool(sk *skill.Skill) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(sk.Description)}
	for _, name := range sk.ParameterNames() {
		p := sk.Parameters[name]
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Type {
		case skill.TypeNumber:
			opts = append(opts, mcp.WithNumber(name, propOpts...))
		case skill.TypeBoolean:
			opts = append(opts, mcp.WithBoolean(name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(name, propOpts...))
		}
	}
	return mcp.NewTool(sk.Name, opts...)
}

// signature changes whenever the tool schema derived from sk would.
func signature(sk *skill.Skill) string {
	var b strings.Builder
	b.WriteString(sk.Description)
	for _, name := range sk.ParameterNames() {
		p := sk.Parameters[name]
		fmt.Fprintf(&b, "\x00%s:%s:%t:%s", name, p.Type, p.Required, p.Description)
	}
	return b.String()
}

func runTurnTool() mcp.Tool {
	return mcp.NewTool(RunTurnTool,
		mcp.WithDescription("Select every skill that applies to a user message, extract its parameters, run it, and return the execution log."),
		mcp.WithString("utterance", mcp.Required(), mcp.Description("The user message")),
	)
}

func (s *Server) skillHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !s.registry.Has(name) {
			return mcp.NewToolResultError(fmt.Sprintf("skill %q is no longer registered", name)), nil
		}
		log := skillet.NewExecutionLog()
		if err := s.registry.Execute(ctx, log, name, req.GetArguments()); err != nil {
			s.logger.Warn("skill telemetry not persisted", "skill", name, "error", err)
		}
		return mcp.NewToolResultText(formatLines(log.Lines())), nil
	}
}

func (s *Server) handleRunTurn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	utterance, err := req.RequireString("utterance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	turn, err := s.runner.Run(ctx, utterance)
	if turn == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		s.logger.Warn("turn completed with errors", "turn", turn.ID, "error", err)
	}
	names := make([]string, 0, len(turn.Selections))
	for _, sel := range turn.Selections {
		names = append(names, sel.Skill.Name)
	}
	var b strings.Builder
	if len(names) == 0 {
		b.WriteString("Selected: none\n")
	} else {
		b.WriteString("Selected: " + strings.Join(names, ", ") + "\n")
	}
	b.WriteString("\n")
	b.WriteString(formatLines(turn.Lines()))
	return mcp.NewToolResultText(b.String()), nil
}

func formatLines(lines []string) string {
	if len(lines) == 0 {
		return "(no output)"
	}
	return strings.Join(lines, "\n")
}
