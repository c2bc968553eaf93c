package mcp

import (
	"database/sql"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/learnflow/pystudio/internal/config"
	"github.com/learnflow/pystudio/internal/remote"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"studio_run_code": {
		def:     runCodeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunCode },
	},
	"studio_ask_tutor": {
		def:     askTutorToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAskTutor },
	},
	"studio_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the studio tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, gateway *remote.Client, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pystudio",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, gateway)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, gateway *remote.Client, version string) error {
	s := NewServer(db, cfg, gateway, version)
	return server.ServeStdio(s)
}
