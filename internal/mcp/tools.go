package mcp

import "github.com/mark3labs/mcp-go/mcp"

var runCodeToolDef = mcp.NewTool("studio_run_code",
	mcp.WithDescription("Run a Python snippet. Uses the LearnFlow gateway when configured and "+
		"reachable; otherwise simulates print() calls locally. The result says which one answered."),
	mcp.WithString("code",
		mcp.Required(),
		mcp.Description("Python source to run"),
	),
)

var askTutorToolDef = mcp.NewTool("studio_ask_tutor",
	mcp.WithDescription("Ask the Python tutor a question. Falls back to built-in explanations of "+
		"loops, functions, lists and conditionals when the gateway is unavailable."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The learner's question"),
	),
	mcp.WithArray("messages",
		mcp.Description("Earlier conversation, oldest first. Defaults to the tutor greeting."),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"role":    map[string]any{"type": "string", "enum": []string{"user", "assistant"}},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"role", "content"},
		}),
	),
)

var historyToolDef = mcp.NewTool("studio_history",
	mcp.WithDescription("List recent code runs and tutor questions, newest first. "+
		"Only sizes and sources are recorded, never code or message text."),
	mcp.WithString("kind",
		mcp.Description("Filter by kind"),
		mcp.Enum("execute", "chat"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum items to return (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Items to skip"),
	),
)
