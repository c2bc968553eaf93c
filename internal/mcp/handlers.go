package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/learnflow/pystudio/internal/activity"
	"github.com/learnflow/pystudio/internal/chat"
	"github.com/learnflow/pystudio/internal/config"
	"github.com/learnflow/pystudio/internal/errors"
	"github.com/learnflow/pystudio/internal/observability"
	"github.com/learnflow/pystudio/internal/ops"
	"github.com/learnflow/pystudio/internal/remote"
	"github.com/learnflow/pystudio/internal/studio"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	exec    studio.Executor
	chatter studio.Chatter
}

// NewHandlers creates a new Handlers instance. A nil gateway means offline.
func NewHandlers(db *sql.DB, cfg *config.Config, gateway *remote.Client) *Handlers {
	h := &Handlers{db: db, cfg: cfg}
	if gateway != nil {
		h.exec = gateway
		h.chatter = gateway
	}
	return h
}

// RunCodeRequest represents the arguments for studio_run_code.
type RunCodeRequest struct {
	Code string `json:"code"`
}

// AskTutorRequest represents the arguments for studio_ask_tutor.
// Message roles are validated while decoding.
type AskTutorRequest struct {
	Question string         `json:"question"`
	Messages []chat.Message `json:"messages,omitempty"`
}

// HistoryRequest represents the arguments for studio_history.
type HistoryRequest struct {
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// RunCodeResult is returned by studio_run_code.
type RunCodeResult struct {
	Output string        `json:"output"`
	Source studio.Source `json:"source"`
	Reason string        `json:"reason,omitempty"`
}

// AskTutorResult is returned by studio_ask_tutor.
type AskTutorResult struct {
	Response string        `json:"response"`
	Source   studio.Source `json:"source"`
	Agent    string        `json:"agent,omitempty"`
	Topic    string        `json:"topic,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// HandleRunCode handles the studio_run_code tool call.
func (h *Handlers) HandleRunCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunCodeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if chat.IsBlank(input.Code) {
		return errorResult(errors.NewInvalidRequest("code is required")), nil
	}

	_, out := studio.RunCode(ctx, h.exec, studio.EditorState{Code: input.Code}, h.cfg.UserID)
	h.record(ctx, activity.KindExecute, input.Code, out)

	return successResult(RunCodeResult{
		Output: out.Text,
		Source: out.Source,
		Reason: out.Reason,
	})
}

// HandleAskTutor handles the studio_ask_tutor tool call.
func (h *Handlers) HandleAskTutor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AskTutorRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if chat.IsBlank(input.Question) {
		return errorResult(errors.NewInvalidRequest("question is required")), nil
	}
	if err := chat.ValidateAll(input.Messages); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	transcript := chat.NewTranscript()
	if len(input.Messages) > 0 {
		transcript = chat.FromMessages(input.Messages)
	}
	transcript = transcript.Append(chat.UserMessage(input.Question))

	out := studio.Ask(ctx, h.chatter, transcript, h.cfg.UserID)
	h.record(ctx, activity.KindChat, input.Question, out)

	return successResult(AskTutorResult{
		Response: out.Text,
		Source:   out.Source,
		Agent:    out.Agent,
		Topic:    string(out.Topic),
		Reason:   out.Reason,
	})
}

// HandleHistory handles the studio_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.db, ops.HistoryInput{
		Kind:   input.Kind,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// record appends an action to the activity log. Failures are logged, never returned.
func (h *Handlers) record(ctx context.Context, kind activity.Kind, input string, out studio.Outcome) {
	if h.db == nil {
		return
	}
	if _, err := ops.RecordRun(ctx, h.db, ops.RecordRunInput{Kind: kind, Input: input, Outcome: out}); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to record activity", "kind", kind, "error", err)
	}
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.StudioError
	if stderrors.As(err, &sErr) {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
