package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/learnflow/pystudio/internal/activity"
	"github.com/learnflow/pystudio/internal/chat"
	"github.com/learnflow/pystudio/internal/config"
	"github.com/learnflow/pystudio/internal/errors"
	"github.com/learnflow/pystudio/internal/observability"
	"github.com/learnflow/pystudio/internal/ops"
	"github.com/learnflow/pystudio/internal/studio"
)

// maxBodyBytes bounds JSON and form request bodies.
const maxBodyBytes = 1 << 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
	sessions *sessionStore

	exec          studio.Executor
	chatter       studio.Chatter
	apiConfigured bool
}

// HandleLearn handles GET /learn: the editor and tutor page.
func (h *Handlers) HandleLearn(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.get(w, r)
	editor, conv := sess.snapshot()
	h.renderer.renderPage(w, r, "learn", h.learnData(editor, conv))
}

// HandleRun handles POST /learn/run: runs the editor code.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	sess := h.sessions.get(w, r)
	editor, conv := sess.snapshot()
	editor.Code = r.FormValue("code")

	editor, out := studio.RunCode(r.Context(), h.exec, editor, h.cfg.UserID)
	sess.setEditor(editor)
	h.record(r.Context(), activity.KindExecute, editor.Code, out)

	if isHTMX(r) {
		h.renderer.renderBlock(w, r, http.StatusOK, "learn", "output", h.learnData(editor, conv))
		return
	}
	http.Redirect(w, r, "/learn", http.StatusSeeOther)
}

// HandleChat handles POST /learn/chat: sends a message to the tutor.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	sess := h.sessions.get(w, r)
	input := r.FormValue("message")

	var out studio.Outcome
	conv := sess.chatTurn(func(c studio.ChatState) studio.ChatState {
		c, out = studio.SendMessage(r.Context(), h.chatter, c, input)
		return c
	})
	if out.Source != "" {
		h.record(r.Context(), activity.KindChat, input, out)
	}
	editor, _ := sess.snapshot()

	if isHTMX(r) {
		h.renderer.renderBlock(w, r, http.StatusOK, "learn", "chat", h.learnData(editor, conv))
		return
	}
	http.Redirect(w, r, "/learn", http.StatusSeeOther)
}

// HandleHistory handles GET /history: the local activity log.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	input := ops.HistoryInput{
		Kind:   r.URL.Query().Get("kind"),
		Limit:  parseIntParam(r, "limit", ops.DefaultHistoryLimit),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := ops.History(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "history", HistoryPageData{
		PageData: PageData{
			Title:   "History",
			Version: h.renderer.version,
			Nav:     "history",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Kind:       input.Kind,
	})
}

// HandlePurge handles POST /history/purge: permanently deletes activity records.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	input := ops.PurgeHistoryInput{}
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.PurgeHistory(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: return HTML fragment
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="purge-result">` + template.HTMLEscapeString(result.Message) + `</div>`))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/history", http.StatusFound)
}

// apiExecuteRequest is the body of POST /api/execute.
type apiExecuteRequest struct {
	Code   string `json:"code"`
	UserID string `json:"user_id,omitempty"`
}

// apiExecuteResponse mirrors the gateway's execute response plus where the output came from.
type apiExecuteResponse struct {
	Output          string        `json:"output"`
	ExecutionTimeMS int64         `json:"execution_time_ms"`
	Source          studio.Source `json:"source"`
	Reason          string        `json:"reason,omitempty"`
}

// HandleAPIExecute handles POST /api/execute.
func (h *Handlers) HandleAPIExecute(w http.ResponseWriter, r *http.Request) {
	var req apiExecuteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = h.cfg.UserID
	}

	start := time.Now()
	_, out := studio.RunCode(r.Context(), h.exec, studio.EditorState{Code: req.Code}, userID)
	h.record(r.Context(), activity.KindExecute, req.Code, out)

	renderJSON(w, http.StatusOK, apiExecuteResponse{
		Output:          out.Text,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		Source:          out.Source,
		Reason:          out.Reason,
	})
}

// apiChatRequest is the body of POST /api/chat. Roles are validated while decoding.
type apiChatRequest struct {
	Messages []chat.Message `json:"messages"`
	UserID   string         `json:"user_id"`
}

// apiChatResponse mirrors the gateway's chat response. AgentUsed is "remote" or "simulated".
type apiChatResponse struct {
	Response  string `json:"response"`
	AgentUsed string `json:"agent_used"`
	Topic     string `json:"topic,omitempty"`
}

// HandleAPIChat handles POST /api/chat.
func (h *Handlers) HandleAPIChat(w http.ResponseWriter, r *http.Request) {
	var req apiChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if len(req.Messages) == 0 {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("messages must not be empty"))
		return
	}
	if err := chat.ValidateAll(req.Messages); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(err.Error()))
		return
	}

	transcript := chat.FromMessages(req.Messages)
	question, ok := transcript.LastUser()
	if !ok || chat.IsBlank(question.Content) {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("messages must include a user question"))
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = h.cfg.UserID
	}

	out := studio.Ask(r.Context(), h.chatter, transcript, userID)
	h.record(r.Context(), activity.KindChat, question.Content, out)

	renderJSON(w, http.StatusOK, apiChatResponse{
		Response:  out.Text,
		AgentUsed: string(out.Source),
		Topic:     string(out.Topic),
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"service":        "pystudio",
		"version":        h.renderer.version,
		"api_configured": h.apiConfigured,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// learnData builds the page model for the editor and tutor page.
func (h *Handlers) learnData(editor studio.EditorState, conv studio.ChatState) LearnPageData {
	msgs := conv.Transcript.Messages()
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := MessageView{Role: string(m.Role), Content: m.Content}
		if m.Role == chat.RoleAssistant {
			v.HTML = h.renderer.renderMarkdown(m.Content)
		}
		views = append(views, v)
	}

	return LearnPageData{
		PageData: PageData{
			Title:   "Learn Python",
			Version: h.renderer.version,
			Nav:     "learn",
		},
		Code:          editor.Code,
		Output:        editor.Output,
		OutputSource:  editor.Source,
		Messages:      views,
		APIConfigured: h.apiConfigured,
	}
}

// record appends an action to the activity log. Failures are logged, never shown.
func (h *Handlers) record(ctx context.Context, kind activity.Kind, input string, out studio.Outcome) {
	if h.db == nil {
		return
	}
	if _, err := ops.RecordRun(ctx, h.db, ops.RecordRunInput{Kind: kind, Input: input, Outcome: out}); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to record activity", "kind", kind, "error", err)
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
