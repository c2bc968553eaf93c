package studio

import (
	"context"
	stderrors "errors"

	"github.com/learnflow/pystudio/internal/chat"
	"github.com/learnflow/pystudio/internal/observability"
	"github.com/learnflow/pystudio/internal/remote"
	"github.com/learnflow/pystudio/internal/simulate"
	"github.com/learnflow/pystudio/internal/tutor"
)

// Fixed display strings for remote execution results.
const (
	NoRemoteOutput  = "Code executed successfully (no output)"
	noneOutputLabel = "(none)"
)

// DefaultCode is the editor content a new workspace starts with.
const DefaultCode = "print(\"Hello, Python learner!\")\n# Write your code here"

var (
	errNoExecutor    = stderrors.New("no execution backend configured")
	errNoChatter     = stderrors.New("no chat backend configured")
	errEmptyResponse = stderrors.New("empty response from gateway")
)

// Source says where displayed text came from.
type Source string

const (
	SourceRemote    Source = "remote"
	SourceSimulated Source = "simulated"
)

// Executor runs code remotely. *remote.Client implements it.
type Executor interface {
	Execute(ctx context.Context, req remote.ExecuteRequest) (*remote.ExecuteResponse, error)
}

// Chatter produces tutor replies remotely. *remote.Client implements it.
type Chatter interface {
	Chat(ctx context.Context, req remote.ChatRequest) (*remote.ChatResponse, error)
}

// Outcome describes the text shown for one action.
type Outcome struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	// Reason is why the fallback fired; empty for remote results.
	Reason string `json:"reason,omitempty"`
	// Topic is the tutor topic used by a simulated chat reply.
	Topic tutor.Topic `json:"topic,omitempty"`
	// Agent is the gateway agent that answered a remote chat.
	Agent string `json:"agent,omitempty"`
}

// Simulated reports whether the local fallback produced the text.
func (o Outcome) Simulated() bool {
	return o.Source == SourceSimulated
}

// EditorState is the code editor and its output pane.
type EditorState struct {
	Code   string
	Output string
	Source Source
}

// NewEditorState returns the starting editor.
func NewEditorState() EditorState {
	return EditorState{Code: DefaultCode}
}

// ChatState is the tutor conversation for one learner.
type ChatState struct {
	Transcript chat.Transcript
	UserID     string
}

// NewChatState returns a conversation holding only the greeting.
func NewChatState(userID string) ChatState {
	return ChatState{Transcript: chat.NewTranscript(), UserID: userID}
}

// RunCode tries remote execution of state.Code and falls back to the simulator.
// The returned state carries the displayed output; the input state is not modified.
func RunCode(ctx context.Context, exec Executor, state EditorState, userID string) (EditorState, Outcome) {
	var result Attempt[*remote.ExecuteResponse]
	if exec == nil {
		result = Err[*remote.ExecuteResponse](errNoExecutor)
	} else {
		result = attempt(func() (*remote.ExecuteResponse, error) {
			return exec.Execute(ctx, remote.ExecuteRequest{Code: state.Code, UserID: userID})
		})
	}

	var out Outcome
	if resp, ok := result.Value(); ok {
		out = Outcome{Text: FormatExecution(resp), Source: SourceRemote}
	} else {
		out = Outcome{
			Text:   simulate.Run(state.Code),
			Source: SourceSimulated,
			Reason: result.Reason().Error(),
		}
		observability.LoggerFromContext(ctx).Debug("using simulated execution",
			"reason", out.Reason, "code_chars", len(state.Code))
	}

	state.Output = out.Text
	state.Source = out.Source
	return state, out
}

// FormatExecution renders a gateway execution result for the output pane.
func FormatExecution(resp *remote.ExecuteResponse) string {
	if resp.Error != "" {
		output := resp.Output
		if output == "" {
			output = noneOutputLabel
		}
		return "Error:\n" + resp.Error + "\n\nOutput:\n" + output
	}
	if resp.Output == "" {
		return NoRemoteOutput
	}
	return resp.Output
}

// SendMessage appends input to the conversation, asks the gateway for a reply and
// falls back to the canned tutor. Blank input leaves the state unchanged and returns
// a zero Outcome.
func SendMessage(ctx context.Context, c Chatter, state ChatState, input string) (ChatState, Outcome) {
	if chat.IsBlank(input) {
		return state, Outcome{}
	}

	transcript := state.Transcript.Append(chat.UserMessage(input))
	out := Ask(ctx, c, transcript, state.UserID)
	state.Transcript = transcript.Append(chat.AssistantMessage(out.Text))
	return state, out
}

// Ask sends a whole conversation ending in a learner question and returns the reply.
// The canned tutor answers the most recent user message when the gateway fails.
func Ask(ctx context.Context, c Chatter, transcript chat.Transcript, userID string) Outcome {
	question, _ := transcript.LastUser()

	var result Attempt[*remote.ChatResponse]
	if c == nil {
		result = Err[*remote.ChatResponse](errNoChatter)
	} else {
		result = attempt(func() (*remote.ChatResponse, error) {
			return c.Chat(ctx, remote.ChatRequest{
				Messages: transcript.Messages(),
				UserID:   userID,
			})
		})
	}

	return Reply(ctx, result, question.Content)
}

// Reply turns a chat Attempt into the displayed reply, using the canned tutor
// for the question when the attempt failed.
func Reply(ctx context.Context, result Attempt[*remote.ChatResponse], question string) Outcome {
	if resp, ok := result.Value(); ok {
		return Outcome{Text: resp.Response, Source: SourceRemote, Agent: resp.AgentUsed}
	}

	topic := tutor.Classify(question)
	out := Outcome{
		Text:   tutor.Respond(question),
		Source: SourceSimulated,
		Reason: result.Reason().Error(),
		Topic:  topic,
	}
	observability.LoggerFromContext(ctx).Debug("using local tutor response",
		"reason", out.Reason, "topic", topic)
	return out
}
