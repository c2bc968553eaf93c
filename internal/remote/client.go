package remote

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/learnflow/pystudio/internal/chat"
	"github.com/learnflow/pystudio/internal/errors"
)

// Gateway endpoints.
const (
	ExecutePath  = "/execute"
	ChatPath     = "/chat"
	HealthPath   = "/health"
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
)

// maxResponseBytes bounds how much of a gateway response is read.
const maxResponseBytes = 4 << 20

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	Code   string `json:"code"`
	UserID string `json:"user_id,omitempty"`
}

// ExecuteResponse is the gateway's answer to POST /execute.
// Error is set when the script ran but exited with a failure.
type ExecuteResponse struct {
	Output          string `json:"output"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMS int    `json:"execution_time_ms"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Messages []chat.Message `json:"messages"`
	UserID   string         `json:"user_id"`
	Context  string         `json:"context,omitempty"`
}

// ChatResponse is the gateway's answer to POST /chat.
type ChatResponse struct {
	Response  string `json:"response"`
	AgentUsed string `json:"agent_used"`
}

// HealthResponse is the gateway's answer to GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AuthUser is the account the gateway signed in.
type AuthUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthResponse is the gateway's answer to both auth endpoints.
type AuthResponse struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

// Client talks to the LearnFlow API gateway.
// A Client with an empty base URL is offline: every call fails with REMOTE_UNAVAILABLE.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client. A zero timeout leaves requests bounded only by their context.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized gateway URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Execute asks the gateway to run code.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
	var out ExecuteResponse
	if err := c.do(ctx, http.MethodPost, ExecutePath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends the transcript to the gateway and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, errors.NewInvalidRequest("messages must not be empty")
	}
	if err := chat.ValidateAll(req.Messages); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, ChatPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks gateway liveness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, HealthPath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token. A 401 means the credentials were rejected.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, LoginPath, req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.NewInvalidResponse(LoginPath, fmt.Errorf("missing token"))
	}
	return &out, nil
}

// Register creates an account and returns its token. A 400 carries the reason in Detail.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, RegisterPath, req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.NewInvalidResponse(RegisterPath, fmt.Errorf("missing token"))
	}
	return &out, nil
}

// StatusCode returns the gateway status carried by a REMOTE_STATUS error, or 0.
func StatusCode(err error) int {
	var sErr *errors.StudioError
	if !stderrors.As(err, &sErr) || sErr.Code != errors.ErrRemoteStatus {
		return 0
	}
	status, _ := sErr.Details["remote_status"].(int)
	return status
}

// Detail returns the gateway's error detail carried by a REMOTE_STATUS error, if any.
func Detail(err error) string {
	var sErr *errors.StudioError
	if !stderrors.As(err, &sErr) || sErr.Code != errors.ErrRemoteStatus {
		return ""
	}
	detail, _ := sErr.Details["remote_detail"].(string)
	return detail
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.baseURL == "" {
		return errors.NewRemoteUnavailable(fmt.Errorf("no API URL configured"))
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewRemoteUnavailable(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewRemoteUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		sErr := errors.NewRemoteStatus(path, resp.StatusCode)
		var body struct {
			Detail any `json:"detail"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body) == nil {
			if detail, ok := body.Detail.(string); ok && detail != "" {
				sErr.Details["remote_detail"] = detail
			}
		}
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return sErr
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return errors.NewInvalidResponse(path, err)
	}
	return nil
}
