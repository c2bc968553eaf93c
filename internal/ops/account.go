package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/learnflow/pystudio/internal/account"
	"github.com/learnflow/pystudio/internal/db"
	"github.com/learnflow/pystudio/internal/errors"
	"github.com/learnflow/pystudio/internal/observability"
	"github.com/learnflow/pystudio/internal/remote"
)

// Authenticator signs accounts in against the gateway. *remote.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, req remote.LoginRequest) (*remote.AuthResponse, error)
	Register(ctx context.Context, req remote.RegisterRequest) (*remote.AuthResponse, error)
}

// Where a signed-in session came from.
const (
	AuthSourceRemote = "remote"
	AuthSourceLocal  = "local"
)

const invalidCredentials = "Invalid email or password"

// LoginInput contains parameters for the Login operation.
type LoginInput struct {
	Email    string // required
	Password string // required
	Role     string // student|teacher; empty means student
}

// RegisterInput contains parameters for the Register operation.
type RegisterInput struct {
	Name     string // required
	Email    string // required
	Password string // required, at least account.MinPasswordLength characters
	Role     string // student|teacher; empty means student
}

// AuthOutput contains the result of Login and Register.
type AuthOutput struct {
	User    account.User `json:"user"`
	Source  string       `json:"source"`
	Reason  string       `json:"reason,omitempty"`
	Message string       `json:"message"`
}

// Login signs an account in. The gateway is tried first; a 401 from it is final.
// Any other gateway failure falls back to the local accounts table.
// The account must have been registered with the requested role.
func Login(ctx context.Context, database *sql.DB, auth Authenticator, input LoginInput) (*AuthOutput, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, errors.NewInvalidRequest("email is required")
	}
	if input.Password == "" {
		return nil, errors.NewInvalidRequest("password is required")
	}
	role, err := account.ParseRole(input.Role)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	out := &AuthOutput{Source: AuthSourceRemote}
	var token string

	resp, err := remoteLogin(ctx, auth, remote.LoginRequest{Email: email, Password: input.Password})
	switch {
	case err == nil:
		out.User = fromAuthUser(resp.User)
		token = resp.Token
	case remote.StatusCode(err) == http.StatusUnauthorized:
		return nil, errors.NewUnauthorized(invalidCredentials)
	default:
		out.Source, out.Reason = AuthSourceLocal, err.Error()
		observability.LoggerFromContext(ctx).Debug("using local login", "reason", out.Reason)

		user, hash, lerr := db.GetUserByEmail(ctx, database, email)
		if errors.Is(lerr, errors.ErrNotFound) {
			return nil, errors.NewUnauthorized(invalidCredentials)
		}
		if lerr != nil {
			return nil, lerr
		}
		if !account.CheckPassword(hash, input.Password) {
			return nil, errors.NewUnauthorized(invalidCredentials)
		}
		out.User = *user
	}

	if out.User.Role != role {
		return nil, errors.NewInvalidRequest(fmt.Sprintf(
			"This account is registered as a %s. Please select the correct role.", out.User.Role))
	}

	if err := startSession(ctx, database, out.User, token); err != nil {
		return nil, err
	}
	out.Message = fmt.Sprintf("Logged in as %s (%s)", displayName(out.User), out.User.Role)
	return out, nil
}

// Register creates an account. The gateway is tried first; a 400 from it is final.
// Any other gateway failure registers the account locally with a bcrypt password hash.
func Register(ctx context.Context, database *sql.DB, auth Authenticator, input RegisterInput) (*AuthOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, errors.NewInvalidRequest("email is required")
	}
	if len([]rune(input.Password)) < account.MinPasswordLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("password must be at least %d characters", account.MinPasswordLength))
	}
	role, err := account.ParseRole(input.Role)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	out := &AuthOutput{Source: AuthSourceRemote}
	var token string

	resp, err := remoteRegister(ctx, auth, remote.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: input.Password,
		Role:     string(role),
	})
	switch {
	case err == nil:
		out.User = fromAuthUser(resp.User)
		token = resp.Token
	case remote.StatusCode(err) == http.StatusBadRequest:
		msg := remote.Detail(err)
		if msg == "" {
			msg = "Registration failed"
		}
		return nil, errors.NewInvalidRequest(msg)
	default:
		out.Source, out.Reason = AuthSourceLocal, err.Error()
		observability.LoggerFromContext(ctx).Debug("using local registration", "reason", out.Reason)

		id, gerr := generateULID()
		if gerr != nil {
			return nil, errors.NewInternal(gerr)
		}
		hash, herr := account.HashPassword(input.Password)
		if herr != nil {
			return nil, errors.NewInvalidRequest(herr.Error())
		}
		out.User = account.User{ID: id, Name: name, Email: account.NormalizeEmail(email), Role: role}
		if err := db.InsertUser(ctx, database, &out.User, hash); err != nil {
			return nil, err
		}
	}

	if err := startSession(ctx, database, out.User, token); err != nil {
		return nil, err
	}
	out.Message = fmt.Sprintf("Registered %s as a %s", out.User.Email, out.User.Role)
	return out, nil
}

// CurrentUser returns the signed-in account, or nil when nobody is signed in.
func CurrentUser(ctx context.Context, database *sql.DB) (*account.User, error) {
	raw, err := db.KVGet(ctx, database, db.KeyCurrentUser)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u account.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &u, nil
}

// startSession records the signed-in account. A local session has no gateway token,
// so any token left from an earlier session is dropped.
func startSession(ctx context.Context, database *sql.DB, u account.User, token string) error {
	data, err := json.Marshal(u)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := db.KVSet(ctx, database, db.KeyCurrentUser, string(data)); err != nil {
		return err
	}
	if err := db.KVSet(ctx, database, db.KeyUser, displayName(u)); err != nil {
		return err
	}
	if token == "" {
		_, err := db.KVDelete(ctx, database, db.KeyToken)
		return err
	}
	return db.KVSet(ctx, database, db.KeyToken, token)
}

func remoteLogin(ctx context.Context, auth Authenticator, req remote.LoginRequest) (*remote.AuthResponse, error) {
	if auth == nil {
		return nil, errors.NewRemoteUnavailable(fmt.Errorf("no gateway configured"))
	}
	return auth.Login(ctx, req)
}

func remoteRegister(ctx context.Context, auth Authenticator, req remote.RegisterRequest) (*remote.AuthResponse, error) {
	if auth == nil {
		return nil, errors.NewRemoteUnavailable(fmt.Errorf("no gateway configured"))
	}
	return auth.Register(ctx, req)
}

func fromAuthUser(u remote.AuthUser) account.User {
	return account.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: account.Role(u.Role)}
}

func displayName(u account.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
