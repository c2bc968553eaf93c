package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/learnflow/pystudio/internal/account"
	"github.com/learnflow/pystudio/internal/db"
	"github.com/learnflow/pystudio/internal/errors"
)

// SaveTokenInput contains parameters for the SaveToken operation.
type SaveTokenInput struct {
	Token string // required
	User  string // optional display name
}

// SaveTokenOutput contains the result of the SaveToken operation.
type SaveTokenOutput struct {
	User    string `json:"user,omitempty"`
	Message string `json:"message"`
}

// SaveToken stores a gateway token obtained elsewhere. It does not contact the gateway
// and replaces any signed-in account.
func SaveToken(ctx context.Context, database *sql.DB, input SaveTokenInput) (*SaveTokenOutput, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return nil, errors.NewInvalidRequest("token is required")
	}
	user := strings.TrimSpace(input.User)

	if err := db.KVSet(ctx, database, db.KeyToken, token); err != nil {
		return nil, err
	}
	if _, err := db.KVDelete(ctx, database, db.KeyCurrentUser); err != nil {
		return nil, err
	}
	if user != "" {
		if err := db.KVSet(ctx, database, db.KeyUser, user); err != nil {
			return nil, err
		}
	} else if _, err := db.KVDelete(ctx, database, db.KeyUser); err != nil {
		return nil, err
	}

	msg := "Token saved"
	if user != "" {
		msg = "Token saved for " + user
	}
	return &SaveTokenOutput{User: user, Message: msg}, nil
}

// LogoutOutput contains the result of the Logout operation.
type LogoutOutput struct {
	LoggedOut bool   `json:"logged_out"`
	Message   string `json:"message"`
}

// Logout removes the stored token, user and signed-in account.
func Logout(ctx context.Context, database *sql.DB) (*LogoutOutput, error) {
	hadToken, err := db.KVDelete(ctx, database, db.KeyToken)
	if err != nil {
		return nil, err
	}
	hadAccount, err := db.KVDelete(ctx, database, db.KeyCurrentUser)
	if err != nil {
		return nil, err
	}
	if _, err := db.KVDelete(ctx, database, db.KeyUser); err != nil {
		return nil, err
	}

	switch {
	case hadAccount:
		return &LogoutOutput{LoggedOut: true, Message: "Signed out"}, nil
	case hadToken:
		return &LogoutOutput{LoggedOut: true, Message: "Token removed"}, nil
	default:
		return &LogoutOutput{LoggedOut: false, Message: "No token stored"}, nil
	}
}

// WhoamiOutput describes the stored session.
type WhoamiOutput struct {
	HasToken bool          `json:"has_token"`
	User     string        `json:"user,omitempty"`
	Account  *account.User `json:"account,omitempty"`
}

// Whoami reports whether a token is stored, for which user, and the signed-in account if any.
func Whoami(ctx context.Context, database *sql.DB) (*WhoamiOutput, error) {
	out := &WhoamiOutput{}

	acct, err := CurrentUser(ctx, database)
	if err != nil {
		return nil, err
	}
	out.Account = acct

	if _, err := db.KVGet(ctx, database, db.KeyToken); err == nil {
		out.HasToken = true
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	user, err := db.KVGet(ctx, database, db.KeyUser)
	switch {
	case err == nil:
		out.User = user
	case !errors.Is(err, errors.ErrNotFound):
		return nil, err
	}

	return out, nil
}

// Token returns the stored gateway token, or "" when none is stored.
func Token(ctx context.Context, database *sql.DB) (string, error) {
	token, err := db.KVGet(ctx, database, db.KeyToken)
	if errors.Is(err, errors.ErrNotFound) {
		return "", nil
	}
	return token, err
}
