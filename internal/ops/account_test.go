package ops

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/learnflow/pystudio/internal/account"
	"github.com/learnflow/pystudio/internal/db"
	"github.com/learnflow/pystudio/internal/errors"
	"github.com/learnflow/pystudio/internal/remote"
)

// fakeAuth answers gateway auth calls with fixed results and counts them.
type fakeAuth struct {
	resp  *remote.AuthResponse
	err   error
	calls int
}

func (f *fakeAuth) Login(_ context.Context, _ remote.LoginRequest) (*remote.AuthResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeAuth) Register(_ context.Context, _ remote.RegisterRequest) (*remote.AuthResponse, error) {
	f.calls++
	return f.resp, f.err
}

func remoteStatus(path string, status int, detail string) error {
	err := errors.NewRemoteStatus(path, status)
	if detail != "" {
		err.Details["remote_detail"] = detail
	}
	return err
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func registerLocal(t *testing.T, database *sql.DB, role string) *AuthOutput {
	t.Helper()
	out, err := Register(context.Background(), database, nil, RegisterInput{
		Name:     "Ada",
		Email:    "Ada@Example.com",
		Password: "secret-pass",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return out
}

func TestRegister_OfflineStoresHashAndSignsIn(t *testing.T) {
	ctx := context.Background()
	database := testDB(t)

	out := registerLocal(t, database, "teacher")
	if out.Source != AuthSourceLocal {
		t.Errorf("Source = %q, want %q", out.Source, AuthSourceLocal)
	}
	if out.User.Email != "ada@example.com" {
		t.Errorf("Email = %q, want normalized", out.User.Email)
	}
	if out.User.Role != account.RoleTeacher {
		t.Errorf("Role = %q, want teacher", out.User.Role)
	}
	if out.User.ID == "" {
		t.Error("ID is empty")
	}

	_, hash, err := db.GetUserByEmail(ctx, database, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if hash == "secret-pass" || strings.Contains(hash, "secret-pass") {
		t.Errorf("stored password is not hashed: %q", hash)
	}

	who, err := Whoami(ctx, database)
	if err != nil {
		t.Fatalf("Whoami failed: %v", err)
	}
	if who.Account == nil || who.Account.ID != out.User.ID {
		t.Errorf("Whoami.Account = %+v, want %s", who.Account, out.User.ID)
	}
	if who.User != "Ada" {
		t.Errorf("Whoami.User = %q, want Ada", who.User)
	}
	if who.HasToken {
		t.Error("HasToken = true after local registration")
	}
}

func TestRegister_Validation(t *testing.T) {
	database := testDB(t)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.c", Password: "secret"}},
		{"missing email", RegisterInput{Name: "A", Password: "secret"}},
		{"short password", RegisterInput{Name: "A", Email: "a@b.c", Password: "12345"}},
		{"unknown role", RegisterInput{Name: "A", Email: "a@b.c", Password: "secret", Role: "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{}
			_, err := Register(context.Background(), database, auth, tt.input)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("Register() err = %v, want INVALID_REQUEST", err)
			}
			if auth.calls != 0 {
				t.Errorf("gateway called %d times for invalid input", auth.calls)
			}
		})
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	database := testDB(t)
	registerLocal(t, database, "student")

	_, err := Register(context.Background(), database, nil, RegisterInput{
		Name:     "Other",
		Email:    "ada@example.com",
		Password: "another-pass",
	})
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("Register() err = %v, want CONFLICT", err)
	}
}

func TestRegister_GatewayRejectionSurfacesDetail(t *testing.T) {
	database := testDB(t)
	auth := &fakeAuth{err: remoteStatus(remote.RegisterPath, http.StatusBadRequest, "Email already registered")}

	_, err := Register(context.Background(), database, auth, RegisterInput{
		Name: "Ada", Email: "ada@example.com", Password: "secret-pass",
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("Register() err = %v, want INVALID_REQUEST", err)
	}
	if !strings.Contains(err.Error(), "Email already registered") {
		t.Errorf("err = %v, want gateway detail", err)
	}
	if _, _, err := db.GetUserByEmail(context.Background(), database, "ada@example.com"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("local account created after gateway rejection: %v", err)
	}
}

func TestRegister_GatewayRejectionWithoutDetail(t *testing.T) {
	database := testDB(t)
	auth := &fakeAuth{err: remoteStatus(remote.RegisterPath, http.StatusBadRequest, "")}

	_, err := Register(context.Background(), database, auth, RegisterInput{
		Name: "Ada", Email: "ada@example.com", Password: "secret-pass",
	})
	if err == nil || !strings.Contains(err.Error(), "Registration failed") {
		t.Errorf("Register() err = %v, want Registration failed", err)
	}
}

func TestLogin_OfflineAfterRegister(t *testing.T) {
	ctx := context.Background()
	database := testDB(t)
	registered := registerLocal(t, database, "student")
	if _, err := Logout(ctx, database); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	out, err := Login(ctx, database, nil, LoginInput{Email: " ADA@example.com ", Password: "secret-pass", Role: "student"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if out.Source != AuthSourceLocal {
		t.Errorf("Source = %q, want local", out.Source)
	}
	if out.Reason == "" {
		t.Error("Reason is empty for a local login")
	}
	if out.User.ID != registered.User.ID {
		t.Errorf("User.ID = %q, want %q", out.User.ID, registered.User.ID)
	}

	current, err := CurrentUser(ctx, database)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if current == nil || current.Email != "ada@example.com" {
		t.Errorf("CurrentUser = %+v", current)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	database := testDB(t)
	registerLocal(t, database, "student")

	_, err := Login(context.Background(), database, nil, LoginInput{Email: "ada@example.com", Password: "wrong-pass"})
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("Login() err = %v, want UNAUTHORIZED", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	database := testDB(t)

	_, err := Login(context.Background(), database, nil, LoginInput{Email: "nobody@example.com", Password: "secret-pass"})
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("Login() err = %v, want UNAUTHORIZED", err)
	}
}

func TestLogin_RoleMismatchDoesNotSignIn(t *testing.T) {
	ctx := context.Background()
	database := testDB(t)
	registerLocal(t, database, "teacher")
	if _, err := Logout(ctx, database); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	_, err := Login(ctx, database, nil, LoginInput{Email: "ada@example.com", Password: "secret-pass", Role: "student"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("Login() err = %v, want INVALID_REQUEST", err)
	}
	if !strings.Contains(err.Error(), "registered as a teacher") {
		t.Errorf("err = %v, want role hint", err)
	}

	current, err := CurrentUser(ctx, database)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if current != nil {
		t.Errorf("CurrentUser = %+v, want nil after role mismatch", current)
	}
}

func TestLogin_GatewaySuccessStoresToken(t *testing.T) {
	ctx := context.Background()
	database := testDB(t)
	auth := &fakeAuth{resp: &remote.AuthResponse{
		Token: "tok-123",
		User:  remote.AuthUser{ID: "u1", Name: "Grace", Email: "grace@example.com", Role: "student"},
	}}

	out, err := Login(ctx, database, auth, LoginInput{Email: "grace@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if out.Source != AuthSourceRemote {
		t.Errorf("Source = %q, want remote", out.Source)
	}

	token, err := Token(ctx, database)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("Token = %q, want tok-123", token)
	}
}

func TestLogin_GatewayUnauthorizedIsFinal(t *testing.T) {
	database := testDB(t)
	registerLocal(t, database, "student")
	auth := &fakeAuth{err: remoteStatus(remote.LoginPath, http.StatusUnauthorized, "")}

	// The local account would accept these credentials; the gateway's 401 must win.
	_, err := Login(context.Background(), database, auth, LoginInput{Email: "ada@example.com", Password: "secret-pass"})
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("Login() err = %v, want UNAUTHORIZED", err)
	}
}

func TestLogin_GatewayFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	database := testDB(t)
	registerLocal(t, database, "student")
	if err := db.KVSet(ctx, database, db.KeyToken, "stale"); err != nil {
		t.Fatalf("KVSet failed: %v", err)
	}

	for _, cause := range []error{
		remoteStatus(remote.LoginPath, http.StatusInternalServerError, ""),
		errors.NewRemoteUnavailable(fmt.Errorf("connection refused")),
	} {
		auth := &fakeAuth{err: cause}
		out, err := Login(ctx, database, auth, LoginInput{Email: "ada@example.com", Password: "secret-pass"})
		if err != nil {
			t.Fatalf("Login(%v) failed: %v", cause, err)
		}
		if out.Source != AuthSourceLocal {
			t.Errorf("Source = %q, want local", out.Source)
		}
		if auth.calls != 1 {
			t.Errorf("gateway calls = %d, want 1", auth.calls)
		}
	}

	token, err := Token(ctx, database)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "" {
		t.Errorf("Token = %q, want stale token cleared by local login", token)
	}
}

func TestLogout_SignsOutAccount(t *testing.T) {
	ctx := context.Background()
	database := testDB(t)
	registerLocal(t, database, "student")

	out, err := Logout(ctx, database)
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if !out.LoggedOut {
		t.Error("LoggedOut = false, want true")
	}
	who, err := Whoami(ctx, database)
	if err != nil {
		t.Fatalf("Whoami failed: %v", err)
	}
	if who.Account != nil || who.User != "" {
		t.Errorf("Whoami after logout = %+v", who)
	}
}
