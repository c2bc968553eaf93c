package errors

import (
	"fmt"
	"testing"
)

func TestStudioError_Error(t *testing.T) {
	err := &StudioError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "session not found",
	}

	expected := "NOT_FOUND: session not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("code is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "code is required" {
		t.Errorf("Message = %q, want %q", err.Message, "code is required")
	}
}

func TestNewUnauthorized(t *testing.T) {
	err := NewUnauthorized("not logged in")

	if err.Code != ErrUnauthorized {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnauthorized)
	}
	if err.Status != 401 {
		t.Errorf("Status = %d, want 401", err.Status)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("learnflow_token")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "learnflow_token" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "learnflow_token")
	}
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("an account with this email already exists")

	if err.Code != ErrConflict {
		t.Errorf("Code = %q, want %q", err.Code, ErrConflict)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewRemoteUnavailable(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := NewRemoteUnavailable(fmt.Errorf("connection refused"))

		if err.Code != ErrRemoteUnavailable {
			t.Errorf("Code = %q, want %q", err.Code, ErrRemoteUnavailable)
		}
		if err.Status != 502 {
			t.Errorf("Status = %d, want 502", err.Status)
		}
		if err.Message != "remote gateway unavailable: connection refused" {
			t.Errorf("Message = %q", err.Message)
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewRemoteUnavailable(nil)
		if err.Message != "remote gateway unavailable" {
			t.Errorf("Message = %q", err.Message)
		}
	})
}

func TestNewRemoteStatus(t *testing.T) {
	err := NewRemoteStatus("/execute", 503)

	if err.Code != ErrRemoteStatus {
		t.Errorf("Code = %q, want %q", err.Code, ErrRemoteStatus)
	}
	if err.Details["remote_status"] != 503 {
		t.Errorf("Details[remote_status] = %v, want 503", err.Details["remote_status"])
	}
	if err.Details["endpoint"] != "/execute" {
		t.Errorf("Details[endpoint] = %v, want /execute", err.Details["endpoint"])
	}
}

func TestNewInvalidResponse(t *testing.T) {
	err := NewInvalidResponse("/chat", fmt.Errorf("unexpected EOF"))

	if err.Code != ErrInvalidResponse {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidResponse)
	}
	if err.Message != "invalid response from /chat: unexpected EOF" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("x"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("x"), ErrRemoteStatus) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for plain error")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("chat: %w", NewRemoteStatus("/chat", 500))
		if !Is(wrapped, ErrRemoteStatus) {
			t.Error("Is() = false, want true for wrapped StudioError")
		}
	})
}
