package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestID(ctx); got != "req-1" {
		t.Errorf("RequestID = %q, want %q", got, "req-1")
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID on empty context = %q, want empty", got)
	}
}

func TestLoggerFromContext_AddsRequestID(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { logger.Store(prev) })

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(slog.LevelInfo)

	ctx := WithRequestID(context.Background(), "abc123")
	LoggerFromContext(ctx).Info("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"abc123"`) {
		t.Errorf("log line missing request_id: %s", out)
	}
}

func TestSetLevel_FiltersDebug(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() {
		logger.Store(prev)
		SetLevel(slog.LevelInfo)
	})

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(slog.LevelInfo)
	Logger().Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %s", buf.String())
	}

	SetLevel(slog.LevelDebug)
	Logger().Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug line missing at debug level")
	}
}

func TestSetOutput_ConcurrentWithLogging(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { logger.Store(prev) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				SetOutput(io.Discard)
			}
		}()
		go func() {
			defer wg.Done()
			ctx := WithRequestID(context.Background(), "r")
			for j := 0; j < 100; j++ {
				LoggerFromContext(ctx).Info("tick")
				WithFields("k", "v").Info("tock")
			}
		}()
	}
	wg.Wait()

	if Logger() == nil {
		t.Fatal("Logger() = nil after concurrent SetOutput")
	}
}
