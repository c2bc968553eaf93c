package ops

import (
	"context"
	"database/sql"
	"testing"

	"github.com/learnflow/pystudio/internal/activity"
	"github.com/learnflow/pystudio/internal/db"
	"github.com/learnflow/pystudio/internal/errors"
	"github.com/learnflow/pystudio/internal/studio"
)

func recordN(t *testing.T, database *sql.DB, kind activity.Kind, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := RecordRun(context.Background(), database, RecordRunInput{
			Kind:    kind,
			Input:   "print(1)",
			Outcome: studio.Outcome{Source: studio.SourceRemote, Text: "1\n"},
		})
		if err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}
}

func TestRecordRun_Validation(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	tests := []struct {
		name  string
		input RecordRunInput
	}{
		{"unknown kind", RecordRunInput{Kind: "compile", Outcome: studio.Outcome{Source: studio.SourceRemote}}},
		{"empty kind", RecordRunInput{Outcome: studio.Outcome{Source: studio.SourceRemote}}},
		{"missing source", RecordRunInput{Kind: activity.KindExecute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecordRun(context.Background(), database, tt.input)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("RecordRun() err = %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestRecordRun_CountsRunes(t *testing.T) {
	ctx := context.Background()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	if _, err := RecordRun(ctx, database, RecordRunInput{
		Kind:    activity.KindChat,
		Input:   "héllo",
		Outcome: studio.Outcome{Source: studio.SourceRemote},
	}); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	out, err := History(ctx, database, HistoryInput{})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if out.Items[0].InputChars != 5 {
		t.Errorf("InputChars = %d, want 5", out.Items[0].InputChars)
	}
	if out.Items[0].Topic != nil {
		t.Errorf("Topic = %v, want nil for remote reply", *out.Items[0].Topic)
	}
}

func TestHistory_Pagination(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	recordN(t, database, activity.KindExecute, 5)

	out, err := History(context.Background(), database, HistoryInput{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(out.Items))
	}
	if !out.Pagination.HasMore {
		t.Error("HasMore = false, want true")
	}
	if out.Pagination.Total != 5 {
		t.Errorf("Total = %d, want 5", out.Pagination.Total)
	}
	if out.Sort != "created_at_desc" {
		t.Errorf("Sort = %q", out.Sort)
	}
}

func TestHistory_LimitBounds(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultHistoryLimit},
		{-3, DefaultHistoryLimit},
		{50, 50},
		{1000, MaxHistoryLimit},
	}
	for _, tt := range tests {
		out, err := History(context.Background(), database, HistoryInput{Limit: tt.limit, Offset: -1})
		if err != nil {
			t.Fatalf("History(limit=%d) failed: %v", tt.limit, err)
		}
		if out.Pagination.Limit != tt.want {
			t.Errorf("limit %d: Pagination.Limit = %d, want %d", tt.limit, out.Pagination.Limit, tt.want)
		}
		if out.Pagination.Offset != 0 {
			t.Errorf("limit %d: Pagination.Offset = %d, want 0", tt.limit, out.Pagination.Offset)
		}
		if out.Items == nil {
			t.Errorf("limit %d: Items is nil, want empty slice", tt.limit)
		}
	}
}

func TestHistory_InvalidKind(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	_, err = History(context.Background(), database, HistoryInput{Kind: "debug"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("History() err = %v, want INVALID_REQUEST", err)
	}
}
