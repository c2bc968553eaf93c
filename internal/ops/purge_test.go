package ops

import (
	"context"
	"testing"

	"github.com/learnflow/pystudio/internal/activity"
	"github.com/learnflow/pystudio/internal/db"
	"github.com/learnflow/pystudio/internal/errors"
)

func intPtr(n int) *int {
	return &n
}

func TestPurgeHistory_OlderThanKeepsRecent(t *testing.T) {
	ctx := context.Background()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	recordN(t, database, activity.KindChat, 2)

	old := activity.Record{ID: "01OLD", Kind: activity.KindExecute, Source: "remote", CreatedAt: 1000}
	if err := db.InsertRun(ctx, database, &old); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	out, err := PurgeHistory(ctx, database, PurgeHistoryInput{OlderThanDays: intPtr(7)})
	if err != nil {
		t.Fatalf("PurgeHistory failed: %v", err)
	}
	if out.Purged != 1 {
		t.Errorf("Purged = %d, want 1", out.Purged)
	}
	if out.Message != "Permanently deleted 1 record (created more than 7 days ago)" {
		t.Errorf("Message = %q", out.Message)
	}

	remaining, err := db.CountRuns(ctx, database, "")
	if err != nil {
		t.Fatalf("CountRuns failed: %v", err)
	}
	if remaining != 2 {
		t.Errorf("remaining = %d, want 2", remaining)
	}
}

func TestPurgeHistory_Empty(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	out, err := PurgeHistory(context.Background(), database, PurgeHistoryInput{})
	if err != nil {
		t.Fatalf("PurgeHistory failed: %v", err)
	}
	if out.Purged != 0 || out.Message != "No history to purge" {
		t.Errorf("out = %+v", out)
	}
}

func TestPurgeHistory_NegativeDays(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	_, err = PurgeHistory(context.Background(), database, PurgeHistoryInput{OlderThanDays: intPtr(-1)})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("PurgeHistory() err = %v, want INVALID_REQUEST", err)
	}
}

func TestPurgeHistory_DaysOutOfRangeKeepsRecords(t *testing.T) {
	ctx := context.Background()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	recordN(t, database, activity.KindExecute, 3)

	for _, days := range []int{MaxPurgeDays + 1, 200000, 400000} {
		_, err := PurgeHistory(ctx, database, PurgeHistoryInput{OlderThanDays: intPtr(days)})
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("PurgeHistory(%d days) err = %v, want INVALID_REQUEST", days, err)
		}
	}

	out, err := PurgeHistory(ctx, database, PurgeHistoryInput{OlderThanDays: intPtr(MaxPurgeDays)})
	if err != nil {
		t.Fatalf("PurgeHistory(max days) failed: %v", err)
	}
	if out.Purged != 0 {
		t.Errorf("Purged = %d, want 0", out.Purged)
	}

	remaining, err := db.CountRuns(ctx, database, "")
	if err != nil {
		t.Fatalf("CountRuns failed: %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}
}

func TestFormatPurgeMessage(t *testing.T) {
	tests := []struct {
		count int
		days  *int
		want  string
	}{
		{0, nil, "No history to purge"},
		{1, nil, "Permanently deleted 1 record"},
		{3, nil, "Permanently deleted 3 records"},
		{2, intPtr(30), "Permanently deleted 2 records (created more than 30 days ago)"},
	}
	for _, tt := range tests {
		if got := formatPurgeMessage(tt.count, tt.days); got != tt.want {
			t.Errorf("formatPurgeMessage(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}
