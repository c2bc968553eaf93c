package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/learnflow/pystudio/internal/db"
	"github.com/learnflow/pystudio/internal/errors"
)

// MaxPurgeDays bounds older_than_days (about a century).
const MaxPurgeDays = 36500

// PurgeHistoryInput contains parameters for the PurgeHistory operation.
type PurgeHistoryInput struct {
	OlderThanDays *int // optional, only purge records created more than N days ago
}

// PurgeHistoryOutput contains the result of the PurgeHistory operation.
type PurgeHistoryOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// PurgeHistory permanently deletes activity records.
func PurgeHistory(ctx context.Context, database *sql.DB, input PurgeHistoryInput) (*PurgeHistoryOutput, error) {
	var (
		count int
		err   error
	)
	if input.OlderThanDays == nil {
		count, err = db.PurgeAllRuns(ctx, database)
	} else {
		days := *input.OlderThanDays
		if days < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must not be negative")
		}
		if days > MaxPurgeDays {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("older_than_days must be at most %d", MaxPurgeDays))
		}
		count, err = db.PurgeRunsBefore(ctx, database, time.Now().AddDate(0, 0, -days).Unix())
	}
	if err != nil {
		return nil, err
	}

	return &PurgeHistoryOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No history to purge"
	}

	recordWord := "record"
	if count > 1 {
		recordWord = "records"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, recordWord)

	if olderThanDays != nil {
		msg += fmt.Sprintf(" (created more than %d days ago)", *olderThanDays)
	}

	return msg
}
