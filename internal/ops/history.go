package ops

import (
	"context"
	"database/sql"
	"time"
	"unicode/utf8"

	"github.com/learnflow/pystudio/internal/activity"
	"github.com/learnflow/pystudio/internal/db"
	"github.com/learnflow/pystudio/internal/errors"
	"github.com/learnflow/pystudio/internal/studio"
)

// RecordRunInput contains parameters for the RecordRun operation.
type RecordRunInput struct {
	Kind    activity.Kind  // required
	Input   string         // submitted code or question; only its length is stored
	Outcome studio.Outcome // what was displayed
}

// RecordRunOutput contains the result of the RecordRun operation.
type RecordRunOutput struct {
	ID string `json:"id"`
}

// RecordRun appends one action to the activity log.
func RecordRun(ctx context.Context, database *sql.DB, input RecordRunInput) (*RecordRunOutput, error) {
	if !input.Kind.Valid() {
		return nil, errors.NewInvalidRequest("kind must be execute or chat")
	}
	if input.Outcome.Source == "" {
		return nil, errors.NewInvalidRequest("outcome source is required")
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	r := &activity.Record{
		ID:         id,
		Kind:       input.Kind,
		Source:     string(input.Outcome.Source),
		Reason:     input.Outcome.Reason,
		InputChars: utf8.RuneCountInString(input.Input),
		CreatedAt:  time.Now().Unix(),
	}
	if input.Outcome.Topic != "" {
		topic := string(input.Outcome.Topic)
		r.Topic = &topic
	}

	if err := db.InsertRun(ctx, database, r); err != nil {
		return nil, err
	}
	return &RecordRunOutput{ID: id}, nil
}

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Kind   string // optional: execute or chat
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// HistoryItem is one activity record as shown to the learner.
type HistoryItem struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Source     string  `json:"source"`
	Reason     string  `json:"reason,omitempty"`
	Topic      *string `json:"topic,omitempty"`
	InputChars int     `json:"input_chars"`
	CreatedAt  int64   `json:"created_at"`
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []HistoryItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// History lists recorded actions, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	kind := activity.Kind(input.Kind)
	if kind != "" && !kind.Valid() {
		return nil, errors.NewInvalidRequest("kind must be execute or chat")
	}

	limit := clampLimit(input.Limit)
	offset := max(input.Offset, 0)

	records, err := db.ListRuns(ctx, database, kind, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := db.CountRuns(ctx, database, kind)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, HistoryItem{
			ID:         r.ID,
			Kind:       string(r.Kind),
			Source:     r.Source,
			Reason:     r.Reason,
			Topic:      r.Topic,
			InputChars: r.InputChars,
			CreatedAt:  r.CreatedAt,
		})
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
