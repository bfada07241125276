// Package storage persists relayed contacts for operator bookkeeping.
// The journal is optional: the bot runs without a database and only loses
// the audit trail, never the hand-off itself.
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/subgate/internal/transport"
)

// ContactJournal writes one row per relayed contact.
type ContactJournal struct {
	db *sqlx.DB
}

// NewContactJournal wraps an open database handle.
func NewContactJournal(db *sqlx.DB) *ContactJournal {
	return &ContactJournal{db: db}
}

const insertSubmission = `
INSERT INTO contact_submissions (user_id, username, first_name, last_name, phone_number, outcome, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Record inserts the contact together with its relay outcome.
func (j *ContactJournal) Record(ctx context.Context, c transport.Contact, outcome string) error {
	_, err := j.db.ExecContext(ctx, insertSubmission,
		c.UserID, c.Username, c.FirstName, c.LastName, c.PhoneNumber, outcome, c.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact submission: %w", err)
	}
	return nil
}
