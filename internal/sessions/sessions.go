// Package sessions tracks per-user conversation state for the gate flow.
// Sessions are ephemeral: they live for the process lifetime and are created
// lazily on the first event from a user.
package sessions

// Stage identifies the user's position in the gate conversation.
type Stage string

const (
	// StageStart is the initial stage before /start was handled.
	StageStart Stage = "start"
	// StageAwaitingCheck means the welcome prompt was sent and the bot waits
	// for the subscription-check button.
	StageAwaitingCheck Stage = "awaiting_check"
	// StageAwaitingContact means membership is confirmed and the bot waits
	// for the shared contact.
	StageAwaitingContact Stage = "awaiting_contact"
	// StageCompleted is terminal: the contact was handed off.
	StageCompleted Stage = "completed"
)

// Session holds the conversation state of a single user.
type Session struct {
	Stage      Stage
	RetryCount int
}

// Store keeps sessions keyed by Telegram user ID. Operations on the same key
// are serialized; different keys are independent.
type Store interface {
	// Get returns the user's session, creating a default one if absent.
	Get(userID int64) Session
	SetStage(userID int64, stage Stage)
	// IncrementRetry bumps the retry counter and returns the new value.
	IncrementRetry(userID int64) int
	ResetRetry(userID int64)
	// Counts reports the number of sessions per stage.
	Counts() map[Stage]int
}
