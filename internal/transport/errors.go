package transport

import "fmt"

// RejectReason classifies why the transport refused a message edit.
type RejectReason string

const (
	// RejectUnchanged means the edit would produce byte-identical content.
	RejectUnchanged RejectReason = "unchanged"
	// RejectOther covers every other edit refusal (message too old, deleted,
	// wrong type, and similar API rejections).
	RejectOther RejectReason = "other"
)

// EditRejectedError reports a refused in-place edit. The updater treats any
// rejection as a signal to fall back to a fresh send, but the reason is kept
// for logging.
type EditRejectedError struct {
	Reason RejectReason
	Err    error
}

func (e *EditRejectedError) Error() string {
	return fmt.Sprintf("edit rejected (%s): %v", e.Reason, e.Err)
}

func (e *EditRejectedError) Unwrap() error {
	return e.Err
}
