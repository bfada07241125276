// Package gate decides whether a user belongs to the required channel.
package gate

// Status is the classified result of a membership check.
type Status int

const (
	// StatusUnknown means the check itself failed; it is never a substitute
	// for StatusNotMember.
	StatusUnknown Status = iota
	// StatusMember means the user belongs to the channel.
	StatusMember
	// StatusNotMember means the transport answered and the user is not a member.
	StatusNotMember
)

func (s Status) String() string {
	switch s {
	case StatusMember:
		return "member"
	case StatusNotMember:
		return "not_member"
	default:
		return "unknown"
	}
}

// memberRoles are the transport roles treated as channel membership.
var memberRoles = map[string]struct{}{
	"member":        {},
	"administrator": {},
	"creator":       {},
}

// ClassifyRole maps the transport's raw role vocabulary onto the closed
// Status enum. Every role outside memberRoles (left, kicked, restricted, or
// anything the API adds later) counts as not a member.
func ClassifyRole(role string) Status {
	if _, ok := memberRoles[role]; ok {
		return StatusMember
	}
	return StatusNotMember
}
