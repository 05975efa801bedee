package core

// SessionState is the per-connection lifecycle position.
//
// CONNECTING -> IDENTIFIED -> JOINED -> ACTIVE <-> TYPING -> CLOSED
//
// A connection whose handshake carries no tenant id never leaves
// CONNECTING; the transport closes it outright. TYPING is purely
// ephemeral and never persisted. CLOSED is terminal: the connection is
// removed from all channels and receives no further events.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateIdentified
	StateJoined
	StateActive
	StateTyping
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentified:
		return "identified"
	case StateJoined:
		return "joined"
	case StateActive:
		return "active"
	case StateTyping:
		return "typing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Role distinguishes customer widgets from staff consoles.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)
