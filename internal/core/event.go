package core

import (
	"github.com/ecomsupport/shopchat-server/internal/preview"
	"github.com/ecomsupport/shopchat-server/internal/store"
)

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventHistory delivers a conversation's stored messages on join.
	EventHistory EventKind = iota
	// EventMessage notifies channel members about a new message.
	EventMessage
	// EventConversation summarizes a customer message for staff
	// dashboards that have not joined that private channel.
	EventConversation
	// EventTyping relays an ephemeral typing indicator.
	EventTyping
	// EventReadReceipt notifies that a conversation's unread customer
	// messages were flipped to read.
	EventReadReceipt
	// EventStatus carries the tenant's online/offline flag.
	EventStatus
	// EventRoster delivers the initial staff console state.
	EventRoster
	// EventQuickReplies carries an updated canned-reply list.
	EventQuickReplies
	// EventProfile carries a fresh CRM snapshot to staff dashboards.
	EventProfile
	// EventPreview delivers a product preview result or its typed failure.
	EventPreview
	// EventError notifies a connection about a domain error.
	EventError
)

// Event is sent to connections to describe what happened in the system.
type Event struct {
	Kind     EventKind
	PeerID   string // conversation the event is scoped to
	From     string // originating peer id for typing indicators
	IsTyping bool
	Online   bool
	Unread   int
	Message  *store.Message
	Messages []*store.Message // for EventHistory
	Roster   *Roster          // for EventRoster
	Replies  []string
	Profile  *store.Profile
	Preview  *preview.Preview
	Error    *CoreError
}

// Roster is the initial state handed to a staff console: every known
// peer, the derived unread-count map, stored CRM snapshots, and the
// tenant's own settings.
type Roster struct {
	TenantName   string
	Online       bool
	Peers        []*store.Peer
	Unread       map[string]int
	Profiles     []*store.Profile
	QuickReplies []string
}
