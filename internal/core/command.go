package core

import "github.com/ecomsupport/shopchat-server/internal/store"

// CommandKind describes what the connection wants to do.
type CommandKind int

const (
	// CommandSendMessage persists a message and fans it out.
	CommandSendMessage CommandKind = iota
	// CommandJoinConversation subscribes a staff connection to a
	// customer's private channel and resets its unread count.
	CommandJoinConversation
	// CommandTyping toggles the ephemeral typing indicator.
	CommandTyping
	// CommandSetOnline toggles the tenant's online/offline flag.
	CommandSetOnline
	// CommandUpdateQuickReplies replaces the tenant's canned replies.
	CommandUpdateQuickReplies
	// CommandFetchPreview requests product-page preview metadata.
	CommandFetchPreview
	// CommandReportProfile upserts the customer's CRM snapshot.
	CommandReportProfile
)

// Command represents an action requested by a connection. PeerID targets
// a specific conversation for staff commands; customer commands always
// operate on the connection's own conversation.
type Command struct {
	Kind     CommandKind
	PeerID   string
	Body     string
	MsgKind  store.Kind
	IsTyping bool
	Online   bool
	Replies  []string
	URL      string
	Profile  *store.Profile
}
