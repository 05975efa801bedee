package proto

import "encoding/json"

// Inbound is the envelope for frames coming from a client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	// Customer socket inbound types.
	InboundTypeHello   = "hello"
	InboundTypeMsg     = "msg"
	InboundTypeTyping  = "typing"
	InboundTypeProfile = "profile"

	// Staff socket inbound types.
	InboundTypeLogin        = "login"
	InboundTypeJoin         = "join"
	InboundTypeOnline       = "online"
	InboundTypeQuickReplies = "quick_replies"
	InboundTypePreview      = "preview"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// HelloData is the identity a customer widget asserts at handshake.
type HelloData struct {
	PeerID    string `json:"peer_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Token     string `json:"token,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// LoginData authenticates a staff console, by credential or by a
// previously issued session token.
type LoginData struct {
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// MsgData is a chat message from a client. PeerID targets the
// conversation for staff senders and is ignored for customers.
type MsgData struct {
	PeerID string `json:"peer_id,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Body   string `json:"body"`
}

// TypingData toggles the ephemeral typing indicator.
type TypingData struct {
	PeerID   string `json:"peer_id,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

// ProfileData is a CRM snapshot reported by the embedding page.
type ProfileData struct {
	Name          string   `json:"name,omitempty"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	LifetimeSpend float64  `json:"lifetime_spend,omitempty"`
	RiskScore     float64  `json:"risk_score,omitempty"`
	AccountStatus string   `json:"account_status,omitempty"`
}

// JoinData asks to open one customer conversation.
type JoinData struct {
	PeerID string `json:"peer_id"`
}

// OnlineData toggles the tenant's online flag.
type OnlineData struct {
	Online bool `json:"online"`
}

// QuickRepliesData replaces the canned quick-reply list.
type QuickRepliesData struct {
	Replies []string `json:"replies"`
}

// PreviewData requests product-page preview metadata.
type PreviewData struct {
	URL string `json:"url"`
}

// Outbound is the envelope for frames sent to a client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Outbound event names.
const (
	EventGuestIdentity = "guest_identity"
	EventLogin         = "login"
	EventHistory       = "history"
	EventMessage       = "message"
	EventConversation  = "conversation"
	EventTyping        = "typing"
	EventReadReceipt   = "read_receipt"
	EventStatus        = "status"
	EventRoster        = "roster"
	EventQuickReplies  = "quick_replies"
	EventProfile       = "profile"
	EventPreview       = "preview"
)

// EventLoginData confirms a staff socket login and hands back a session
// token for reconnects.
type EventLoginData struct {
	Token      string `json:"token,omitempty"`
	TenantName string `json:"tenant_name"`
}

// GuestIdentityData tells a downgraded peer its minted identity so the
// client can persist and replay it.
type GuestIdentityData struct {
	PeerID string `json:"peer_id"`
	Name   string `json:"name"`
}

// EventMessageData is one chat message on the wire.
type EventMessageData struct {
	ID     int64  `json:"id"`
	PeerID string `json:"peer_id"`
	Author string `json:"author"`
	Body   string `json:"body"`
	Kind   string `json:"kind"`
	Sender string `json:"sender"`
	Read   bool   `json:"read"`
	TS     int64  `json:"ts"`
}

// EventHistoryData delivers a conversation's stored messages.
type EventHistoryData struct {
	PeerID   string             `json:"peer_id"`
	Messages []EventMessageData `json:"messages"`
}

// EventConversationData summarizes a customer message for staff
// dashboards, with the conversation's fresh unread count.
type EventConversationData struct {
	Message EventMessageData `json:"message"`
	Unread  int              `json:"unread"`
}

// EventTypingData relays a typing indicator.
type EventTypingData struct {
	PeerID   string `json:"peer_id"`
	From     string `json:"from"`
	IsTyping bool   `json:"is_typing"`
}

// EventReadReceiptData reports an unread-count reset.
type EventReadReceiptData struct {
	PeerID string `json:"peer_id"`
	Unread int    `json:"unread"`
}

// EventStatusData carries the tenant online flag.
type EventStatusData struct {
	Online bool `json:"online"`
}

// RosterPeer is one conversation in the staff roster.
type RosterPeer struct {
	PeerID   string `json:"peer_id"`
	Name     string `json:"name"`
	LastSeen int64  `json:"last_seen"`
}

// EventRosterData is the initial staff console state.
type EventRosterData struct {
	TenantName   string                 `json:"tenant_name"`
	Online       bool                   `json:"online"`
	Peers        []RosterPeer           `json:"peers"`
	Unread       map[string]int         `json:"unread"`
	Profiles     map[string]ProfileData `json:"profiles"`
	QuickReplies []string               `json:"quick_replies"`
}

// EventProfileData pushes a fresh CRM snapshot to staff dashboards.
type EventProfileData struct {
	PeerID  string      `json:"peer_id"`
	Profile ProfileData `json:"profile"`
}

// EventPreviewData delivers a product preview result.
type EventPreviewData struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
	Price string `json:"price,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
