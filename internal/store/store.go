package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// VerifyMode selects how a tenant authenticates customer identities.
type VerifyMode string

const (
	// VerifyToken compares a static public token supplied by the widget.
	VerifyToken VerifyMode = "token"
	// VerifyHMAC expects hex(HMAC-SHA256(secret_key, peer_id)).
	VerifyHMAC VerifyMode = "hmac"
)

// Tenant is a storefront using the chat system. It is the unit of trust
// and data isolation.
type Tenant struct {
	ID           string
	Name         string
	PasswordHash string // staff credential, bcrypt
	Mode         VerifyMode
	SecretKey    string // for hmac mode
	PublicToken  string // for token mode
	Online       bool
	QuickReplies []string
	CreatedAt    time.Time
}

// Sender identifies who authored a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderStaff    Sender = "staff"
)

// Kind describes the message payload. Image and product bodies are opaque
// references (URL / serialized descriptor); the server never inspects them.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindProduct Kind = "product"
)

// Message is a persisted chat message. Immutable once created except for
// the read flag, which staff viewing flips.
type Message struct {
	ID        int64
	TenantID  string
	PeerID    string
	Author    string
	Body      string
	Kind      Kind
	Sender    Sender
	Read      bool // meaningful for customer-authored messages only
	CreatedAt time.Time
}

// Peer is a roster entry for a customer conversation, derived from
// stored messages.
type Peer struct {
	ID       string
	Name     string
	LastSeen time.Time
}

// Profile is a best-effort CRM snapshot reported by the embedding page.
// Last write wins; never authoritative.
type Profile struct {
	TenantID      string
	PeerID        string
	Name          string
	Email         string
	Phone         string
	Tags          []string
	LifetimeSpend float64
	RiskScore     float64
	AccountStatus string
	UpdatedAt     time.Time
}

// TenantStore handles tenant persistence.
type TenantStore interface {
	// UpsertTenant creates or replaces a tenant record by id.
	UpsertTenant(ctx context.Context, t *Tenant) error

	// GetTenant retrieves a tenant by id. Returns ErrNotFound if absent.
	GetTenant(ctx context.Context, id string) (*Tenant, error)

	// SetTenantOnline flips the tenant's online/offline flag.
	SetTenantOnline(ctx context.Context, id string, online bool) error

	// UpdateQuickReplies replaces the tenant's canned quick-reply list.
	UpdateQuickReplies(ctx context.Context, id string, replies []string) error
}

// MessageStore handles message persistence and unread bookkeeping.
type MessageStore interface {
	// SaveMessage persists a message, assigning its id and server timestamp.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns a conversation's messages ordered by time.
	ListMessages(ctx context.Context, tenantID, peerID string) ([]*Message, error)

	// ListPeers returns the customer peers known to a tenant, derived from
	// customer-authored messages.
	ListPeers(ctx context.Context, tenantID string) ([]*Peer, error)

	// UnreadCounts returns peer id -> count of unread customer messages.
	UnreadCounts(ctx context.Context, tenantID string) (map[string]int, error)

	// CountUnread returns the unread customer-message count for one peer.
	CountUnread(ctx context.Context, tenantID, peerID string) (int, error)

	// MarkConversationRead flips every unread customer-authored message of
	// the peer to read in a single conditional update and reports how many
	// rows changed.
	MarkConversationRead(ctx context.Context, tenantID, peerID string) (int64, error)
}

// ProfileStore handles CRM snapshot persistence.
type ProfileStore interface {
	// UpsertProfile stores the latest snapshot for (tenant, peer),
	// overwriting any previous one.
	UpsertProfile(ctx context.Context, p *Profile) error

	// GetProfile retrieves a snapshot. Returns ErrNotFound if absent.
	GetProfile(ctx context.Context, tenantID, peerID string) (*Profile, error)

	// ListProfiles returns all snapshots for a tenant.
	ListProfiles(ctx context.Context, tenantID string) ([]*Profile, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	TenantStore
	MessageStore
	ProfileStore

	// Close closes the underlying database connection.
	Close() error
}
