package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ecomsupport/shopchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	verify_mode   TEXT NOT NULL DEFAULT 'token',
	secret_key    TEXT NOT NULL DEFAULT '',
	public_token  TEXT NOT NULL DEFAULT '',
	online        BOOLEAN NOT NULL DEFAULT 1,
	quick_replies TEXT NOT NULL DEFAULT '[]',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id  TEXT NOT NULL,
	peer_id    TEXT NOT NULL,
	author     TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT 'text',
	sender     TEXT NOT NULL,
	is_read    BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(tenant_id, peer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_unread
	ON messages(tenant_id, sender, is_read);

CREATE TABLE IF NOT EXISTS profiles (
	tenant_id      TEXT NOT NULL,
	peer_id        TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '[]',
	lifetime_spend REAL NOT NULL DEFAULT 0,
	risk_score     REAL NOT NULL DEFAULT 0,
	account_status TEXT NOT NULL DEFAULT '',
	updated_at     DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, peer_id)
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests that want to seed data alongside the schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== TenantStore implementation ====

// UpsertTenant creates or replaces a tenant record by id.
func (s *SQLiteStore) UpsertTenant(ctx context.Context, t *store.Tenant) error {
	replies, err := json.Marshal(emptyIfNil(t.QuickReplies))
	if err != nil {
		return fmt.Errorf("marshal quick replies: %w", err)
	}

	query := `
		INSERT INTO tenants (id, name, password_hash, verify_mode, secret_key, public_token, online, quick_replies)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			password_hash = excluded.password_hash,
			verify_mode = excluded.verify_mode,
			secret_key = excluded.secret_key,
			public_token = excluded.public_token,
			online = excluded.online,
			quick_replies = excluded.quick_replies
	`
	mode := t.Mode
	if mode == "" {
		mode = store.VerifyToken
	}
	if _, err := s.db.ExecContext(ctx, query,
		t.ID, t.Name, t.PasswordHash, string(mode), t.SecretKey, t.PublicToken, t.Online, string(replies),
	); err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}

// GetTenant retrieves a tenant by id.
func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (*store.Tenant, error) {
	query := `
		SELECT id, name, password_hash, verify_mode, secret_key, public_token, online, quick_replies, created_at
		FROM tenants
		WHERE id = ?
	`
	var t store.Tenant
	var mode, replies string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.PasswordHash, &mode, &t.SecretKey, &t.PublicToken, &t.Online, &replies, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query tenant: %w", err)
	}
	t.Mode = store.VerifyMode(mode)
	if err := json.Unmarshal([]byte(replies), &t.QuickReplies); err != nil {
		return nil, fmt.Errorf("unmarshal quick replies: %w", err)
	}
	return &t, nil
}

// SetTenantOnline flips the tenant's online flag.
func (s *SQLiteStore) SetTenantOnline(ctx context.Context, id string, online bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tenants SET online = ? WHERE id = ?`, online, id)
	if err != nil {
		return fmt.Errorf("set tenant online: %w", err)
	}
	return requireRow(res)
}

// UpdateQuickReplies replaces the tenant's canned quick-reply list.
func (s *SQLiteStore) UpdateQuickReplies(ctx context.Context, id string, replies []string) error {
	data, err := json.Marshal(emptyIfNil(replies))
	if err != nil {
		return fmt.Errorf("marshal quick replies: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tenants SET quick_replies = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return fmt.Errorf("update quick replies: %w", err)
	}
	return requireRow(res)
}

// ==== MessageStore implementation ====

// SaveMessage persists a message, assigning id and server timestamp.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO messages (tenant_id, peer_id, author, body, kind, sender, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		msg.TenantID, msg.PeerID, msg.Author, msg.Body, string(msg.Kind), string(msg.Sender), msg.Read, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// ListMessages returns a conversation's messages ordered by time.
func (s *SQLiteStore) ListMessages(ctx context.Context, tenantID, peerID string) ([]*store.Message, error) {
	query := `
		SELECT id, tenant_id, peer_id, author, body, kind, sender, is_read, created_at
		FROM messages
		WHERE tenant_id = ? AND peer_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, peerID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*store.Message
	for rows.Next() {
		var m store.Message
		var kind, sender string
		if err := rows.Scan(&m.ID, &m.TenantID, &m.PeerID, &m.Author, &m.Body, &kind, &sender, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Kind = store.Kind(kind)
		m.Sender = store.Sender(sender)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// ListPeers returns the customer peers known to a tenant.
func (s *SQLiteStore) ListPeers(ctx context.Context, tenantID string) ([]*store.Peer, error) {
	// One row per peer: the latest customer message, so the most recently
	// reported display name wins.
	query := `
		SELECT m.peer_id, m.author, m.created_at
		FROM messages m
		JOIN (
			SELECT peer_id, MAX(id) AS max_id
			FROM messages
			WHERE tenant_id = ? AND sender = 'customer'
			GROUP BY peer_id
		) latest ON m.id = latest.max_id
		ORDER BY m.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query peers: %w", err)
	}
	defer rows.Close()

	var peers []*store.Peer
	for rows.Next() {
		var p store.Peer
		if err := rows.Scan(&p.ID, &p.Name, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scan peer: %w", err)
		}
		peers = append(peers, &p)
	}
	return peers, rows.Err()
}

// UnreadCounts returns peer id -> count of unread customer messages.
func (s *SQLiteStore) UnreadCounts(ctx context.Context, tenantID string) (map[string]int, error) {
	query := `
		SELECT peer_id, COUNT(*)
		FROM messages
		WHERE tenant_id = ? AND sender = 'customer' AND is_read = 0
		GROUP BY peer_id
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query unread counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var peer string
		var n int
		if err := rows.Scan(&peer, &n); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[peer] = n
	}
	return counts, rows.Err()
}

// CountUnread returns the unread customer-message count for one peer.
func (s *SQLiteStore) CountUnread(ctx context.Context, tenantID, peerID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE tenant_id = ? AND peer_id = ? AND sender = 'customer' AND is_read = 0
	`
	var n int
	if err := s.db.QueryRowContext(ctx, query, tenantID, peerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkConversationRead flips every unread customer message of the peer to
// read in one conditional update.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, tenantID, peerID string) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = 1
		WHERE tenant_id = ? AND peer_id = ? AND sender = 'customer' AND is_read = 0
	`
	res, err := s.db.ExecContext(ctx, query, tenantID, peerID)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// ==== ProfileStore implementation ====

// UpsertProfile stores the latest CRM snapshot, last write wins.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *store.Profile) error {
	tags, err := json.Marshal(emptyIfNil(p.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO profiles (tenant_id, peer_id, name, email, phone, tags, lifetime_spend, risk_score, account_status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, peer_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			tags = excluded.tags,
			lifetime_spend = excluded.lifetime_spend,
			risk_score = excluded.risk_score,
			account_status = excluded.account_status,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query,
		p.TenantID, p.PeerID, p.Name, p.Email, p.Phone, string(tags),
		p.LifetimeSpend, p.RiskScore, p.AccountStatus, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a CRM snapshot.
func (s *SQLiteStore) GetProfile(ctx context.Context, tenantID, peerID string) (*store.Profile, error) {
	query := profileSelect + ` WHERE tenant_id = ? AND peer_id = ?`
	row := s.db.QueryRowContext(ctx, query, tenantID, peerID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns all CRM snapshots for a tenant.
func (s *SQLiteStore) ListProfiles(ctx context.Context, tenantID string) ([]*store.Profile, error) {
	rows, err := s.db.QueryContext(ctx, profileSelect+` WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*store.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

const profileSelect = `
	SELECT tenant_id, peer_id, name, email, phone, tags, lifetime_spend, risk_score, account_status, updated_at
	FROM profiles`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*store.Profile, error) {
	var p store.Profile
	var tags string
	if err := row.Scan(
		&p.TenantID, &p.PeerID, &p.Name, &p.Email, &p.Phone, &tags,
		&p.LifetimeSpend, &p.RiskScore, &p.AccountStatus, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &p, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
