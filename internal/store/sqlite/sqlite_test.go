package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ecomsupport/shopchat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func saveMsg(t *testing.T, s *SQLiteStore, tenant, peer, body string, sender store.Sender) *store.Message {
	t.Helper()

	msg := &store.Message{
		TenantID: tenant,
		PeerID:   peer,
		Author:   peer,
		Body:     body,
		Kind:     store.KindText,
		Sender:   sender,
	}
	if err := s.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("save message: %v", err)
	}
	return msg
}

func TestTenantUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tenant := &store.Tenant{
		ID:           "shop1",
		Name:         "Shop One",
		PasswordHash: "hash",
		Mode:         store.VerifyHMAC,
		SecretKey:    "k",
		Online:       true,
		QuickReplies: []string{"Hi there!"},
	}
	if err := s.UpsertTenant(ctx, tenant); err != nil {
		t.Fatalf("upsert tenant: %v", err)
	}

	got, err := s.GetTenant(ctx, "shop1")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if got.Name != "Shop One" || got.Mode != store.VerifyHMAC || got.SecretKey != "k" || !got.Online {
		t.Fatalf("unexpected tenant: %+v", got)
	}
	if len(got.QuickReplies) != 1 || got.QuickReplies[0] != "Hi there!" {
		t.Fatalf("unexpected quick replies: %v", got.QuickReplies)
	}

	// Upsert replaces the existing record.
	tenant.Name = "Renamed"
	if err := s.UpsertTenant(ctx, tenant); err != nil {
		t.Fatalf("re-upsert tenant: %v", err)
	}
	got, err = s.GetTenant(ctx, "shop1")
	if err != nil {
		t.Fatalf("get tenant after upsert: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("expected renamed tenant, got %q", got.Name)
	}

	if _, err := s.GetTenant(ctx, "nope"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetTenantOnlineAndQuickReplies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertTenant(ctx, &store.Tenant{ID: "shop1", PasswordHash: "h", Online: true}); err != nil {
		t.Fatalf("upsert tenant: %v", err)
	}

	if err := s.SetTenantOnline(ctx, "shop1", false); err != nil {
		t.Fatalf("set online: %v", err)
	}
	got, err := s.GetTenant(ctx, "shop1")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if got.Online {
		t.Fatalf("expected tenant offline")
	}

	if err := s.UpdateQuickReplies(ctx, "shop1", []string{"a", "b"}); err != nil {
		t.Fatalf("update quick replies: %v", err)
	}
	got, _ = s.GetTenant(ctx, "shop1")
	if len(got.QuickReplies) != 2 {
		t.Fatalf("unexpected quick replies: %v", got.QuickReplies)
	}

	if err := s.SetTenantOnline(ctx, "ghost", true); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown tenant, got %v", err)
	}
}

func TestListMessagesOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveMsg(t, s, "shop1", "u1", "first", store.SenderCustomer)
	saveMsg(t, s, "shop1", "u1", "second", store.SenderStaff)
	saveMsg(t, s, "shop1", "u1", "third", store.SenderCustomer)
	// A different conversation and a different tenant must not leak in.
	saveMsg(t, s, "shop1", "u2", "other peer", store.SenderCustomer)
	saveMsg(t, s, "shop2", "u1", "other tenant", store.SenderCustomer)

	msgs, err := s.ListMessages(ctx, "shop1", "u1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	want := []string{"first", "second", "third"}
	for i, m := range msgs {
		if m.Body != want[i] {
			t.Fatalf("message %d: expected %q, got %q", i, want[i], m.Body)
		}
	}
}

func TestUnreadCountsAndMarkRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveMsg(t, s, "shop1", "u1", "a", store.SenderCustomer)
	saveMsg(t, s, "shop1", "u1", "b", store.SenderCustomer)
	saveMsg(t, s, "shop1", "u1", "c", store.SenderCustomer)
	// Staff messages never count as unread.
	saveMsg(t, s, "shop1", "u1", "reply", store.SenderStaff)
	saveMsg(t, s, "shop1", "u2", "hello", store.SenderCustomer)

	counts, err := s.UnreadCounts(ctx, "shop1")
	if err != nil {
		t.Fatalf("unread counts: %v", err)
	}
	if counts["u1"] != 3 || counts["u2"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	affected, err := s.MarkConversationRead(ctx, "shop1", "u1")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if affected != 3 {
		t.Fatalf("expected 3 rows flipped, got %d", affected)
	}

	n, err := s.CountUnread(ctx, "shop1", "u1")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 unread after reset, got %d", n)
	}

	// Second reset is a no-op.
	affected, err = s.MarkConversationRead(ctx, "shop1", "u1")
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows on repeat reset, got %d", affected)
	}

	msgs, _ := s.ListMessages(ctx, "shop1", "u1")
	for _, m := range msgs {
		if m.Sender == store.SenderCustomer && !m.Read {
			t.Fatalf("customer message %d still unread", m.ID)
		}
	}

	// The other conversation is untouched.
	if n, _ := s.CountUnread(ctx, "shop1", "u2"); n != 1 {
		t.Fatalf("expected u2 unread untouched, got %d", n)
	}
}

func TestListPeersDerivedFromMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := &store.Message{
		TenantID: "shop1", PeerID: "u1", Author: "Old Name", Body: "a",
		Kind: store.KindText, Sender: store.SenderCustomer,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	if err := s.SaveMessage(ctx, m); err != nil {
		t.Fatalf("save: %v", err)
	}
	saveMsg(t, s, "shop1", "u2", "hi", store.SenderCustomer)
	// Latest author name for u1 should win in the roster.
	m2 := &store.Message{
		TenantID: "shop1", PeerID: "u1", Author: "New Name", Body: "b",
		Kind: store.KindText, Sender: store.SenderCustomer,
	}
	if err := s.SaveMessage(ctx, m2); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Staff replies do not create roster entries.
	saveMsg(t, s, "shop1", "u3", "staff only", store.SenderStaff)

	peers, err := s.ListPeers(ctx, "shop1")
	if err != nil {
		t.Fatalf("list peers: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	byID := map[string]string{}
	for _, p := range peers {
		byID[p.ID] = p.Name
	}
	if byID["u1"] != "New Name" {
		t.Fatalf("expected latest name for u1, got %q", byID["u1"])
	}
	if _, ok := byID["u3"]; ok {
		t.Fatalf("staff-only conversation must not appear in roster")
	}
}

func TestProfileUpsertLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &store.Profile{
		TenantID: "shop1", PeerID: "u1",
		Name: "Alice", Email: "a@example.com",
		Tags: []string{"vip"}, LifetimeSpend: 120.5,
	}
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	p2 := &store.Profile{
		TenantID: "shop1", PeerID: "u1",
		Name: "Alice Smith", LifetimeSpend: 200,
	}
	if err := s.UpsertProfile(ctx, p2); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetProfile(ctx, "shop1", "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.Name != "Alice Smith" || got.LifetimeSpend != 200 {
		t.Fatalf("expected last write to win, got %+v", got)
	}
	// The whole snapshot is replaced, not merged.
	if got.Email != "" || len(got.Tags) != 0 {
		t.Fatalf("expected replaced snapshot, got %+v", got)
	}

	all, err := s.ListProfiles(ctx, "shop1")
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(all))
	}

	if _, err := s.GetProfile(ctx, "shop1", "ghost"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
