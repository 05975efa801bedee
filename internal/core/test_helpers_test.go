package core

import (
	"context"
	"testing"
	"time"

	"github.com/ecomsupport/shopchat-server/internal/store"
	"github.com/ecomsupport/shopchat-server/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func newTestStore(t *testing.T, tenantIDs ...string) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	for _, id := range tenantIDs {
		tenant := &store.Tenant{
			ID:   id,
			Name: id,
			Mode: store.VerifyToken,
		}
		if err := st.UpsertTenant(context.Background(), tenant); err != nil {
			t.Fatalf("upsert tenant %s: %v", id, err)
		}
	}
	return st
}
