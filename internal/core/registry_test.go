package core

import "testing"

func TestRegistryJoinRejectsForeignTenant(t *testing.T) {
	r := NewRegistry()
	c := NewClient("c1", "shop1", "u1", "U1", RoleCustomer, true)

	if err := r.Join(c, PrivateChannel("shop2", "u1")); err != ErrTenantMismatch {
		t.Fatalf("expected tenant mismatch, got %v", err)
	}
	if err := r.Join(c, BroadcastChannel("shop2")); err != ErrTenantMismatch {
		t.Fatalf("expected tenant mismatch, got %v", err)
	}
	if len(c.channels) != 0 {
		t.Fatalf("rejected join must not record membership")
	}

	if err := r.Join(c, PrivateChannel("shop1", "u1")); err != nil {
		t.Fatalf("own-tenant join failed: %v", err)
	}
}

func TestRegistryDropCleansEmptyChannels(t *testing.T) {
	r := NewRegistry()
	a := NewClient("a", "shop1", "u1", "U1", RoleCustomer, true)
	b := NewClient("b", "shop1", "admin", "Admin", RoleStaff, true)

	key := PrivateChannel("shop1", "u1")
	if err := r.Join(a, key); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := r.Join(b, key); err != nil {
		t.Fatalf("join: %v", err)
	}

	r.Drop(a)
	if _, ok := r.channels[key]; !ok {
		t.Fatalf("channel with remaining member must survive")
	}

	r.Drop(b)
	if _, ok := r.channels[key]; ok {
		t.Fatalf("empty channel must be deleted")
	}
}

func TestRegistryBroadcastTenantDeduplicates(t *testing.T) {
	r := NewRegistry()
	staff := NewClient("s", "shop1", "admin", "Admin", RoleStaff, true)

	// Staff belongs to the broadcast channel and two private channels.
	for _, key := range []ChannelKey{
		BroadcastChannel("shop1"),
		PrivateChannel("shop1", "u1"),
		PrivateChannel("shop1", "u2"),
	} {
		if err := r.Join(staff, key); err != nil {
			t.Fatalf("join: %v", err)
		}
	}

	r.BroadcastTenant("shop1", &Event{Kind: EventStatus, Online: true})

	if got := len(staff.Events); got != 1 {
		t.Fatalf("expected exactly one delivery, got %d", got)
	}
}

func TestRegistryDeliverSkipsClosed(t *testing.T) {
	c := NewClient("c", "shop1", "u1", "U1", RoleCustomer, true)
	c.setState(StateClosed)

	deliver(c, &Event{Kind: EventStatus})
	if len(c.Events) != 0 {
		t.Fatalf("closed client must not receive events")
	}
}
