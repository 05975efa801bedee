package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ecomsupport/shopchat-server/internal/store"
	"github.com/ecomsupport/shopchat-server/internal/store/sqlite"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig), st
}

func provisionTenant(t *testing.T, st store.TenantStore, id, password string) {
	t.Helper()

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := st.UpsertTenant(context.Background(), &store.Tenant{
		ID:           id,
		Name:         "Test Shop",
		PasswordHash: hash,
		Mode:         store.VerifyToken,
		PublicToken:  "tok",
		Online:       true,
	}); err != nil {
		t.Fatalf("upsert tenant: %v", err)
	}
}

func TestStaffLogin_UnknownTenant(t *testing.T) {
	svc, _ := newTestService(t)

	if _, _, err := svc.StaffLogin(context.Background(), "ghost", "pw"); !errors.Is(err, ErrUnknownTenant) {
		t.Fatalf("expected ErrUnknownTenant, got %v", err)
	}
}

func TestStaffLogin_BadCredential(t *testing.T) {
	svc, st := newTestService(t)
	provisionTenant(t, st, "shop1", "secret-pw")

	if _, _, err := svc.StaffLogin(context.Background(), "shop1", "wrong"); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("expected ErrBadCredential, got %v", err)
	}
}

func TestStaffLogin_SuccessAndTokenRoundTrip(t *testing.T) {
	svc, st := newTestService(t)
	provisionTenant(t, st, "shop1", "secret-pw")

	tenant, token, err := svc.StaffLogin(context.Background(), "shop1", "secret-pw")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if tenant.ID != "shop1" || token == "" {
		t.Fatalf("unexpected login result: %+v token=%q", tenant, token)
	}

	// The issued token authenticates a reconnect without the password.
	again, err := svc.StaffFromToken(context.Background(), "shop1", token)
	if err != nil {
		t.Fatalf("token login failed: %v", err)
	}
	if again.ID != "shop1" {
		t.Fatalf("unexpected tenant from token: %+v", again)
	}
}

func TestStaffFromToken_RejectsCrossTenantToken(t *testing.T) {
	svc, st := newTestService(t)
	provisionTenant(t, st, "shop1", "pw1")
	provisionTenant(t, st, "shop2", "pw2")

	_, token, err := svc.StaffLogin(context.Background(), "shop1", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// A shop1 token must not open a shop2 console.
	if _, err := svc.StaffFromToken(context.Background(), "shop2", token); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestStaffFromToken_RejectsGarbage(t *testing.T) {
	svc, st := newTestService(t)
	provisionTenant(t, st, "shop1", "pw")

	if _, err := svc.StaffFromToken(context.Background(), "shop1", "not-a-jwt"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}
