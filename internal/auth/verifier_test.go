package auth

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ecomsupport/shopchat-server/internal/store"
)

func newTestVerifier() *Verifier {
	logger := zerolog.New(nil)
	return NewVerifier(&logger)
}

func TestResolveTokenMode(t *testing.T) {
	v := newTestVerifier()
	tenant := &store.Tenant{ID: "shop1", Mode: store.VerifyToken, PublicToken: "tok_888"}

	tests := []struct {
		name     string
		claim    Claim
		verified bool
	}{
		{"exact token", Claim{PeerID: "u1", Token: "tok_888"}, true},
		{"token with whitespace", Claim{PeerID: "u1", Token: "  tok_888 "}, true},
		{"wrong token", Claim{PeerID: "u1", Token: "nope"}, false},
		{"missing token", Claim{PeerID: "u1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := v.Resolve(tenant, tt.claim)
			if id.Verified != tt.verified {
				t.Fatalf("expected verified=%v, got %+v", tt.verified, id)
			}
			if tt.verified && id.PeerID != "u1" {
				t.Fatalf("verified claim must keep its peer id, got %q", id.PeerID)
			}
			if !tt.verified && !id.Downgraded {
				t.Fatalf("failed claim must downgrade to guest, got %+v", id)
			}
		})
	}
}

func TestResolveHMACMode(t *testing.T) {
	v := newTestVerifier()
	tenant := &store.Tenant{ID: "shop1", Mode: store.VerifyHMAC, SecretKey: "k"}

	// The signed payload is the peer id alone.
	id := v.Resolve(tenant, Claim{PeerID: "u1", Signature: Sign("k", "u1")})
	if !id.Verified || id.PeerID != "u1" {
		t.Fatalf("expected verified identity, got %+v", id)
	}

	// A signature over a different peer id must not verify.
	id = v.Resolve(tenant, Claim{PeerID: "u1", Signature: Sign("k", "u2")})
	if id.Verified || !id.Downgraded {
		t.Fatalf("expected guest downgrade, got %+v", id)
	}

	// Wrong secret.
	id = v.Resolve(tenant, Claim{PeerID: "u1", Signature: Sign("other", "u1")})
	if id.Verified {
		t.Fatalf("expected rejection with wrong secret, got %+v", id)
	}
}

func TestResolveHMACWithoutSecretFallsBackToToken(t *testing.T) {
	v := newTestVerifier()
	tenant := &store.Tenant{ID: "shop1", Mode: store.VerifyHMAC, PublicToken: "tok"}

	// A signature is supplied, but no secret is configured: the degrade
	// path goes through token comparison.
	id := v.Resolve(tenant, Claim{PeerID: "u1", Token: "tok", Signature: "deadbeef"})
	if !id.Verified {
		t.Fatalf("expected token fallback to verify, got %+v", id)
	}

	id = v.Resolve(tenant, Claim{PeerID: "u1", Signature: "deadbeef"})
	if id.Verified {
		t.Fatalf("expected rejection without token, got %+v", id)
	}
}

func TestResolveGuestExemption(t *testing.T) {
	v := newTestVerifier()
	tenant := &store.Tenant{ID: "shop1", Mode: store.VerifyHMAC, SecretKey: "k"}

	// A replayed guest id is accepted as-is, without any proof.
	id := v.Resolve(tenant, Claim{PeerID: "guest_abc123xyz", Name: "Visitor"})
	if id.Verified || id.Downgraded {
		t.Fatalf("guest id must be accepted unverified, got %+v", id)
	}
	if id.PeerID != "guest_abc123xyz" || id.Name != "Visitor" {
		t.Fatalf("guest identity must be preserved, got %+v", id)
	}
}

func TestResolveEmptyClaimMintsGuest(t *testing.T) {
	v := newTestVerifier()
	tenant := &store.Tenant{ID: "shop1", Mode: store.VerifyToken, PublicToken: "tok"}

	id := v.Resolve(tenant, Claim{})
	if id.Verified || !id.Downgraded {
		t.Fatalf("expected downgrade, got %+v", id)
	}
	if !IsGuestID(id.PeerID) || id.Name != DefaultGuestName {
		t.Fatalf("expected fresh guest identity, got %+v", id)
	}
}

func TestNewGuestID(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id := NewGuestID()
		if !strings.HasPrefix(id, GuestPrefix) {
			t.Fatalf("missing guest prefix: %q", id)
		}
		if len(id) < len(GuestPrefix)+8 {
			t.Fatalf("suffix too short: %q", id)
		}
		if !IsGuestID(id) {
			t.Fatalf("IsGuestID must recognize %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate guest id: %q", id)
		}
		seen[id] = struct{}{}
	}
}
