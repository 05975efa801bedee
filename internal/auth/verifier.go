package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ecomsupport/shopchat-server/internal/store"
)

// DefaultGuestName is the display name assigned to downgraded peers.
const DefaultGuestName = "Guest"

// Claim is the identity a connecting customer asserts at handshake.
type Claim struct {
	PeerID    string
	Name      string
	Token     string // token mode
	Signature string // hmac mode: hex(HMAC-SHA256(secret, peer_id))
}

// Identity is the outcome of identity resolution. Resolution never fails:
// an unverifiable claim becomes a freshly minted guest identity.
type Identity struct {
	PeerID     string
	Name       string
	Verified   bool
	Downgraded bool // true when the claim failed and a guest id was minted
}

// Verifier validates claimed identities against a tenant's trust config.
type Verifier struct {
	log *zerolog.Logger
}

// NewVerifier creates an identity verifier.
func NewVerifier(logger *zerolog.Logger) *Verifier {
	return &Verifier{log: logger}
}

// Resolve authenticates a claim against the tenant's trust configuration.
//
// A peer id carrying the guest tag is accepted outright: a guest is
// definitionally unverified, so verification is meaningless for it. Any
// other claim that does not verify is downgraded to a new guest identity;
// the caller must notify the peer so the client can persist it.
func (v *Verifier) Resolve(tenant *store.Tenant, claim Claim) Identity {
	if claim.PeerID != "" && IsGuestID(claim.PeerID) {
		name := claim.Name
		if name == "" {
			name = DefaultGuestName
		}
		return Identity{PeerID: claim.PeerID, Name: name, Verified: false}
	}

	if claim.PeerID != "" && v.verify(tenant, claim) {
		name := claim.Name
		if name == "" {
			name = claim.PeerID
		}
		return Identity{PeerID: claim.PeerID, Name: name, Verified: true}
	}

	guestID := NewGuestID()
	v.log.Info().
		Str("tenant", tenant.ID).
		Str("claimed_peer", claim.PeerID).
		Str("guest_id", guestID).
		Msg("identity claim rejected, downgraded to guest")
	return Identity{PeerID: guestID, Name: DefaultGuestName, Verified: false, Downgraded: true}
}

func (v *Verifier) verify(tenant *store.Tenant, claim Claim) bool {
	mode := tenant.Mode
	if mode == store.VerifyHMAC && tenant.SecretKey == "" {
		// A tenant in signature mode without a secret cannot verify
		// signatures. Fall back to token mode, loudly.
		v.log.Warn().
			Str("tenant", tenant.ID).
			Msg("degraded verification: hmac mode without secret key, falling back to token")
		mode = store.VerifyToken
	}

	switch mode {
	case store.VerifyHMAC:
		if claim.Signature == "" {
			return false
		}
		mac := hmac.New(sha256.New, []byte(tenant.SecretKey))
		mac.Write([]byte(claim.PeerID))
		expected := hex.EncodeToString(mac.Sum(nil))
		return hmac.Equal([]byte(expected), []byte(claim.Signature))
	case store.VerifyToken:
		if tenant.PublicToken == "" {
			return false
		}
		return strings.TrimSpace(claim.Token) == strings.TrimSpace(tenant.PublicToken)
	default:
		return false
	}
}

// Sign computes the signature a verified embed is expected to supply for
// the given peer id. The signed payload is the peer id alone.
func Sign(secret, peerID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(peerID))
	return hex.EncodeToString(mac.Sum(nil))
}
