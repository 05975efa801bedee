package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecomsupport/shopchat-server/internal/store"
)

var (
	// ErrUnknownTenant is returned when the queried tenant does not exist.
	// Confirming non-existence of the one queried id is deliberate; the
	// error never enumerates tenants that do exist.
	ErrUnknownTenant = errors.New("unknown tenant")
	// ErrBadCredential is returned when the staff credential does not match.
	ErrBadCredential = errors.New("bad credential")
	// ErrBadToken is returned when a staff session token is invalid or
	// scoped to a different tenant.
	ErrBadToken = errors.New("bad token")
)

// Service provides staff authentication against tenant records.
type Service struct {
	store     store.TenantStore
	jwtConfig *JWTConfig
}

// NewService creates a staff authentication service.
func NewService(tenantStore store.TenantStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     tenantStore,
		jwtConfig: jwtConfig,
	}
}

// StaffLogin validates a staff credential for the tenant and returns the
// tenant record plus a session token. Unknown tenant and wrong credential
// produce distinct errors.
func (s *Service) StaffLogin(ctx context.Context, tenantID, password string) (*store.Tenant, string, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrUnknownTenant
		}
		return nil, "", fmt.Errorf("load tenant: %w", err)
	}

	if err := ComparePassword(tenant.PasswordHash, password); err != nil {
		return nil, "", ErrBadCredential
	}

	token, err := GenerateToken(s.jwtConfig, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	return tenant, token, nil
}

// StaffFromToken validates a previously issued session token for the
// tenant and returns the tenant record. Lets a reconnecting console avoid
// holding the raw credential in memory.
func (s *Service) StaffFromToken(ctx context.Context, tenantID, token string) (*store.Tenant, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil || claims.TenantID != tenantID {
		return nil, ErrBadToken
	}

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownTenant
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return tenant, nil
}
