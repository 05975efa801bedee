package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ecomsupport/shopchat-server/internal/auth"
	"github.com/ecomsupport/shopchat-server/internal/media"
)

// maxUploadBytes caps attachment size.
const maxUploadBytes = 10 << 20

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	authService *auth.Service
	uploader    media.Uploader
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. The uploader may
// be nil when no media backend is configured; uploads then return 503.
func NewAPIHandlers(authService *auth.Service, uploader media.Uploader, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		uploader:    uploader,
		log:         logger,
	}
}

// AdminLoginRequest represents the staff login request body.
type AdminLoginRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token      string `json:"token"`
	TenantName string `json:"tenant_name"`
}

// UploadResponse carries the public URL of a stored attachment.
type UploadResponse struct {
	URL string `json:"url"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AdminLogin issues a staff session token for REST consumers.
// POST /api/admin/login
func (h *APIHandlers) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid admin login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	tenant, token, err := h.authService.StaffLogin(c.Request.Context(), req.TenantID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnknownTenant):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown tenant"})
		case errors.Is(err, auth.ErrBadCredential):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "wrong password"})
		default:
			h.log.Error().Err(err).Str("tenant", req.TenantID).Msg("failed to login staff")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("tenant", req.TenantID).Msg("staff logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token, TenantName: tenant.Name})
}

// Upload stores a chat attachment and returns its public URL.
// POST /api/upload
func (h *APIHandlers) Upload(c *gin.Context) {
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "uploads are not configured"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("open uploaded file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(c.Request.Context(), file, header.Filename)
	if err != nil {
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("upload attachment")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "upload failed"})
		return
	}

	c.JSON(http.StatusOK, UploadResponse{URL: url})
}
