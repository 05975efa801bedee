package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/ecomsupport/shopchat-server/internal/auth"
	"github.com/ecomsupport/shopchat-server/internal/core"
	"github.com/ecomsupport/shopchat-server/internal/proto"
	"github.com/ecomsupport/shopchat-server/internal/store"
	"github.com/ecomsupport/shopchat-server/internal/utils"
)

// staffPeerID is the reserved peer id staff consoles connect under.
const staffPeerID = "admin"

// AdminWSHandler upgrades staff console connections. The first frame
// must be a login carrying either the tenant credential or a previously
// issued session token; everything after that is bridged to the hub.
type AdminWSHandler struct {
	hub *core.Hub
	svc *auth.Service
	log *zerolog.Logger
}

// NewAdminWSHandler builds the staff-facing WebSocket handler.
func NewAdminWSHandler(hub *core.Hub, svc *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &AdminWSHandler{hub: hub, svc: svc, log: logger}
}

func (h *AdminWSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	tenantID := r.URL.Query().Get("tenant")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("admin ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if tenantID == "" {
		conn.Close(websocket.StatusPolicyViolation, "tenant is required")
		return
	}

	login, err := readLogin(ctx, conn)
	if err != nil {
		h.log.Warn().Err(err).Str("tenant", tenantID).Msg("staff handshake failed")
		conn.Close(websocket.StatusPolicyViolation, "login expected")
		return
	}

	tenant, token, err := h.authenticate(ctx, tenantID, login)
	if err != nil {
		// Each failure cause keeps its own code so the console can show
		// "no such shop" and "wrong password" differently.
		code := "bad_credential"
		switch {
		case errors.Is(err, auth.ErrUnknownTenant):
			code = "unknown_tenant"
		case errors.Is(err, auth.ErrBadToken):
			code = "bad_token"
		case !errors.Is(err, auth.ErrBadCredential):
			h.log.Error().Err(err).Str("tenant", tenantID).Msg("staff login")
			code = core.ErrCodePersistFailed
		}
		writeError(ctx, conn, code, err.Error())
		conn.Close(websocket.StatusPolicyViolation, "login failed")
		return
	}

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventLogin,
		Data:  proto.EventLoginData{Token: token, TenantName: tenant.Name},
	}); err != nil {
		conn.Close(websocket.StatusInternalError, "write failed")
		return
	}

	client := core.NewClient(utils.NewID(), tenantID, staffPeerID, "Admin", core.RoleStaff, true)

	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	runConnection(ctx, conn, client, staffInboundToCommand, h.log)
}

// authenticate resolves the login frame to a tenant. Token login does
// not mint a new token; the console keeps the one it has.
func (h *AdminWSHandler) authenticate(ctx context.Context, tenantID string, login *proto.LoginData) (*store.Tenant, string, error) {
	if login.Token != "" {
		tenant, err := h.svc.StaffFromToken(ctx, tenantID, login.Token)
		if err != nil {
			return nil, "", err
		}
		return tenant, "", nil
	}
	return h.svc.StaffLogin(ctx, tenantID, login.Password)
}

func readLogin(ctx context.Context, conn *websocket.Conn) (*proto.LoginData, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		return nil, err
	}
	if inbound.Type != proto.InboundTypeLogin {
		return nil, errors.New("first frame must be login")
	}
	var login proto.LoginData
	if err := json.Unmarshal(inbound.Data, &login); err != nil {
		return nil, err
	}
	return &login, nil
}
