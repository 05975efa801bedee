package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/ecomsupport/shopchat-server/internal/auth"
	"github.com/ecomsupport/shopchat-server/internal/core"
	"github.com/ecomsupport/shopchat-server/internal/proto"
	"github.com/ecomsupport/shopchat-server/internal/store"
	"github.com/ecomsupport/shopchat-server/internal/utils"
)

const handshakeTimeout = 10 * time.Second

// commandMapper translates an inbound frame into a core command.
type commandMapper func(client *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error, error)

// WSHandler upgrades customer widget connections and bridges them to
// core clients. Identity is resolved before the client ever reaches the
// hub; an unverifiable claim is downgraded to a fresh guest identity and
// the new identity is pushed to the peer so it can be persisted.
type WSHandler struct {
	hub      *core.Hub
	tenants  store.TenantStore
	verifier *auth.Verifier
	log      *zerolog.Logger
}

// NewWSHandler builds the customer-facing WebSocket handler.
func NewWSHandler(hub *core.Hub, tenants store.TenantStore, verifier *auth.Verifier, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, tenants: tenants, verifier: verifier, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	tenantID := r.URL.Query().Get("tenant")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// Tenant id is mandatory and not recoverable.
	if tenantID == "" {
		conn.Close(websocket.StatusPolicyViolation, "tenant is required")
		return
	}

	tenant, err := h.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(ctx, conn, "unknown_tenant", "unknown tenant id")
			conn.Close(websocket.StatusPolicyViolation, "unknown tenant")
			return
		}
		h.log.Error().Err(err).Str("tenant", tenantID).Msg("load tenant")
		conn.Close(websocket.StatusInternalError, "internal error")
		return
	}

	hello, err := readHello(ctx, conn)
	if err != nil {
		h.log.Warn().Err(err).Str("tenant", tenantID).Msg("customer handshake failed")
		conn.Close(websocket.StatusPolicyViolation, "hello expected")
		return
	}

	identity := h.verifier.Resolve(tenant, auth.Claim{
		PeerID:    hello.PeerID,
		Name:      hello.Name,
		Token:     hello.Token,
		Signature: hello.Signature,
	})

	client := core.NewClient(utils.NewID(), tenantID, identity.PeerID, identity.Name, core.RoleCustomer, identity.Verified)

	if identity.Downgraded {
		if err := wsjson.Write(ctx, conn, proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventGuestIdentity,
			Data:  proto.GuestIdentityData{PeerID: identity.PeerID, Name: identity.Name},
		}); err != nil {
			conn.Close(websocket.StatusInternalError, "write failed")
			return
		}
	}

	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	runConnection(ctx, conn, client, customerInboundToCommand, h.log)
}

// readHello reads the identification frame, bounded by the handshake
// timeout.
func readHello(ctx context.Context, conn *websocket.Conn) (*proto.HelloData, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		return nil, err
	}
	if inbound.Type != proto.InboundTypeHello {
		return nil, errors.New("first frame must be hello")
	}
	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return nil, err
	}
	return &hello, nil
}

func writeError(ctx context.Context, conn *websocket.Conn, code, msg string) {
	_ = wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	})
}

// runConnection drives the read and write loops until either side ends,
// then closes the socket with an appropriate status.
func runConnection(ctx context.Context, conn *websocket.Conn, client *core.Client, mapFn commandMapper, logger *zerolog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- readLoop(ctx, conn, client, mapFn, logger)
	}()
	go func() {
		errCh <- writeLoop(ctx, conn, client, logger)
	}()

	err := <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Str("conn_id", client.ConnID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, mapFn commandMapper, logger *zerolog.Logger) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		cmd, protoErr, err := mapFn(client, inbound)
		if err != nil {
			logger.Warn().Err(err).Str("conn_id", client.ConnID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}
		if cmd != nil {
			select {
			case client.Commands <- cmd:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Error().Err(err).Str("conn_id", client.ConnID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
