package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ecomsupport/shopchat-server/internal/preview"
	"github.com/ecomsupport/shopchat-server/internal/store"
)

// Hub owns the channel registry and processes every connection's
// commands on a single run loop. Serializing persistence and fan-out
// here is what keeps per-channel delivery order equal to persistence
// order; only the preview fetch leaves the loop, on its own goroutine.
type Hub struct {
	registry *Registry
	store    store.Store
	preview  preview.Fetcher
	log      zerolog.Logger
	inbox    chan inboxItem
}

type inboxItem struct {
	client     *Client
	cmd        *Command
	register   bool
	unregister bool
}

// NewHub creates a hub. Store and preview fetcher may be nil in tests;
// persistence and preview commands then degrade gracefully.
func NewHub(st store.Store, pf preview.Fetcher, logger *zerolog.Logger) *Hub {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Hub{
		registry: NewRegistry(),
		store:    st,
		preview:  pf,
		log:      log,
		inbox:    make(chan inboxItem, 256),
	}
}

// Run processes registrations and commands until the context is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-h.inbox:
			switch {
			case item.register:
				h.handleRegister(ctx, item.client)
			case item.unregister:
				h.handleUnregister(item.client)
			case item.cmd != nil:
				h.handleCommand(ctx, item.client, item.cmd)
			}
		}
	}
}

// RegisterClient attaches an identified connection to the hub and starts
// pumping its commands into the run loop.
func (h *Hub) RegisterClient(c *Client) {
	h.inbox <- inboxItem{client: c, register: true}
	go h.pump(c)
}

// UnregisterClient detaches a connection; it is removed from all
// channels and moved to the closed state.
func (h *Hub) UnregisterClient(c *Client) {
	h.inbox <- inboxItem{client: c, unregister: true}
}

func (h *Hub) pump(c *Client) {
	for {
		select {
		case <-c.done:
			return
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.inbox <- inboxItem{client: c, cmd: cmd}:
			case <-c.done:
				return
			}
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	switch c.Role {
	case RoleStaff:
		if err := h.registry.Join(c, BroadcastChannel(c.TenantID)); err != nil {
			h.fail(c, ErrCodeTenantMismatch, err.Error())
			return
		}
		h.sendRoster(ctx, c)
	default:
		if err := h.registry.Join(c, PrivateChannel(c.TenantID, c.PeerID)); err != nil {
			h.fail(c, ErrCodeTenantMismatch, err.Error())
			return
		}
		h.sendInitialState(ctx, c)
	}

	c.setState(StateJoined)
	c.setState(StateActive)
	h.log.Debug().
		Str("conn_id", c.ConnID).
		Str("tenant", c.TenantID).
		Str("peer", c.PeerID).
		Str("role", string(c.Role)).
		Msg("client joined")
}

// sendInitialState delivers history and the tenant's online flag so a
// newly connected widget can render without a round trip.
func (h *Hub) sendInitialState(ctx context.Context, c *Client) {
	if h.store == nil {
		return
	}

	msgs, err := h.store.ListMessages(ctx, c.TenantID, c.PeerID)
	if err != nil {
		h.log.Error().Err(err).Str("tenant", c.TenantID).Str("peer", c.PeerID).Msg("load history")
		h.fail(c, ErrCodePersistFailed, "could not load history")
	} else {
		deliver(c, &Event{Kind: EventHistory, PeerID: c.PeerID, Messages: msgs})
	}

	tenant, err := h.store.GetTenant(ctx, c.TenantID)
	if err != nil {
		h.log.Error().Err(err).Str("tenant", c.TenantID).Msg("load tenant")
		return
	}
	deliver(c, &Event{Kind: EventStatus, Online: tenant.Online})
}

// sendRoster delivers the full console state to a staff connection:
// known peers, unread counts, CRM snapshots, and tenant settings.
func (h *Hub) sendRoster(ctx context.Context, c *Client) {
	if h.store == nil {
		return
	}

	roster := &Roster{Unread: map[string]int{}}

	tenant, err := h.store.GetTenant(ctx, c.TenantID)
	if err != nil {
		h.log.Error().Err(err).Str("tenant", c.TenantID).Msg("load tenant for roster")
		h.fail(c, ErrCodePersistFailed, "could not load console state")
		return
	}
	roster.TenantName = tenant.Name
	roster.Online = tenant.Online
	roster.QuickReplies = tenant.QuickReplies

	if roster.Peers, err = h.store.ListPeers(ctx, c.TenantID); err != nil {
		h.log.Error().Err(err).Str("tenant", c.TenantID).Msg("load peers")
		h.fail(c, ErrCodePersistFailed, "could not load console state")
		return
	}
	if roster.Unread, err = h.store.UnreadCounts(ctx, c.TenantID); err != nil {
		h.log.Error().Err(err).Str("tenant", c.TenantID).Msg("load unread counts")
		h.fail(c, ErrCodePersistFailed, "could not load console state")
		return
	}
	if roster.Profiles, err = h.store.ListProfiles(ctx, c.TenantID); err != nil {
		h.log.Error().Err(err).Str("tenant", c.TenantID).Msg("load profiles")
		h.fail(c, ErrCodePersistFailed, "could not load console state")
		return
	}

	deliver(c, &Event{Kind: EventRoster, Roster: roster})
}

func (h *Hub) handleUnregister(c *Client) {
	if c.State() == StateClosed {
		return
	}
	h.registry.Drop(c)
	c.setState(StateClosed)
	close(c.done)
	h.log.Debug().Str("conn_id", c.ConnID).Str("tenant", c.TenantID).Msg("client closed")
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	if c.State() == StateClosed {
		return
	}

	switch cmd.Kind {
	case CommandSendMessage:
		h.handleSendMessage(ctx, c, cmd)
	case CommandJoinConversation:
		h.handleJoinConversation(ctx, c, cmd)
	case CommandTyping:
		h.handleTyping(c, cmd)
	case CommandSetOnline:
		h.handleSetOnline(ctx, c, cmd)
	case CommandUpdateQuickReplies:
		h.handleUpdateQuickReplies(ctx, c, cmd)
	case CommandFetchPreview:
		h.handleFetchPreview(c, cmd)
	case CommandReportProfile:
		h.handleReportProfile(ctx, c, cmd)
	default:
		h.fail(c, ErrCodeBadRequest, "unknown command")
	}
}

// handleSendMessage persists a message and fans it out: to the private
// channel always, and for customer messages also as a summary on the
// tenant broadcast channel. Persistence failure aborts delivery and is
// reported to the sender only.
func (h *Hub) handleSendMessage(ctx context.Context, c *Client, cmd *Command) {
	target := c.PeerID
	sender := store.SenderCustomer
	if c.Role == RoleStaff {
		if cmd.PeerID == "" {
			h.fail(c, ErrCodeBadRequest, "peer_id is required")
			return
		}
		target = cmd.PeerID
		sender = store.SenderStaff
	}
	if cmd.Body == "" {
		h.fail(c, ErrCodeBadRequest, "body is required")
		return
	}
	kind := cmd.MsgKind
	if kind == "" {
		kind = store.KindText
	}

	msg := &store.Message{
		TenantID: c.TenantID,
		PeerID:   target,
		Author:   c.Name,
		Body:     cmd.Body,
		Kind:     kind,
		Sender:   sender,
		// Staff messages are outside the unread-count mechanism.
		Read: sender == store.SenderStaff,
	}

	if h.store != nil {
		if err := h.store.SaveMessage(ctx, msg); err != nil {
			h.log.Error().Err(err).Str("tenant", c.TenantID).Str("peer", target).Msg("persist message")
			h.fail(c, ErrCodePersistFailed, "message was not delivered")
			return
		}
	}

	key := PrivateChannel(c.TenantID, target)
	h.registry.Broadcast(key, &Event{Kind: EventMessage, PeerID: target, Message: msg})
	if c.Role == RoleStaff && !c.memberOf(key) {
		// Echo to a staff console replying without having joined the
		// conversation.
		deliver(c, &Event{Kind: EventMessage, PeerID: target, Message: msg})
	}

	if sender == store.SenderCustomer {
		unread := 0
		if h.store != nil {
			n, err := h.store.CountUnread(ctx, c.TenantID, target)
			if err != nil {
				h.log.Warn().Err(err).Str("tenant", c.TenantID).Str("peer", target).Msg("count unread")
			} else {
				unread = n
			}
		}
		h.registry.Broadcast(BroadcastChannel(c.TenantID), &Event{
			Kind:    EventConversation,
			PeerID:  target,
			Message: msg,
			Unread:  unread,
		})
	}
}

// handleJoinConversation subscribes a staff console to one private
// channel, resets the conversation's unread count in a single bulk
// update, and notifies both the console and the customer's channel.
func (h *Hub) handleJoinConversation(ctx context.Context, c *Client, cmd *Command) {
	if c.Role != RoleStaff {
		h.fail(c, ErrCodeUnauthorized, "staff only")
		return
	}
	if cmd.PeerID == "" {
		h.fail(c, ErrCodeBadRequest, "peer_id is required")
		return
	}

	key := PrivateChannel(c.TenantID, cmd.PeerID)
	if err := h.registry.Join(c, key); err != nil {
		h.fail(c, ErrCodeTenantMismatch, err.Error())
		return
	}

	if h.store == nil {
		return
	}

	flipped, err := h.store.MarkConversationRead(ctx, c.TenantID, cmd.PeerID)
	if err != nil {
		h.log.Error().Err(err).Str("tenant", c.TenantID).Str("peer", cmd.PeerID).Msg("mark conversation read")
		h.fail(c, ErrCodePersistFailed, "could not open conversation")
		return
	}

	msgs, err := h.store.ListMessages(ctx, c.TenantID, cmd.PeerID)
	if err != nil {
		h.log.Error().Err(err).Str("tenant", c.TenantID).Str("peer", cmd.PeerID).Msg("load history")
		h.fail(c, ErrCodePersistFailed, "could not load history")
		return
	}
	deliver(c, &Event{Kind: EventHistory, PeerID: cmd.PeerID, Messages: msgs})

	// Confirm the reset to the requester and, if anything changed, let
	// the customer's channel move its delivered labels to read.
	deliver(c, &Event{Kind: EventReadReceipt, PeerID: cmd.PeerID, Unread: 0})
	if flipped > 0 {
		h.registry.BroadcastExcept(key, &Event{Kind: EventReadReceipt, PeerID: cmd.PeerID, Unread: 0}, c)
	}
}

// handleTyping relays an ephemeral typing indicator to the other members
// of the conversation. Nothing is persisted.
func (h *Hub) handleTyping(c *Client, cmd *Command) {
	target := c.PeerID
	if c.Role == RoleStaff {
		if cmd.PeerID == "" {
			h.fail(c, ErrCodeBadRequest, "peer_id is required")
			return
		}
		target = cmd.PeerID
	}

	if cmd.IsTyping {
		c.setState(StateTyping)
	} else {
		c.setState(StateActive)
	}

	h.registry.BroadcastExcept(PrivateChannel(c.TenantID, target), &Event{
		Kind:     EventTyping,
		PeerID:   target,
		From:     c.PeerID,
		IsTyping: cmd.IsTyping,
	}, c)
}

// handleSetOnline flips the tenant flag and tells every connection of
// the tenant, staff and customers alike.
func (h *Hub) handleSetOnline(ctx context.Context, c *Client, cmd *Command) {
	if c.Role != RoleStaff {
		h.fail(c, ErrCodeUnauthorized, "staff only")
		return
	}
	if h.store != nil {
		if err := h.store.SetTenantOnline(ctx, c.TenantID, cmd.Online); err != nil {
			h.log.Error().Err(err).Str("tenant", c.TenantID).Msg("set tenant online")
			h.fail(c, ErrCodePersistFailed, "could not update status")
			return
		}
	}
	h.registry.BroadcastTenant(c.TenantID, &Event{Kind: EventStatus, Online: cmd.Online})
}

func (h *Hub) handleUpdateQuickReplies(ctx context.Context, c *Client, cmd *Command) {
	if c.Role != RoleStaff {
		h.fail(c, ErrCodeUnauthorized, "staff only")
		return
	}
	if h.store != nil {
		if err := h.store.UpdateQuickReplies(ctx, c.TenantID, cmd.Replies); err != nil {
			h.log.Error().Err(err).Str("tenant", c.TenantID).Msg("update quick replies")
			h.fail(c, ErrCodePersistFailed, "could not update quick replies")
			return
		}
	}
	h.registry.Broadcast(BroadcastChannel(c.TenantID), &Event{Kind: EventQuickReplies, Replies: cmd.Replies})
}

// handleFetchPreview runs the bounded external fetch on its own
// goroutine so a slow product page never stalls the run loop.
func (h *Hub) handleFetchPreview(c *Client, cmd *Command) {
	if c.Role != RoleStaff {
		h.fail(c, ErrCodeUnauthorized, "staff only")
		return
	}
	if h.preview == nil {
		h.fail(c, ErrCodePreviewUnavailable, "preview fetch is not configured")
		return
	}
	if cmd.URL == "" {
		h.fail(c, ErrCodeBadRequest, "url is required")
		return
	}

	go func(url string) {
		p, err := h.preview.Fetch(context.Background(), url)
		if err != nil {
			deliver(c, &Event{Kind: EventPreview, Error: previewError(err)})
			return
		}
		deliver(c, &Event{Kind: EventPreview, Preview: p})
	}(cmd.URL)
}

func (h *Hub) handleReportProfile(ctx context.Context, c *Client, cmd *Command) {
	if c.Role != RoleCustomer {
		h.fail(c, ErrCodeUnauthorized, "customer only")
		return
	}
	if cmd.Profile == nil {
		h.fail(c, ErrCodeBadRequest, "profile is required")
		return
	}

	// The snapshot is keyed by the connection's own identity, whatever
	// the payload claims.
	profile := *cmd.Profile
	profile.TenantID = c.TenantID
	profile.PeerID = c.PeerID

	if h.store != nil {
		if err := h.store.UpsertProfile(ctx, &profile); err != nil {
			h.log.Error().Err(err).Str("tenant", c.TenantID).Str("peer", c.PeerID).Msg("upsert profile")
			h.fail(c, ErrCodePersistFailed, "could not store profile")
			return
		}
	}
	h.registry.Broadcast(BroadcastChannel(c.TenantID), &Event{Kind: EventProfile, Profile: &profile})
}

func (h *Hub) fail(c *Client, code, msg string) {
	deliver(c, &Event{Kind: EventError, Error: coreError(code, msg)})
}

func previewError(err error) *CoreError {
	code := ErrCodePreviewParse
	switch {
	case errors.Is(err, preview.ErrTimeout):
		code = ErrCodePreviewTimeout
	case errors.Is(err, preview.ErrBlocked):
		code = ErrCodePreviewBlocked
	}
	return coreError(code, err.Error())
}
