package core

import "sync/atomic"

// Client is a connected peer as seen by the core layer. It exists only
// for the transport's lifetime and leaves no durable trace beyond
// messages already persisted.
type Client struct {
	ConnID   string
	TenantID string
	PeerID   string
	Name     string
	Role     Role
	Verified bool

	Commands chan *Command
	Events   chan *Event

	state    atomic.Int32
	channels map[ChannelKey]struct{}
	done     chan struct{}
}

// NewClient constructs a client with initialized channels. Identity is
// resolved by the transport before registration, so the client starts in
// the identified state.
func NewClient(connID, tenantID, peerID, name string, role Role, verified bool) *Client {
	if name == "" {
		name = peerID
	}
	c := &Client{
		ConnID:   connID,
		TenantID: tenantID,
		PeerID:   peerID,
		Name:     name,
		Role:     role,
		Verified: verified,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 32),
		channels: make(map[ChannelKey]struct{}),
		done:     make(chan struct{}),
	}
	c.state.Store(int32(StateIdentified))
	return c
}

// State returns the current session state.
func (c *Client) State() SessionState {
	return SessionState(c.state.Load())
}

func (c *Client) setState(s SessionState) {
	c.state.Store(int32(s))
}

func (c *Client) memberOf(key ChannelKey) bool {
	_, ok := c.channels[key]
	return ok
}
