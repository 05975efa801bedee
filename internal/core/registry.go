package core

// ChannelKey identifies a logical broadcast channel. An empty PeerID
// denotes the tenant broadcast channel reaching all staff consoles; a
// non-empty PeerID denotes the private channel of one conversation.
type ChannelKey struct {
	TenantID string
	PeerID   string
}

// PrivateChannel keys the broadcast group of one tenant+customer
// conversation.
func PrivateChannel(tenantID, peerID string) ChannelKey {
	return ChannelKey{TenantID: tenantID, PeerID: peerID}
}

// BroadcastChannel keys the shop-wide staff channel of a tenant.
func BroadcastChannel(tenantID string) ChannelKey {
	return ChannelKey{TenantID: tenantID}
}

// Channel groups clients subscribed to the same broadcast group.
type Channel struct {
	Key     ChannelKey
	members map[*Client]struct{}
}

func newChannel(key ChannelKey) *Channel {
	return &Channel{
		Key:     key,
		members: make(map[*Client]struct{}),
	}
}

func (ch *Channel) broadcast(ev *Event, skip *Client) {
	for member := range ch.members {
		if member == skip {
			continue
		}
		deliver(member, ev)
	}
}

// Registry is the arena of channels, keyed by tenant and peer, with
// explicit membership sets. Join is the sole multi-tenancy isolation
// boundary: no event handler does its own tenant check.
//
// Membership is in-process and single-node; a multi-node deployment
// substitutes an external fan-out behind the same contract.
type Registry struct {
	channels map[ChannelKey]*Channel
}

// NewRegistry constructs an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[ChannelKey]*Channel)}
}

// Join subscribes a client to a channel. A key outside the client's own
// tenant is rejected regardless of role.
func (r *Registry) Join(c *Client, key ChannelKey) error {
	if key.TenantID != c.TenantID {
		return ErrTenantMismatch
	}
	ch, ok := r.channels[key]
	if !ok {
		ch = newChannel(key)
		r.channels[key] = ch
	}
	ch.members[c] = struct{}{}
	c.channels[key] = struct{}{}
	return nil
}

// Drop removes a client from every channel it belongs to, deleting
// channels left empty.
func (r *Registry) Drop(c *Client) {
	for key := range c.channels {
		if ch, ok := r.channels[key]; ok {
			delete(ch.members, c)
			if len(ch.members) == 0 {
				delete(r.channels, key)
			}
		}
		delete(c.channels, key)
	}
}

// Broadcast sends an event to all members of a channel. Fire and forget:
// slow consumers are dropped, never waited on.
func (r *Registry) Broadcast(key ChannelKey, ev *Event) {
	if ch, ok := r.channels[key]; ok {
		ch.broadcast(ev, nil)
	}
}

// BroadcastExcept sends an event to all members of a channel except one.
func (r *Registry) BroadcastExcept(key ChannelKey, ev *Event, skip *Client) {
	if ch, ok := r.channels[key]; ok {
		ch.broadcast(ev, skip)
	}
}

// BroadcastTenant sends an event once to every connection currently
// attached to the tenant, across all of its channels.
func (r *Registry) BroadcastTenant(tenantID string, ev *Event) {
	seen := make(map[*Client]struct{})
	for key, ch := range r.channels {
		if key.TenantID != tenantID {
			continue
		}
		for member := range ch.members {
			if _, dup := seen[member]; dup {
				continue
			}
			seen[member] = struct{}{}
			deliver(member, ev)
		}
	}
}

// deliver pushes an event to one client without blocking. Closed
// connections and full buffers are skipped.
func deliver(c *Client, ev *Event) {
	if c.State() == StateClosed {
		return
	}
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
	}
}
