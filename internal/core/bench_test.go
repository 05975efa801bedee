package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkConversationBroadcast(b *testing.B, consoles int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil, nil)
	go hub.Run(ctx)

	customer := NewClient("sender", "shop1", "u1", "U1", RoleCustomer, true)
	hub.RegisterClient(customer)

	clients := make([]*Client, 0, consoles)
	for i := range consoles {
		c := NewClient(fmt.Sprintf("s%d", i), "shop1", "admin", "Admin", RoleStaff, true)
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoinConversation, PeerID: "u1"}
		clients = append(clients, c)
	}

	// Drain events for all but the first console to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		customer.Commands <- &Command{Kind: CommandSendMessage, Body: "payload"}
		<-target.Events
	}
}

func BenchmarkConversationBroadcast_10(b *testing.B)  { benchmarkConversationBroadcast(b, 10) }
func BenchmarkConversationBroadcast_100(b *testing.B) { benchmarkConversationBroadcast(b, 100) }
func BenchmarkConversationBroadcast_500(b *testing.B) { benchmarkConversationBroadcast(b, 500) }
