package http

import (
	"encoding/json"
	"fmt"

	"github.com/ecomsupport/shopchat-server/internal/core"
	"github.com/ecomsupport/shopchat-server/internal/proto"
	"github.com/ecomsupport/shopchat-server/internal/store"
)

// customerInboundToCommand maps widget frames to core commands. Unknown
// and out-of-place frames are answered with a protocol error instead of
// tearing the connection down.
func customerInboundToCommand(_ *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeMsg:
		var data proto.MsgData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode msg: %w", err)
		}
		return &core.Command{
			Kind:    core.CommandSendMessage,
			Body:    data.Body,
			MsgKind: store.Kind(data.Kind),
		}, nil, nil

	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode typing: %w", err)
		}
		return &core.Command{Kind: core.CommandTyping, IsTyping: data.IsTyping}, nil, nil

	case proto.InboundTypeProfile:
		var data proto.ProfileData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode profile: %w", err)
		}
		return &core.Command{Kind: core.CommandReportProfile, Profile: profileFromData(data)}, nil, nil

	case proto.InboundTypeHello:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "already identified"}, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown frame type: " + inbound.Type}, nil
	}
}

// staffInboundToCommand maps console frames to core commands.
func staffInboundToCommand(_ *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeMsg:
		var data proto.MsgData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode msg: %w", err)
		}
		return &core.Command{
			Kind:    core.CommandSendMessage,
			PeerID:  data.PeerID,
			Body:    data.Body,
			MsgKind: store.Kind(data.Kind),
		}, nil, nil

	case proto.InboundTypeJoin:
		var data proto.JoinData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode join: %w", err)
		}
		return &core.Command{Kind: core.CommandJoinConversation, PeerID: data.PeerID}, nil, nil

	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode typing: %w", err)
		}
		return &core.Command{Kind: core.CommandTyping, PeerID: data.PeerID, IsTyping: data.IsTyping}, nil, nil

	case proto.InboundTypeOnline:
		var data proto.OnlineData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode online: %w", err)
		}
		return &core.Command{Kind: core.CommandSetOnline, Online: data.Online}, nil, nil

	case proto.InboundTypeQuickReplies:
		var data proto.QuickRepliesData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode quick_replies: %w", err)
		}
		return &core.Command{Kind: core.CommandUpdateQuickReplies, Replies: data.Replies}, nil, nil

	case proto.InboundTypePreview:
		var data proto.PreviewData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, fmt.Errorf("decode preview: %w", err)
		}
		return &core.Command{Kind: core.CommandFetchPreview, URL: data.URL}, nil, nil

	case proto.InboundTypeLogin:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "already logged in"}, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown frame type: " + inbound.Type}, nil
	}
}

// outboundFromEvent translates a core event into its wire form.
func outboundFromEvent(ev *core.Event) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent}

	switch ev.Kind {
	case core.EventHistory:
		msgs := make([]proto.EventMessageData, 0, len(ev.Messages))
		for _, m := range ev.Messages {
			msgs = append(msgs, messageData(m))
		}
		out.Event = proto.EventHistory
		out.Data = proto.EventHistoryData{PeerID: ev.PeerID, Messages: msgs}

	case core.EventMessage:
		out.Event = proto.EventMessage
		out.Data = messageData(ev.Message)

	case core.EventConversation:
		out.Event = proto.EventConversation
		out.Data = proto.EventConversationData{Message: messageData(ev.Message), Unread: ev.Unread}

	case core.EventTyping:
		out.Event = proto.EventTyping
		out.Data = proto.EventTypingData{PeerID: ev.PeerID, From: ev.From, IsTyping: ev.IsTyping}

	case core.EventReadReceipt:
		out.Event = proto.EventReadReceipt
		out.Data = proto.EventReadReceiptData{PeerID: ev.PeerID, Unread: ev.Unread}

	case core.EventStatus:
		out.Event = proto.EventStatus
		out.Data = proto.EventStatusData{Online: ev.Online}

	case core.EventRoster:
		out.Event = proto.EventRoster
		out.Data = rosterData(ev.Roster)

	case core.EventQuickReplies:
		out.Event = proto.EventQuickReplies
		out.Data = proto.QuickRepliesData{Replies: ev.Replies}

	case core.EventProfile:
		out.Event = proto.EventProfile
		out.Data = proto.EventProfileData{PeerID: ev.Profile.PeerID, Profile: profileData(ev.Profile)}

	case core.EventPreview:
		out.Event = proto.EventPreview
		if ev.Error != nil {
			out.Error = &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message}
			break
		}
		out.Data = proto.EventPreviewData{
			URL:   ev.Preview.URL,
			Title: ev.Preview.Title,
			Image: ev.Preview.Image,
			Price: ev.Preview.Price,
		}

	case core.EventError:
		out.Type = proto.OutboundTypeError
		out.Error = &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message}
	}

	return out
}

func messageData(m *store.Message) proto.EventMessageData {
	return proto.EventMessageData{
		ID:     m.ID,
		PeerID: m.PeerID,
		Author: m.Author,
		Body:   m.Body,
		Kind:   string(m.Kind),
		Sender: string(m.Sender),
		Read:   m.Read,
		TS:     m.CreatedAt.UnixMilli(),
	}
}

func rosterData(r *core.Roster) proto.EventRosterData {
	data := proto.EventRosterData{
		TenantName:   r.TenantName,
		Online:       r.Online,
		Peers:        make([]proto.RosterPeer, 0, len(r.Peers)),
		Unread:       r.Unread,
		Profiles:     make(map[string]proto.ProfileData, len(r.Profiles)),
		QuickReplies: r.QuickReplies,
	}
	for _, p := range r.Peers {
		data.Peers = append(data.Peers, proto.RosterPeer{
			PeerID:   p.ID,
			Name:     p.Name,
			LastSeen: p.LastSeen.UnixMilli(),
		})
	}
	for _, p := range r.Profiles {
		data.Profiles[p.PeerID] = profileData(p)
	}
	return data
}

func profileData(p *store.Profile) proto.ProfileData {
	return proto.ProfileData{
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		Tags:          p.Tags,
		LifetimeSpend: p.LifetimeSpend,
		RiskScore:     p.RiskScore,
		AccountStatus: p.AccountStatus,
	}
}

func profileFromData(data proto.ProfileData) *store.Profile {
	return &store.Profile{
		Name:          data.Name,
		Email:         data.Email,
		Phone:         data.Phone,
		Tags:          data.Tags,
		LifetimeSpend: data.LifetimeSpend,
		RiskScore:     data.RiskScore,
		AccountStatus: data.AccountStatus,
	}
}
