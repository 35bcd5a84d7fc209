package stream

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"

	"backend-voltride/internal/livesync"
)

// Identity is the rider resolved from a verified join credential.
type Identity struct {
	UserID   string
	Nickname string
}

// TokenVerifier resolves the opaque credential carried by join_group.
type TokenVerifier func(token string) (Identity, error)

// RegisterRoutes mounts the group session endpoint. Every connection must
// open with a join_group frame; the credential is verified before the rider
// is admitted, and inbound frames are rate limited per connection.
func RegisterRoutes(r fiber.Router, hub *Hub, verify TokenVerifier, msgRate rate.Limit, msgBurst int) {
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		ident, groupID, ok := handshake(c, verify)
		if !ok {
			return
		}
		serveSession(c, hub, ident, groupID, msgRate, msgBurst)
	}))
}

// handshake reads the opening frame and admits or rejects the rider. A
// rejection carries an error frame and the normal-closure code so well
// behaved clients do not retry.
func handshake(c *websocket.Conn, verify TokenVerifier) (Identity, string, bool) {
	_, data, err := c.ReadMessage()
	if err != nil {
		return Identity{}, "", false
	}

	msg, err := livesync.ParseClientMessage(data)
	if err != nil {
		reject(c, "first frame must be join_group")
		return Identity{}, "", false
	}
	join, ok := msg.(livesync.JoinGroup)
	if !ok {
		reject(c, "first frame must be join_group")
		return Identity{}, "", false
	}
	if join.GroupID == "" {
		reject(c, "groupId required")
		return Identity{}, "", false
	}

	ident, err := verify(join.Token)
	if err != nil {
		reject(c, "join rejected: "+err.Error())
		return Identity{}, "", false
	}
	return ident, join.GroupID, true
}

func serveSession(c *websocket.Conn, hub *Hub, ident Identity, groupID string, msgRate rate.Limit, msgBurst int) {
	ctx := context.Background()
	client := hub.Register(groupID, ident.UserID)

	done := make(chan struct{})
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		close(done)
	}()

	// The ack goes only to this rider; the snapshot goes to the group.
	sendDirect(client, livesync.Joined{Type: livesync.TypeJoined, GroupID: groupID, UserID: ident.UserID})
	hub.UpsertMember(ctx, groupID, livesync.Member{
		UserID:    ident.UserID,
		Nickname:  ident.Nickname,
		Timestamp: time.Now().UnixMilli(),
	})
	hub.BroadcastMembers(ctx, groupID)

	lim := rate.NewLimiter(msgRate, msgBurst)
	left := false
	for !left {
		_, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		if !lim.Allow() {
			log.Printf("stream: rate limit exceeded for %s in %s", ident.UserID, groupID)
			continue
		}
		left = dispatchInbound(ctx, hub, ident, groupID, data)
	}

	// Unregister closes Send, so the writer drains and exits before the
	// close frame below; the connection never has two writers.
	hub.Unregister(client)
	hub.RemoveMember(ctx, groupID, ident.UserID)
	hub.BroadcastMembers(ctx, groupID)
	<-done

	if left {
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "left group"))
	}
}

// dispatchInbound applies one client frame. It reports true when the rider
// asked to leave and the connection should close.
func dispatchInbound(ctx context.Context, hub *Hub, ident Identity, groupID string, data []byte) bool {
	msg, err := livesync.ParseClientMessage(data)
	if err != nil {
		log.Printf("stream: dropping frame from %s: %v", ident.UserID, err)
		return false
	}

	switch m := msg.(type) {
	case livesync.LocationUpdate:
		hub.UpsertMember(ctx, groupID, livesync.Member{
			UserID:      ident.UserID,
			Nickname:    ident.Nickname,
			Latitude:    m.Latitude,
			Longitude:   m.Longitude,
			SpeedKmh:    m.SpeedKmh,
			DistanceM:   m.DistanceM,
			DurationSec: m.DurationSec,
			IsRiding:    m.IsRiding,
			Timestamp:   m.Timestamp,
		})
		hub.BroadcastMembers(ctx, groupID)
	case livesync.ChatMessage:
		payload, err := json.Marshal(livesync.ChatBroadcast{
			Type:    livesync.TypeChatBroadcast,
			GroupID: groupID,
			Chat: livesync.BroadcastChat{
				UserID:      ident.UserID,
				Nickname:    ident.Nickname,
				Message:     m.Message,
				MessageType: m.MessageType,
				Timestamp:   time.Now().UnixMilli(),
			},
		})
		if err != nil {
			log.Printf("stream: marshal chat broadcast: %v", err)
			return false
		}
		hub.Broadcast(groupID, payload)
	case livesync.LeaveGroup:
		return true
	case livesync.JoinGroup:
		log.Printf("stream: %s sent join_group while already joined", ident.UserID)
	default:
		log.Printf("stream: no handler for %T from %s", m, ident.UserID)
	}
	return false
}

func sendDirect(client *Client, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("stream: marshal direct frame: %v", err)
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}

func reject(c *websocket.Conn, reason string) {
	payload, err := json.Marshal(livesync.ServerError{Type: livesync.TypeError, Message: reason})
	if err == nil {
		_ = c.WriteMessage(websocket.TextMessage, payload)
	}
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
}
