package livesync

import (
	"encoding/json"
	"fmt"
)

// Message type tags on the group session wire.
const (
	TypeJoinGroup         = "join_group"
	TypeLeaveGroup        = "leave_group"
	TypeLocationUpdate    = "location_update"
	TypeChatMessage       = "chat_message"
	TypeJoined            = "joined"
	TypeGroupMemberUpdate = "group_member_update"
	TypeChatBroadcast     = "chat_broadcast"
	TypeError             = "error"
)

// Member is one rider's live snapshot inside a group session. The server
// sends the full list on every update; receivers replace theirs wholesale.
type Member struct {
	UserID      string  `json:"userId"`
	Nickname    string  `json:"nickname,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	SpeedKmh    float64 `json:"speed"`
	DistanceM   float64 `json:"distance"`
	DurationSec int64   `json:"duration"`
	IsRiding    bool    `json:"isRiding"`
	Timestamp   int64   `json:"timestamp"`
}

// Client-to-server messages.

type JoinGroup struct {
	Type    string `json:"type"`
	GroupID string `json:"groupId"`
	Token   string `json:"token"`
}

type LeaveGroup struct {
	Type    string `json:"type"`
	GroupID string `json:"groupId"`
}

type LocationUpdate struct {
	Type        string  `json:"type"`
	GroupID     string  `json:"groupId"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	SpeedKmh    float64 `json:"speed"`
	DistanceM   float64 `json:"distance"`
	DurationSec int64   `json:"duration"`
	IsRiding    bool    `json:"isRiding"`
	Timestamp   int64   `json:"timestamp"`
}

type ChatMessage struct {
	Type        string `json:"type"`
	GroupID     string `json:"groupId"`
	Message     string `json:"message"`
	MessageType string `json:"messageType"`
}

// Server-to-client messages.

type Joined struct {
	Type    string `json:"type"`
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type GroupMemberUpdate struct {
	Type    string   `json:"type"`
	GroupID string   `json:"groupId"`
	Members []Member `json:"members"`
}

type ChatBroadcast struct {
	Type    string        `json:"type"`
	GroupID string        `json:"groupId"`
	Chat    BroadcastChat `json:"chatMessage"`
}

type BroadcastChat struct {
	UserID      string `json:"userId"`
	Nickname    string `json:"nickname,omitempty"`
	Message     string `json:"message"`
	MessageType string `json:"messageType"`
	Timestamp   int64  `json:"timestamp"`
}

type ServerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ServerMessage is the closed set of inbound frames a client can receive.
// handleInbound switches over it exhaustively; anything outside the set never
// gets past ParseServerMessage.
type ServerMessage interface{ serverMessage() }

func (Joined) serverMessage()            {}
func (GroupMemberUpdate) serverMessage() {}
func (ChatBroadcast) serverMessage()     {}
func (ServerError) serverMessage()       {}

// ClientMessage is the closed set of frames the relay accepts from clients.
type ClientMessage interface{ clientMessage() }

func (JoinGroup) clientMessage()      {}
func (LeaveGroup) clientMessage()     {}
func (LocationUpdate) clientMessage() {}
func (ChatMessage) clientMessage()    {}

// ParseServerMessage decodes one inbound frame by its type tag.
func ParseServerMessage(data []byte) (ServerMessage, error) {
	tag, err := typeTag(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TypeJoined:
		var m Joined
		if err := unmarshalFrame(data, tag, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeGroupMemberUpdate:
		var m GroupMemberUpdate
		if err := unmarshalFrame(data, tag, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeChatBroadcast:
		var m ChatBroadcast
		if err := unmarshalFrame(data, tag, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeError:
		var m ServerError
		if err := unmarshalFrame(data, tag, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown server message type %q", tag)
	}
}

// ParseClientMessage decodes one frame sent by a client.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	tag, err := typeTag(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TypeJoinGroup:
		var m JoinGroup
		if err := unmarshalFrame(data, tag, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeLeaveGroup:
		var m LeaveGroup
		if err := unmarshalFrame(data, tag, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeLocationUpdate:
		var m LocationUpdate
		if err := unmarshalFrame(data, tag, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeChatMessage:
		var m ChatMessage
		if err := unmarshalFrame(data, tag, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown client message type %q", tag)
	}
}

func typeTag(data []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("frame without type tag")
	}
	return env.Type, nil
}

func unmarshalFrame(data []byte, tag string, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s frame: %w", tag, err)
	}
	return nil
}
