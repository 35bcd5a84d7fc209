package stream

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"backend-voltride/internal/livesync"
)

// Hub fans group frames out to every connected rider. With redis it also
// relays frames between instances and keeps the member snapshot in a hash,
// so riders of one group can land on different instances. Without redis it
// degrades to single-instance in-memory operation.
type Hub struct {
	redis      *redis.Client
	instanceID string
	groups     map[string]map[*Client]struct{}
	members    map[string]map[string]livesync.Member
	mu         sync.RWMutex
}

type Client struct {
	GroupID string
	UserID  string
	Send    chan []byte
}

// relayEnvelope wraps cross-instance payloads so a hub can skip frames it
// published itself; the pattern subscription sees every instance's publishes.
type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:      redisClient,
		instanceID: uuid.NewString(),
		groups:     map[string]map[*Client]struct{}{},
		members:    map[string]map[string]livesync.Member{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(groupID, userID string) *Client {
	client := &Client{
		GroupID: groupID,
		UserID:  userID,
		Send:    make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[groupID] == nil {
		h.groups[groupID] = map[*Client]struct{}{}
	}
	h.groups[groupID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if groupClients, ok := h.groups[client.GroupID]; ok {
		delete(groupClients, client)
		if len(groupClients) == 0 {
			delete(h.groups, client.GroupID)
		}
	}
	close(client.Send)
}

// Broadcast delivers payload to the group's local clients and, when redis is
// wired, to every other instance serving the group.
func (h *Hub) Broadcast(groupID string, payload []byte) {
	h.deliverLocal(groupID, payload)

	if h.redis != nil {
		env, err := json.Marshal(relayEnvelope{Origin: h.instanceID, Payload: payload})
		if err != nil {
			log.Printf("stream: marshal relay envelope: %v", err)
			return
		}
		if err := h.redis.Publish(context.Background(), groupChannel(groupID), env).Err(); err != nil {
			log.Printf("stream: redis publish error: %v", err)
		}
	}
}

func (h *Hub) deliverLocal(groupID string, payload []byte) {
	h.mu.RLock()
	clients := h.groups[groupID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "group:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env relayEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("stream: bad relay payload: %v", err)
			continue
		}
		if env.Origin == h.instanceID {
			continue
		}
		h.deliverLocal(groupIDFromChannel(msg.Channel), env.Payload)
	}
}

// UpsertMember records the rider's latest snapshot entry for the group.
func (h *Hub) UpsertMember(ctx context.Context, groupID string, m livesync.Member) {
	if h.redis == nil {
		h.mu.Lock()
		if h.members[groupID] == nil {
			h.members[groupID] = map[string]livesync.Member{}
		}
		h.members[groupID][m.UserID] = m
		h.mu.Unlock()
		return
	}

	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("stream: marshal member: %v", err)
		return
	}
	if err := h.redis.HSet(ctx, membersKey(groupID), m.UserID, data).Err(); err != nil {
		log.Printf("stream: redis hset error: %v", err)
	}
}

// RemoveMember drops the rider from the group's snapshot.
func (h *Hub) RemoveMember(ctx context.Context, groupID, userID string) {
	if h.redis == nil {
		h.mu.Lock()
		if groupMembers, ok := h.members[groupID]; ok {
			delete(groupMembers, userID)
			if len(groupMembers) == 0 {
				delete(h.members, groupID)
			}
		}
		h.mu.Unlock()
		return
	}

	if err := h.redis.HDel(ctx, membersKey(groupID), userID).Err(); err != nil {
		log.Printf("stream: redis hdel error: %v", err)
	}
}

// MembersSnapshot returns the group's members ordered by user id.
func (h *Hub) MembersSnapshot(ctx context.Context, groupID string) ([]livesync.Member, error) {
	var members []livesync.Member

	if h.redis == nil {
		h.mu.RLock()
		for _, m := range h.members[groupID] {
			members = append(members, m)
		}
		h.mu.RUnlock()
	} else {
		fields, err := h.redis.HGetAll(ctx, membersKey(groupID)).Result()
		if err != nil {
			return nil, err
		}
		for userID, data := range fields {
			var m livesync.Member
			if err := json.Unmarshal([]byte(data), &m); err != nil {
				log.Printf("stream: bad member entry for %s/%s: %v", groupID, userID, err)
				continue
			}
			members = append(members, m)
		}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

// BroadcastMembers pushes the current member snapshot to the whole group.
func (h *Hub) BroadcastMembers(ctx context.Context, groupID string) {
	members, err := h.MembersSnapshot(ctx, groupID)
	if err != nil {
		log.Printf("stream: members snapshot for %s: %v", groupID, err)
		return
	}
	payload, err := json.Marshal(livesync.GroupMemberUpdate{
		Type:    livesync.TypeGroupMemberUpdate,
		GroupID: groupID,
		Members: members,
	})
	if err != nil {
		log.Printf("stream: marshal member update: %v", err)
		return
	}
	h.Broadcast(groupID, payload)
}

func groupChannel(groupID string) string {
	return "group:" + groupID + ":events"
}

func membersKey(groupID string) string {
	return "group:" + groupID + ":members"
}

func groupIDFromChannel(ch string) string {
	// group:{id}:events
	const prefix = "group:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
