package livesync

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseClientMessageUnion(t *testing.T) {
	cases := []ClientMessage{
		JoinGroup{Type: TypeJoinGroup, GroupID: "g1", Token: "tok"},
		LeaveGroup{Type: TypeLeaveGroup, GroupID: "g1"},
		LocationUpdate{
			Type: TypeLocationUpdate, GroupID: "g1",
			Latitude: -6.2, Longitude: 106.8,
			SpeedKmh: 18.5, DistanceM: 1200, DurationSec: 300,
			IsRiding: true, Timestamp: 1700000000000,
		},
		ChatMessage{Type: TypeChatMessage, GroupID: "g1", Message: "on my way", MessageType: "text"},
	}
	for _, in := range cases {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal %T: %v", in, err)
		}
		out, err := ParseClientMessage(data)
		if err != nil {
			t.Fatalf("parse %T: %v", in, err)
		}
		if out != in {
			t.Fatalf("round trip %T: got %+v want %+v", in, out, in)
		}
	}
}

func TestParseServerMessageUnion(t *testing.T) {
	cases := []ServerMessage{
		Joined{Type: TypeJoined, GroupID: "g1", UserID: "u1"},
		ChatBroadcast{
			Type: TypeChatBroadcast, GroupID: "g1",
			Chat: BroadcastChat{UserID: "u2", Nickname: "dita", Message: "hi", MessageType: "text", Timestamp: 99},
		},
		ServerError{Type: TypeError, Message: "group not found"},
	}
	for _, in := range cases {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal %T: %v", in, err)
		}
		out, err := ParseServerMessage(data)
		if err != nil {
			t.Fatalf("parse %T: %v", in, err)
		}
		if out != in {
			t.Fatalf("round trip %T: got %+v want %+v", in, out, in)
		}
	}
}

func TestParseMemberUpdateKeepsOrder(t *testing.T) {
	in := GroupMemberUpdate{
		Type:    TypeGroupMemberUpdate,
		GroupID: "g1",
		Members: []Member{
			{UserID: "a", Latitude: 1, Longitude: 2, SpeedKmh: 12, IsRiding: true, Timestamp: 10},
			{UserID: "b", Nickname: "bo", DistanceM: 500, DurationSec: 60, Timestamp: 11},
		},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := ParseServerMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	upd, ok := out.(GroupMemberUpdate)
	if !ok {
		t.Fatalf("wrong type %T", out)
	}
	if len(upd.Members) != 2 || upd.Members[0].UserID != "a" || upd.Members[1].Nickname != "bo" {
		t.Fatalf("members mangled: %+v", upd.Members)
	}
}

func TestWireFieldNames(t *testing.T) {
	data, err := json.Marshal(LocationUpdate{
		Type: TypeLocationUpdate, GroupID: "g", IsRiding: true, SpeedKmh: 5,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, key := range []string{`"type"`, `"groupId"`, `"isRiding"`, `"speed"`, `"latitude"`, `"timestamp"`} {
		if !strings.Contains(s, key) {
			t.Errorf("frame missing %s: %s", key, s)
		}
	}
	if strings.Contains(s, `"GroupID"`) || strings.Contains(s, `"group_id"`) {
		t.Errorf("frame leaked non-wire casing: %s", s)
	}
}

func TestParseRejectsBadFrames(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "##"},
		{"no type tag", `{"groupId":"g"}`},
		{"empty type", `{"type":""}`},
		{"unknown type", `{"type":"teleport"}`},
	}
	for _, tc := range cases {
		if _, err := ParseServerMessage([]byte(tc.data)); err == nil {
			t.Errorf("%s: server parse accepted %q", tc.name, tc.data)
		}
		if _, err := ParseClientMessage([]byte(tc.data)); err == nil {
			t.Errorf("%s: client parse accepted %q", tc.name, tc.data)
		}
	}
}

func TestParseDirectionSeparation(t *testing.T) {
	// join_group is client vocabulary; the server parser must refuse it.
	if _, err := ParseServerMessage([]byte(`{"type":"join_group","groupId":"g"}`)); err == nil {
		t.Fatal("server parser accepted a client frame")
	}
	if _, err := ParseClientMessage([]byte(`{"type":"joined","groupId":"g"}`)); err == nil {
		t.Fatal("client parser accepted a server frame")
	}
}
