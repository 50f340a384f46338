package signaling

import (
	"testing"
)

func TestParseMessage_LiftsRoutingFields(t *testing.T) {
	msg, err := ParseMessage([]byte(
		`{"type":"offer","roomId":"r1","targetUserId":"bob","sdp":"v=0","custom":42}`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	if msg.Type != MessageTypeOffer {
		t.Errorf("Type=%q, want %q", msg.Type, MessageTypeOffer)
	}
	if msg.RoomID != "r1" {
		t.Errorf("RoomID=%q, want r1", msg.RoomID)
	}
	if msg.TargetUserID != "bob" {
		t.Errorf("TargetUserID=%q, want bob", msg.TargetUserID)
	}
	if !msg.IsRelay() {
		t.Errorf("IsRelay()=false, want true")
	}
	// Unknown fields are preserved for pass-through relaying.
	if _, ok := msg.Fields["custom"]; !ok {
		t.Errorf("Fields dropped unknown key custom")
	}
	if _, ok := msg.Fields["sdp"]; !ok {
		t.Errorf("Fields dropped sdp")
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"truncated", `{"type":`},
		{"not an object", `[1,2,3]`},
		{"missing type", `{"roomId":"r1"}`},
		{"non-string type", `{"type":7}`},
		{"trailing data", `{"type":"offer"}{"type":"answer"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseMessage([]byte(tc.data)); err == nil {
				t.Fatalf("ParseMessage(%q) succeeded, want error", tc.data)
			}
		})
	}
}

func TestMessage_IsRelay(t *testing.T) {
	relay := []string{MessageTypeSignal, MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate}
	for _, typ := range relay {
		if !(Message{Type: typ}).IsRelay() {
			t.Errorf("IsRelay(%q)=false, want true", typ)
		}
	}
	for _, typ := range []string{MessageTypeJoinRoom, MessageTypeLeaveRoom, "bogus"} {
		if (Message{Type: typ}).IsRelay() {
			t.Errorf("IsRelay(%q)=true, want false", typ)
		}
	}
}
