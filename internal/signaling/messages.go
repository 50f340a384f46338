package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Inbound event types.
const (
	MessageTypeJoinRoom     = "join-room"
	MessageTypeLeaveRoom    = "leave-room"
	MessageTypeSignal       = "signaling-message"
	MessageTypeOffer        = "offer"
	MessageTypeAnswer       = "answer"
	MessageTypeICECandidate = "ice-candidate"
)

// Outbound event types.
const (
	MessageTypeUserJoined       = "user-joined"
	MessageTypeRoomParticipants = "room-participants"
	MessageTypeUserLeft         = "user-left"
	MessageTypeError            = "error"
)

// Message is one decoded inbound signaling frame.
//
// The routing fields are lifted out of the JSON object for convenience;
// Fields retains the complete object so relayed frames carry every
// caller-supplied payload field through unchanged. The relay kinds (offer,
// answer, ice-candidate, signaling-message) differ only in which fields the
// caller populates, never in how they are routed.
type Message struct {
	Type         string
	RoomID       string
	UserID       string
	TargetUserID string

	Fields map[string]any
}

// IsRelay reports whether the message is a signaling payload to be routed,
// as opposed to a lifecycle event.
func (m Message) IsRelay() bool {
	switch m.Type {
	case MessageTypeSignal, MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate:
		return true
	}
	return false
}

// ParseMessage decodes a single JSON object frame. Unknown fields are kept
// (they are relayed verbatim); trailing data after the object is rejected.
func ParseMessage(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Message{}, fmt.Errorf("invalid signaling frame: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Message{}, fmt.Errorf("unexpected trailing data")
	}

	msg := Message{
		Type:         stringField(fields, "type"),
		RoomID:       stringField(fields, "roomId"),
		UserID:       stringField(fields, "userId"),
		TargetUserID: stringField(fields, "targetUserId"),
		Fields:       fields,
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("signaling frame missing type")
	}
	return msg, nil
}

func stringField(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

type userJoinedEvent struct {
	Type         string `json:"type"`
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type userLeftEvent struct {
	Type         string `json:"type"`
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type roomParticipantsEvent struct {
	Type         string   `json:"type"`
	Participants []string `json:"participants"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
