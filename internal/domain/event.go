package domain

import (
	"context"
	"strconv"
)

// EventKind discriminates live-channel frames (the "type" field).
type EventKind string

const (
	EventConnectionEstablished EventKind = "connection_established"
	EventChatMessage           EventKind = "chat_message"
)

// Accepted reports whether frames of this kind belong in the event log.
// The set is closed; anything else is dropped by the decoder.
func (k EventKind) Accepted() bool {
	return k == EventConnectionEstablished || k == EventChatMessage
}

// SystemSender is the sender of server-generated notifications.
const SystemSender = "System"

// LiveEvent is one accepted frame from a project's live channel.
// Fields are kept exactly as received; Timestamp is not parsed.
type LiveEvent struct {
	Kind      EventKind `json:"type"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp string    `json:"timestamp"`
}

func (e LiveEvent) IsSystem() bool {
	return e.Sender == SystemSender
}

// ChatFrame is the only frame a client sends on the live channel.
type ChatFrame struct {
	Type EventKind `json:"type"`
	Text string    `json:"text"`
}

// NewChatFrame builds an outbound chat_message frame.
func NewChatFrame(text string) ChatFrame {
	return ChatFrame{Type: EventChatMessage, Text: text}
}

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// RoomChannel names the fan-out channel carrying a project's live frames.
func RoomChannel(projectID int64) string {
	return "project_chat_" + strconv.FormatInt(projectID, 10)
}

// Broker fans serialized live frames out to every subscriber of a channel,
// across server instances when backed by an external bus.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a message stream and a cleanup func. The stream is
	// closed when ctx ends or the subscription fails.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}
