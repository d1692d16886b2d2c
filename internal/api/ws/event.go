package ws

import (
	"fmt"
	"time"

	"github.com/gosuda/prono/internal/domain"
)

// greeting is sent to each connection right after the upgrade.
type greeting struct {
	Type    domain.EventKind `json:"type"`
	Message string           `json:"message"`
}

func newGreeting(projectID int64) greeting {
	return greeting{
		Type:    domain.EventConnectionEstablished,
		Message: fmt.Sprintf("Connected to project room %d", projectID),
	}
}

// inbound is a frame received from a client. A missing type means chat.
type inbound struct {
	Type domain.EventKind `json:"type"`
	Text string           `json:"text"`
}

func (f inbound) kind() domain.EventKind {
	if f.Type == "" {
		return domain.EventChatMessage
	}
	return f.Type
}

// roomMessage builds the chat frame broadcast to a room.
func roomMessage(sender, text string, now time.Time) domain.LiveEvent {
	return domain.LiveEvent{
		Kind:      domain.EventChatMessage,
		Sender:    sender,
		Text:      text,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// TaskCompletedText is the System notification for a completed task.
func TaskCompletedText(title string) string {
	return fmt.Sprintf("✅ The task '%s' has been completed.", title)
}
