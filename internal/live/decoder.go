package live

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gosuda/prono/internal/domain"
)

// Sentinel errors for rejected frames. Neither is fatal to the connection.
var (
	ErrMalformedFrame = errors.New("live: malformed frame")
	ErrUnknownKind    = errors.New("live: unknown event kind")
)

type wireFrame struct {
	Type      domain.EventKind `json:"type"`
	Sender    string           `json:"sender"`
	Text      *string          `json:"text"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"`
}

// Decode parses one inbound frame. Only connection_established and
// chat_message frames are returned; everything else is rejected with
// ErrMalformedFrame or ErrUnknownKind.
func Decode(raw []byte) (domain.LiveEvent, error) {
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.LiveEvent{}, fmt.Errorf("live.Decode: %w: %w", ErrMalformedFrame, err)
	}

	if !f.Type.Accepted() {
		return domain.LiveEvent{}, fmt.Errorf("live.Decode: %q: %w", f.Type, ErrUnknownKind)
	}

	text := f.Message
	if f.Text != nil {
		text = *f.Text
	}

	return domain.LiveEvent{
		Kind:      f.Type,
		Sender:    f.Sender,
		Text:      text,
		Timestamp: f.Timestamp,
	}, nil
}
