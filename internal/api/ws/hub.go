package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/server/middleware"
)

const readLimit = 64 << 10

// Hub manages project room connections backed by a fan-out broker.
type Hub struct {
	broker  domain.Broker
	origins []string
	now     func() time.Time
}

// NewHub creates a new WebSocket hub. Browser connections are accepted from
// the hosts in originPatterns in addition to same-origin requests.
func NewHub(broker domain.Broker, originPatterns ...string) *Hub {
	return &Hub{broker: broker, origins: originPatterns, now: time.Now}
}

// ServeProject handles a connection to one project's room. Chat frames from
// the client are broadcast to the room under the caller's username; every
// room message is forwarded to the client.
func (h *Hub) ServeProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || projectID <= 0 {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	sender, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		sender = domain.AnonymousUsername
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	channel := domain.RoomChannel(projectID)
	messages, cleanup, err := h.broker.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	connID := uuid.NewString()
	logger := log.With().Str("conn_id", connID).Int64("project_id", projectID).Str("sender", sender).Logger()

	if err := wsjson.Write(ctx, conn, newGreeting(projectID)); err != nil {
		logger.Debug().Err(err).Msg("websocket greeting")
		return
	}
	logger.Info().Msg("websocket connected")

	go h.readLoop(ctx, cancel, conn, channel, sender)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			logger.Info().Msg("websocket disconnected")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				logger.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// readLoop publishes the client's chat frames until the connection fails,
// then cancels the connection context.
func (h *Hub) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, channel, sender string) {
	defer cancel()

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var in inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			// Malformed frames are skipped; the connection stays up.
			log.Debug().Err(err).Str("channel", channel).Msg("websocket: malformed frame")
			continue
		}
		if in.kind() != domain.EventChatMessage {
			continue
		}
		if err := h.publish(ctx, channel, roomMessage(sender, in.Text, h.now())); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("websocket publish")
		}
	}
}

// Notify broadcasts a System message to a project's room.
func (h *Hub) Notify(ctx context.Context, projectID int64, text string) error {
	if err := h.publish(ctx, domain.RoomChannel(projectID), roomMessage(domain.SystemSender, text, h.now())); err != nil {
		return fmt.Errorf("ws.Hub.Notify: %w", err)
	}
	return nil
}

func (h *Hub) publish(ctx context.Context, channel string, ev domain.LiveEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return h.broker.Publish(ctx, channel, payload)
}
