package live

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/prono/internal/domain"
)

const (
	defaultSendBuffer   = 32
	defaultWriteTimeout = 10 * time.Second
	readLimit           = 1 << 20
)

// Sink receives everything that happens on handles opened by a Manager.
// For a given handle, calls come from one goroutine in order:
// Opened (at most once), Frame (zero or more), Closed (exactly once).
type Sink interface {
	Opened(h *Handle)
	Frame(h *Handle, raw []byte)
	Closed(h *Handle, err error)
}

// Manager opens live channels to project rooms.
type Manager struct {
	baseURL      string
	sink         Sink
	dialOpts     *websocket.DialOptions
	writeTimeout time.Duration
}

// NewManager creates a Manager dialing rooms under baseURL
// (e.g. "ws://localhost:8000/ws/projects").
func NewManager(baseURL string, sink Sink, writeTimeout time.Duration) *Manager {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Manager{
		baseURL:      strings.TrimRight(baseURL, "/"),
		sink:         sink,
		dialOpts:     &websocket.DialOptions{},
		writeTimeout: writeTimeout,
	}
}

// ChannelURL returns the room endpoint for a project. The credential travels
// as a query parameter because the handshake cannot carry custom headers.
func ChannelURL(baseURL string, projectID int64, credential string) string {
	return fmt.Sprintf("%s/%d/?token=%s", strings.TrimRight(baseURL, "/"), projectID, url.QueryEscape(credential))
}

// Open starts connecting to the project's room and returns immediately.
// The handle lives until Close is called, the server closes the channel,
// or ctx ends.
func (m *Manager) Open(ctx context.Context, projectID int64, credential string) *Handle {
	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		cancel:    cancel,
		send:      make(chan domain.ChatFrame, defaultSendBuffer),
	}

	go m.run(hctx, h, credential)

	return h
}

// Close releases the handle without waiting for the close handshake.
// It is safe on nil handles, handles still dialing, and closed handles.
func (m *Manager) Close(h *Handle) {
	if h == nil {
		return
	}
	h.close("context switched")
}

func (m *Manager) run(ctx context.Context, h *Handle, credential string) {
	logger := log.With().Str("conn_id", h.ID).Int64("project_id", h.ProjectID).Logger()

	conn, _, err := websocket.Dial(ctx, ChannelURL(m.baseURL, h.ProjectID, credential), m.dialOpts)
	if err != nil {
		h.finish()
		h.cancel()
		if ctx.Err() != nil {
			m.sink.Closed(h, nil)
			return
		}
		logger.Debug().Err(err).Msg("live: dial failed")
		m.sink.Closed(h, fmt.Errorf("live.Manager.run: dial: %w", err))
		return
	}
	conn.SetReadLimit(readLimit)

	if !h.attach(conn) {
		// Closed while dialing.
		_ = conn.CloseNow()
		m.sink.Closed(h, nil)
		return
	}

	logger.Debug().Msg("live: connected")
	m.sink.Opened(h)

	go m.writeLoop(ctx, h, conn)

	for {
		_, data, readErr := conn.Read(ctx)
		if readErr != nil {
			h.finish()
			h.cancel()
			_ = conn.CloseNow()
			logger.Debug().Err(readErr).Msg("live: channel closed")
			m.sink.Closed(h, closeError(ctx, readErr))
			return
		}
		m.sink.Frame(h, data)
	}
}

func (m *Manager) writeLoop(ctx context.Context, h *Handle, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-h.send:
			wctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
			err := wsjson.Write(wctx, conn, frame)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("conn_id", h.ID).Msg("live: write failed")
				return
			}
		}
	}
}

// closeError maps a read error to the error reported through Sink.Closed.
// Normal closures and local cancellation report nil.
func closeError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("live.Manager.run: read: %w", err)
}

// Handle is one live channel. Handles are compared by pointer; a handle that
// has been closed never reopens.
type Handle struct {
	ID        string
	ProjectID int64

	cancel context.CancelFunc
	send   chan domain.ChatFrame

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Send enqueues a chat frame for the writer goroutine. It reports false when
// the channel is not open or the send buffer is full.
func (h *Handle) Send(text string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil || h.closed {
		return false
	}

	select {
	case h.send <- domain.NewChatFrame(text):
		return true
	default:
		return false
	}
}

func (h *Handle) attach(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.conn = conn
	return true
}

// finish marks the handle dead after its channel ended on its own.
func (h *Handle) finish() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}

func (h *Handle) close(reason string) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conn := h.conn
	h.mu.Unlock()

	if conn == nil {
		h.cancel()
		return
	}

	go func() {
		_ = conn.Close(websocket.StatusNormalClosure, reason)
		h.cancel()
	}()
}
