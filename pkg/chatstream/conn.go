package chatstream

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TopicForChat computes the in-process bus topic carrying one chat's frames.
func TopicForChat(chatID string) string { return "chat:" + chatID }

// Dialer opens the per-chat websocket channel at /ws/chat/{id}/ under the
// backend base URL.
type Dialer struct {
	baseURL string
}

func NewDialer(baseURL string) (*Dialer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("chatstream: empty base URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "chatstream: parse base URL")
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, errors.Errorf("chatstream: unsupported scheme %q", u.Scheme)
	}
	return &Dialer{baseURL: u.String()}, nil
}

// Dial opens the channel for one chat. The returned Conn is Open; a dial
// aborted by ctx leaves no channel behind.
func (d *Dialer) Dial(ctx context.Context, chatID string) (*Conn, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, errors.New("chatstream: empty chat id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	wsURL := d.baseURL + "/ws/chat/" + url.PathEscape(chatID) + "/"
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "chatstream: dial %s", wsURL)
	}
	connID := uuid.NewString()
	c := &Conn{
		chatID: chatID,
		connID: connID,
		ws:     ws,
		log: log.With().
			Str("component", "chatstream").
			Str("chat_id", chatID).
			Str("conn_id", connID).
			Logger(),
	}
	c.log.Debug().Str("url", wsURL).Msg("ws channel open")
	return c, nil
}

// Conn is one live per-chat channel. At most one Conn should exist per
// controller; teardown on session change is unconditional.
type Conn struct {
	chatID string
	connID string
	ws     *websocket.Conn
	log    zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
	initOnce  sync.Once
}

func (c *Conn) ChatID() string { return c.chatID }

func (c *Conn) closedCh() chan struct{} {
	c.initOnce.Do(func() { c.closed = make(chan struct{}) })
	return c.closed
}

// IsClosed reports whether the channel has been torn down.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.closedCh():
		return true
	default:
		return false
	}
}

// Send writes a user message onto the channel. Callers must ensure the
// channel belongs to the chat the message targets; there is no internal
// queueing, a send on a closed channel errors.
func (c *Conn) Send(text string) error {
	if c == nil || c.ws == nil {
		return errors.New("chatstream: send on nil channel")
	}
	if c.IsClosed() {
		return errors.New("chatstream: send on closed channel")
	}
	data, err := EncodeOutbound(c.chatID, text)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "chatstream: write")
	}
	return nil
}

// Pump reads inbound frames and publishes the raw payloads to the chat's
// topic until the channel closes or ctx is canceled. It blocks; run it on its
// own goroutine. Frames are published in arrival order.
func (c *Conn) Pump(ctx context.Context, pub message.Publisher) {
	if c == nil || c.ws == nil || pub == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	topic := TopicForChat(c.chatID)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.IsClosed() || ctx.Err() != nil {
				c.log.Debug().Msg("ws read loop end")
			} else {
				// Matches the original client: unexpected closure is logged,
				// recovery is left to the caller.
				c.log.Error().Err(err).Msg("chat socket closed unexpectedly")
			}
			return
		}
		msg := message.NewMessage(watermill.NewUUID(), data)
		if err := pub.Publish(topic, msg); err != nil {
			c.log.Warn().Err(err).Msg("publish inbound frame failed")
		}
	}
}

// Close tears the channel down. Safe to call multiple times and from any
// state, including a dial that never completed its handshake exchange.
func (c *Conn) Close() error {
	if c == nil || c.ws == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		close(c.closedCh())
		err = c.ws.Close()
		c.log.Debug().Msg("ws channel closed")
	})
	return err
}
