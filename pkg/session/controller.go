package session

import (
	"context"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/kuplace/kupletalk/pkg/api"
	"github.com/kuplace/kupletalk/pkg/chatstream"
)

// API is the slice of the backend REST surface the controller needs.
type API interface {
	ListChats(ctx context.Context) ([]api.Chat, error)
	CreateChat(ctx context.Context, name string) (api.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	FetchMessages(ctx context.Context, chatID string) ([]api.Message, error)
}

// Stream is one live per-chat channel.
type Stream interface {
	ChatID() string
	Send(text string) error
	Pump(ctx context.Context, pub message.Publisher)
	Close() error
}

// Dialer opens the channel for a chat.
type Dialer interface {
	Dial(ctx context.Context, chatID string) (Stream, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, chatID string) (Stream, error)

func (f DialerFunc) Dial(ctx context.Context, chatID string) (Stream, error) { return f(ctx, chatID) }

// Recorder archives messages as they are displayed. Optional.
type Recorder interface {
	Record(ctx context.Context, chatID string, sender api.Sender, content string) error
}

// Controller owns the active-session reference, the message store, the debug
// buffer and the live channel. All mutation is serialized on one mutex, the
// way the original client's event loop serialized it. Every async result is
// tagged with the generation it was issued for and dropped if the controller
// has moved on, so stragglers from a superseded session can never leak into
// the new one.
type Controller struct {
	api    API
	dialer Dialer
	rec    Recorder
	bus    *gochannel.GoChannel
	store  *MessageStore
	debug  *DebugBuffer

	mu         sync.Mutex
	activeID   string
	gen        uint64
	stream     Stream
	streamStop context.CancelFunc
	awaiting   bool

	evMu     sync.Mutex
	evClosed bool
	events   chan Event
}

type Option func(*Controller)

func WithRecorder(rec Recorder) Option {
	return func(c *Controller) { c.rec = rec }
}

func WithEventBuffer(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.events = make(chan Event, n)
		}
	}
}

func NewController(apiClient API, dialer Dialer, opts ...Option) (*Controller, error) {
	if apiClient == nil {
		return nil, errors.New("session: api client is nil")
	}
	if dialer == nil {
		return nil, errors.New("session: dialer is nil")
	}
	c := &Controller{
		api:    apiClient,
		dialer: dialer,
		bus:    gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{}),
		store:  NewMessageStore(),
		debug:  NewDebugBuffer(),
		events: make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Events is the notification channel the UI drains. Closed by Close.
func (c *Controller) Events() <-chan Event { return c.events }

func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

func (c *Controller) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

func (c *Controller) Messages() []api.Message { return c.store.Messages() }

func (c *Controller) DebugText() string { return c.debug.String() }

// ListChats is a passthrough for the sidebar; display order is newest first.
func (c *Controller) ListChats(ctx context.Context) ([]api.Chat, error) {
	return c.api.ListChats(ctx)
}

// Select switches the active session. Same-id selects are no-ops. Selecting
// the empty id clears the store and leaves no channel open. Otherwise the old
// channel is torn down unconditionally, a new one is opened, and the history
// fetch runs asynchronously; the store may render empty until it resolves.
func (c *Controller) Select(ctx context.Context, chatID string) error {
	chatID = strings.TrimSpace(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if chatID == c.activeID {
		return nil
	}
	c.gen++
	c.teardownLocked()
	c.debug.Reset()
	c.setAwaitingLocked(false)
	c.activeID = chatID
	c.store.Clear()
	c.emit(ActiveChanged{ChatID: chatID})
	c.emit(HistoryReplaced{Messages: nil})
	if chatID == "" {
		return nil
	}
	if err := c.openStreamLocked(ctx, chatID); err != nil {
		c.emit(Failure{Op: "connect", Err: err})
		return err
	}
	go c.loadHistory(ctx, chatID, c.gen)
	return nil
}

// Create provisions a new session, selects it, and — once the channel is
// open — sends the optional seed message. The original client waited a fixed
// 500ms after creation before sending; selecting already blocks until the
// channel handshake completes, so the seed goes out without a timing
// assumption.
func (c *Controller) Create(ctx context.Context, seed string) (api.Chat, error) {
	chat, err := c.api.CreateChat(ctx, api.DefaultChatName)
	if err != nil {
		c.emit(Failure{Op: "create", Err: err})
		return api.Chat{}, err
	}
	c.emit(ChatCreated{Chat: chat})
	if err := c.Select(ctx, chat.ID); err != nil {
		return chat, err
	}
	if strings.TrimSpace(seed) == "" {
		return chat, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID != chat.ID {
		// someone switched away between creation and the seed send
		return chat, nil
	}
	return chat, c.submitLocked(seed)
}

// Delete removes a session. Deleting the active one clears the selection and
// empties the store.
func (c *Controller) Delete(ctx context.Context, chatID string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return errors.New("session: empty chat id")
	}
	if err := c.api.DeleteChat(ctx, chatID); err != nil {
		c.emit(Failure{Op: "delete", Err: err})
		return err
	}
	c.emit(ChatDeleted{ChatID: chatID})
	c.mu.Lock()
	wasActive := chatID == c.activeID
	c.mu.Unlock()
	if wasActive {
		return c.Select(ctx, "")
	}
	return nil
}

// Submit relays one typed message. Blank input is a no-op. Without an active
// session it delegates to Create with the text as seed message.
func (c *Controller) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	c.mu.Lock()
	if c.activeID == "" {
		c.mu.Unlock()
		_, err := c.Create(ctx, text)
		return err
	}
	defer c.mu.Unlock()
	return c.submitLocked(text)
}

func (c *Controller) submitLocked(text string) error {
	if c.stream == nil || c.stream.ChatID() != c.activeID {
		err := errors.New("session: no open channel for the active chat")
		c.emit(Failure{Op: "send", Err: err})
		return err
	}
	m := c.store.AppendUser(text)
	c.record(c.activeID, m)
	c.emit(MessageAppended{Message: m})
	c.setAwaitingLocked(true)
	if err := c.stream.Send(text); err != nil {
		c.setAwaitingLocked(false)
		c.emit(Failure{Op: "send", Err: err})
		return err
	}
	return nil
}

// Close tears down the live channel and the event stream.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.teardownLocked()
	c.activeID = ""
	c.mu.Unlock()
	if err := c.bus.Close(); err != nil {
		log.Warn().Err(err).Str("component", "session").Msg("frame bus close failed")
	}
	c.evMu.Lock()
	if !c.evClosed {
		c.evClosed = true
		close(c.events)
	}
	c.evMu.Unlock()
}

func (c *Controller) openStreamLocked(ctx context.Context, chatID string) error {
	st, err := c.dialer.Dial(ctx, chatID)
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	frames, err := c.bus.Subscribe(runCtx, chatstream.TopicForChat(chatID))
	if err != nil {
		cancel()
		_ = st.Close()
		return errors.Wrap(err, "subscribe frames")
	}
	c.stream = st
	c.streamStop = cancel
	gen := c.gen
	go st.Pump(runCtx, c.bus)
	go c.readFrames(frames, chatID, gen)
	log.Debug().Str("component", "session").Str("chat_id", chatID).Uint64("gen", gen).Msg("channel attached")
	return nil
}

func (c *Controller) teardownLocked() {
	if c.streamStop != nil {
		c.streamStop()
		c.streamStop = nil
	}
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
}

func (c *Controller) readFrames(frames <-chan *message.Message, chatID string, gen uint64) {
	for msg := range frames {
		f, err := chatstream.DecodeFrame(msg.Payload)
		msg.Ack()
		if err != nil {
			log.Warn().Err(err).Str("component", "session").Str("chat_id", chatID).Msg("dropping undecodable frame")
			continue
		}
		c.applyFrame(chatID, gen, f)
	}
	log.Debug().Str("component", "session").Str("chat_id", chatID).Uint64("gen", gen).Msg("frame reader stopped")
}

func (c *Controller) applyFrame(chatID string, gen uint64, f chatstream.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || chatID != c.activeID {
		log.Debug().Str("component", "session").Str("chat_id", chatID).Str("kind", f.Kind.String()).Msg("dropping stray frame from superseded channel")
		return
	}
	switch f.Kind {
	case chatstream.FrameDebug:
		full := c.debug.Append(f.Text)
		c.emit(DebugAppended{Chunk: f.Text, Buffer: full})
	default:
		c.setAwaitingLocked(false)
		m := c.store.AppendBot(f.Text)
		c.record(chatID, m)
		c.emit(MessageAppended{Message: m})
	}
}

func (c *Controller) loadHistory(ctx context.Context, chatID string, gen uint64) {
	msgs, err := c.api.FetchMessages(ctx, chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || chatID != c.activeID {
		log.Debug().Str("component", "session").Str("chat_id", chatID).Msg("dropping stale history response")
		return
	}
	if err != nil {
		c.emit(Failure{Op: "history", Err: err})
		return
	}
	c.store.Replace(msgs)
	c.emit(HistoryReplaced{Messages: c.store.Messages()})
}

func (c *Controller) setAwaitingLocked(awaiting bool) {
	if c.awaiting == awaiting {
		return
	}
	c.awaiting = awaiting
	c.emit(AwaitingChanged{Awaiting: awaiting})
}

func (c *Controller) emit(ev Event) {
	c.evMu.Lock()
	defer c.evMu.Unlock()
	if c.evClosed {
		return
	}
	select {
	case c.events <- ev:
	default:
		log.Warn().Str("component", "session").Str("event", ev.eventName()).Msg("event buffer full, dropping")
	}
}

func (c *Controller) record(chatID string, m api.Message) {
	if c.rec == nil {
		return
	}
	if err := c.rec.Record(context.Background(), chatID, m.Sender, m.Content); err != nil {
		log.Warn().Err(err).Str("component", "session").Str("chat_id", chatID).Msg("transcript record failed")
	}
}
