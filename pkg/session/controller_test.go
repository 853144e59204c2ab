package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	"github.com/kuplace/kupletalk/pkg/api"
	"github.com/kuplace/kupletalk/pkg/chatstream"
)

type fakeAPI struct {
	mu        sync.Mutex
	chats     []api.Chat
	histories map[string][]api.Message
	created   []string
	deleted   []string

	historyGate map[string]chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		histories:   map[string][]api.Message{},
		historyGate: map[string]chan struct{}{},
	}
}

func (f *fakeAPI) ListChats(context.Context) ([]api.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Chat(nil), f.chats...), nil
}

func (f *fakeAPI) CreateChat(_ context.Context, name string) (api.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("chat-%d", len(f.created)+1)
	f.created = append(f.created, id)
	chat := api.Chat{ID: id, CreatedAt: time.Now()}
	f.chats = append(f.chats, chat)
	return chat, nil
}

func (f *fakeAPI) DeleteChat(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, chatID)
	return nil
}

func (f *fakeAPI) FetchMessages(_ context.Context, chatID string) ([]api.Message, error) {
	f.mu.Lock()
	gate := f.historyGate[chatID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Message(nil), f.histories[chatID]...), nil
}

type fakeStream struct {
	chatID string

	mu     sync.Mutex
	pub    message.Publisher
	sent   []string
	closed bool
}

func (s *fakeStream) ChatID() string { return s.chatID }

func (s *fakeStream) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeStream) Pump(ctx context.Context, pub message.Publisher) {
	s.mu.Lock()
	s.pub = pub
	s.mu.Unlock()
	<-ctx.Done()
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) sentMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// inject pushes an inbound frame through the controller's bus the way the
// real websocket pump would.
func (s *fakeStream) inject(t *testing.T, frame map[string]string) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.pub != nil
	}, time.Second, 5*time.Millisecond, "pump never attached")

	payload, err := json.Marshal(frame)
	require.NoError(t, err)
	s.mu.Lock()
	pub := s.pub
	s.mu.Unlock()
	require.NoError(t, pub.Publish(chatstream.TopicForChat(s.chatID), message.NewMessage(watermill.NewUUID(), payload)))
}

type fakeDialer struct {
	mu      sync.Mutex
	streams []*fakeStream
}

func (d *fakeDialer) Dial(_ context.Context, chatID string) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := &fakeStream{chatID: chatID}
	d.streams = append(d.streams, st)
	return st, nil
}

func (d *fakeDialer) dialed() []*fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeStream(nil), d.streams...)
}

func newTestController(t *testing.T, backend *fakeAPI, dialer *fakeDialer, opts ...Option) *Controller {
	t.Helper()
	c, err := NewController(backend, dialer, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestController_AtMostOneLiveChannel(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a"))
	require.NoError(t, c.Select(ctx, "b"))
	require.NoError(t, c.Select(ctx, "c"))
	require.NoError(t, c.Select(ctx, "c")) // same id is a no-op

	streams := dialer.dialed()
	require.Len(t, streams, 3)
	require.True(t, streams[0].isClosed())
	require.True(t, streams[1].isClosed())
	require.False(t, streams[2].isClosed())
	require.Equal(t, "c", c.ActiveID())
}

func TestController_InboundFramesAppendInArrivalOrder(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a"))
	st := dialer.dialed()[0]

	const n = 5
	for i := 0; i < n; i++ {
		st.inject(t, map[string]string{"type": "answer", "message": fmt.Sprintf("reply-%d", i)})
	}

	require.Eventually(t, func() bool { return c.store.Len() == n }, time.Second, 5*time.Millisecond)
	msgs := c.Messages()
	for i := 0; i < n; i++ {
		require.Equal(t, api.SenderBot, msgs[i].Sender)
		require.Equal(t, fmt.Sprintf("reply-%d", i), msgs[i].Content)
	}
}

func TestController_DebugFramesAccumulate(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a"))
	st := dialer.dialed()[0]

	st.inject(t, map[string]string{"type": "debug", "message": "a"})
	st.inject(t, map[string]string{"type": "debug", "message": "b\n"})
	st.inject(t, map[string]string{"type": "debug", "message": "c"})

	require.Eventually(t, func() bool { return c.DebugText() == "ab<br />c" }, time.Second, 5*time.Millisecond)
	// debug tokens never become messages
	require.Zero(t, c.store.Len())
}

func TestController_SwitchResetsDebugBuffer(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a"))
	dialer.dialed()[0].inject(t, map[string]string{"type": "debug", "message": "leftover"})
	require.Eventually(t, func() bool { return c.DebugText() == "leftover" }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Select(ctx, "b"))
	require.Empty(t, c.DebugText())
}

func TestController_StaleHistoryAndStrayFramesAreDropped(t *testing.T) {
	backend := newFakeAPI()
	backend.histories["b"] = []api.Message{{Sender: api.SenderBot, Content: "b-history"}}
	gate := make(chan struct{})
	backend.historyGate["a"] = gate

	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a")) // history fetch for a blocks on the gate
	require.NoError(t, c.Select(ctx, "b"))

	require.Eventually(t, func() bool {
		msgs := c.Messages()
		return len(msgs) == 1 && msgs[0].Content == "b-history"
	}, time.Second, 5*time.Millisecond)

	// a straggler frame from a's torn-down channel must not reach the store
	oldStream := dialer.dialed()[0]
	oldStream.inject(t, map[string]string{"type": "answer", "message": "a-straggler"})

	// now release a's history response; it targets a superseded session
	close(gate)

	time.Sleep(50 * time.Millisecond)
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "b-history", msgs[0].Content)
}

func TestController_SubmitBlankIsNoop(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, ""))
	require.NoError(t, c.Submit(ctx, "   "))

	require.Empty(t, backend.created)
	require.Empty(t, dialer.dialed())
	require.Zero(t, c.store.Len())
}

func TestController_SubmitAppendsOptimisticallyAndSends(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a"))
	require.NoError(t, c.Submit(ctx, "where is the library?"))

	st := dialer.dialed()[0]
	require.Equal(t, []string{"where is the library?"}, st.sentMessages())
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, api.SenderUser, msgs[0].Sender)
	require.True(t, c.Awaiting())

	st.inject(t, map[string]string{"type": "answer", "message": "2nd floor"})
	require.Eventually(t, func() bool { return !c.Awaiting() }, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, c.store.Len())
}

func TestController_CreateWithSeedSendsExactlyOneFrame(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "hello"))

	require.Equal(t, []string{"chat-1"}, backend.created)
	require.Equal(t, "chat-1", c.ActiveID())

	streams := dialer.dialed()
	require.Len(t, streams, 1)
	require.Equal(t, []string{"hello"}, streams[0].sentMessages())
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].Content)
}

func TestController_DeleteActiveClearsSelectionAndStore(t *testing.T) {
	backend := newFakeAPI()
	backend.histories["a"] = []api.Message{{Sender: api.SenderBot, Content: "old"}}
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a"))
	require.Eventually(t, func() bool { return c.store.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Delete(ctx, "a"))
	require.Equal(t, []string{"a"}, backend.deleted)
	require.Empty(t, c.ActiveID())
	require.Zero(t, c.store.Len())
	require.True(t, dialer.dialed()[0].isClosed())
}

func TestController_DeleteInactiveKeepsSelection(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "b"))
	require.Equal(t, "a", c.ActiveID())
	require.False(t, dialer.dialed()[0].isClosed())
}

func TestController_EventsCarryStateChanges(t *testing.T) {
	backend := newFakeAPI()
	dialer := &fakeDialer{}
	c := newTestController(t, backend, dialer)
	ctx := context.Background()

	require.NoError(t, c.Select(ctx, "a"))

	var sawActive bool
	deadline := time.After(time.Second)
	for !sawActive {
		select {
		case ev := <-c.Events():
			if ac, ok := ev.(ActiveChanged); ok {
				require.Equal(t, "a", ac.ChatID)
				sawActive = true
			}
		case <-deadline:
			t.Fatal("no ActiveChanged event")
		}
	}
}
