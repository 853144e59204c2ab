package session

import "github.com/kuplace/kupletalk/pkg/api"

// Event is a state-change notification for the rendering layer. The
// controller publishes events; it never calls back into the UI.
type Event interface {
	eventName() string
}

// ActiveChanged fires when the active session reference changes, including to
// the empty id (no selection).
type ActiveChanged struct {
	ChatID string
}

// ChatCreated fires after the backend provisioned a new session.
type ChatCreated struct {
	Chat api.Chat
}

// ChatDeleted fires after a session was removed on the backend.
type ChatDeleted struct {
	ChatID string
}

// HistoryReplaced fires when the message store contents were swapped
// wholesale, either cleared on switch or filled by a history fetch.
type HistoryReplaced struct {
	Messages []api.Message
}

// MessageAppended fires for every optimistic user append and every finalized
// bot reply.
type MessageAppended struct {
	Message api.Message
}

// DebugAppended fires for every accumulated debug token.
type DebugAppended struct {
	Chunk  string
	Buffer string
}

// AwaitingChanged tracks the "bot is typing" flag.
type AwaitingChanged struct {
	Awaiting bool
}

// Failure surfaces REST or channel errors that the original client swallowed.
type Failure struct {
	Op  string
	Err error
}

func (ActiveChanged) eventName() string   { return "active_changed" }
func (ChatCreated) eventName() string     { return "chat_created" }
func (ChatDeleted) eventName() string     { return "chat_deleted" }
func (HistoryReplaced) eventName() string { return "history_replaced" }
func (MessageAppended) eventName() string { return "message_appended" }
func (DebugAppended) eventName() string   { return "debug_appended" }
func (AwaitingChanged) eventName() string { return "awaiting_changed" }
func (Failure) eventName() string         { return "failure" }
