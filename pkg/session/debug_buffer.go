package session

import (
	"strings"
	"sync"
)

// LineBreakMarker replaces literal newlines inside debug tokens so the buffer
// stays a single display string. The marker is what the original web client
// fed into its drawer markup.
const LineBreakMarker = "<br />"

// DebugBuffer accumulates diagnostic tokens for the active session into one
// growing string. Tokens are appended, never replaced; a session switch
// resets the buffer.
type DebugBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func NewDebugBuffer() *DebugBuffer {
	return &DebugBuffer{}
}

// Append adds one token, substituting newlines with the line-break marker,
// and returns the full buffer.
func (d *DebugBuffer) Append(token string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.b.WriteString(strings.ReplaceAll(token, "\n", LineBreakMarker))
	return d.b.String()
}

func (d *DebugBuffer) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.b.String()
}

func (d *DebugBuffer) Reset() {
	d.mu.Lock()
	d.b.Reset()
	d.mu.Unlock()
}
