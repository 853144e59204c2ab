package chatstream

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// FrameKind discriminates inbound websocket frames at the channel boundary.
type FrameKind int

const (
	// FrameDebug carries an incremental diagnostic token for the debug drawer.
	FrameDebug FrameKind = iota
	// FrameFinal carries a finalized bot reply.
	FrameFinal
)

func (k FrameKind) String() string {
	switch k {
	case FrameDebug:
		return "debug"
	case FrameFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Frame is the decoded form of one inbound websocket message.
type Frame struct {
	Kind FrameKind
	Text string
}

// wireFrame mirrors the backend's inbound JSON. The backend tags debug tokens
// with type "debug" and final answers with type "answer"; any value other
// than "debug" (including absence) means a finalized reply.
type wireFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// outboundFrame is the wire shape of a user message sent to the backend.
type outboundFrame struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

// DecodeFrame parses one inbound websocket payload into its tagged variant.
func DecodeFrame(data []byte) (Frame, error) {
	var wf wireFrame
	if err := json.Unmarshal(data, &wf); err != nil {
		return Frame{}, errors.Wrap(err, "decode frame")
	}
	if wf.Type == "debug" {
		return Frame{Kind: FrameDebug, Text: wf.Message}, nil
	}
	return Frame{Kind: FrameFinal, Text: wf.Message}, nil
}

// EncodeOutbound serializes a user message for the wire.
func EncodeOutbound(chatID, text string) ([]byte, error) {
	b, err := json.Marshal(outboundFrame{Message: text, ChatID: chatID})
	if err != nil {
		return nil, errors.Wrap(err, "encode outbound frame")
	}
	return b, nil
}
