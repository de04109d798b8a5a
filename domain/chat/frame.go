package chat

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Inbound frame types. A frame without a type is a chat message.
const (
	FrameChat       = "chat"
	FrameTyping     = "typing"
	FrameStopTyping = "stop_typing"
	FrameLeave      = "leave"
)

// Inbound is a decoded client frame. The set of implementations is closed:
// ChatFrame, TypingFrame, StopTypingFrame and LeaveFrame.
type Inbound interface {
	isInbound()
}

// ChatFrame carries a text message.
type ChatFrame struct {
	Message  string
	Username string
	Name     string
}

// Blank reports whether the message has no visible content.
func (f ChatFrame) Blank() bool {
	return strings.TrimSpace(f.Message) == ""
}

// TypingFrame announces that the sender started typing.
type TypingFrame struct {
	Username string
	Name     string
}

// StopTypingFrame announces that the sender stopped typing.
type StopTypingFrame struct {
	Username string
}

// LeaveFrame asks the server to close the session.
type LeaveFrame struct{}

func (ChatFrame) isInbound()       {}
func (TypingFrame) isInbound()     {}
func (StopTypingFrame) isInbound() {}
func (LeaveFrame) isInbound()      {}

type inboundWire struct {
	Type     *string `json:"type"`
	Message  *string `json:"message"`
	Username *string `json:"username"`
	Name     *string `json:"name"`
}

// DecodeInbound parses and validates a client frame. Errors wrap
// ErrClientProtocol. A chat frame with a blank message is returned without
// checking the other fields; callers drop it silently.
func DecodeInbound(data []byte) (Inbound, error) {
	if !utf8.Valid(data) {
		return nil, &ProtocolError{Reason: "frame is not valid UTF-8"}
	}

	var w inboundWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ProtocolError{Reason: "invalid JSON: " + err.Error()}
	}

	frameType := FrameChat
	if w.Type != nil && *w.Type != "" {
		frameType = *w.Type
	}

	switch frameType {
	case FrameTyping:
		if w.Username == nil {
			return nil, missingField("username")
		}
		if w.Name == nil {
			return nil, missingField("name")
		}
		return TypingFrame{Username: *w.Username, Name: *w.Name}, nil
	case FrameStopTyping:
		if w.Username == nil {
			return nil, missingField("username")
		}
		return StopTypingFrame{Username: *w.Username}, nil
	case FrameLeave:
		return LeaveFrame{}, nil
	case FrameChat:
		frame := ChatFrame{}
		if w.Message != nil {
			frame.Message = *w.Message
		}
		if frame.Blank() {
			return frame, nil
		}
		if w.Username == nil {
			return nil, missingField("username")
		}
		if w.Name == nil {
			return nil, missingField("name")
		}
		frame.Username = *w.Username
		frame.Name = *w.Name
		return frame, nil
	default:
		return nil, &ProtocolError{Field: "type", Reason: "unknown frame type " + frameType}
	}
}
