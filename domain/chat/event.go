package chat

import (
	"encoding/json"
	"fmt"
)

// SystemSender is the username and display name carried by system notices.
const SystemSender = "System"

// Event is an outbound room event. The set of implementations is closed:
// ChatMessage, TypingStarted, TypingStopped and SystemNotice.
type Event interface {
	isEvent()
}

// ChatMessage is a text message from a user.
type ChatMessage struct {
	Text        string
	Sender      string
	DisplayName string
}

// TypingStarted signals that a user started typing.
type TypingStarted struct {
	Sender      string
	DisplayName string
}

// TypingStopped signals that a user stopped typing.
type TypingStopped struct {
	Sender string
}

// SystemNotice is a server-generated message such as join and leave notices.
type SystemNotice struct {
	Text string
}

func (ChatMessage) isEvent()   {}
func (TypingStarted) isEvent() {}
func (TypingStopped) isEvent() {}
func (SystemNotice) isEvent()  {}

// JoinedNotice builds the notice broadcast when name joins a public room.
func JoinedNotice(name string) SystemNotice {
	return SystemNotice{Text: name + " joined the chat"}
}

// LeftNotice builds the notice broadcast when name leaves a public room.
func LeftNotice(name string) SystemNotice {
	return SystemNotice{Text: name + " left the chat"}
}

// OutboundFrame is the union of every outbound JSON shape. Clients and tests
// decode into it; chat messages and system notices carry no type field.
type OutboundFrame struct {
	Type     string `json:"type,omitempty"`
	Message  string `json:"message,omitempty"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

type chatWire struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type typingWire struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type stopTypingWire struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// wire converts an event to the exact value written to clients.
func wire(e Event) (any, error) {
	switch ev := e.(type) {
	case ChatMessage:
		return chatWire{Message: ev.Text, Username: ev.Sender, Name: ev.DisplayName}, nil
	case TypingStarted:
		return typingWire{Type: FrameTyping, Username: ev.Sender, Name: ev.DisplayName}, nil
	case TypingStopped:
		return stopTypingWire{Type: FrameStopTyping, Username: ev.Sender}, nil
	case SystemNotice:
		return chatWire{Message: ev.Text, Username: SystemSender, Name: SystemSender}, nil
	default:
		return nil, fmt.Errorf("unknown event type %T", e)
	}
}

// EncodeEvent serializes an event for the wire.
func EncodeEvent(e Event) ([]byte, error) {
	v, err := wire(e)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return data, nil
}
