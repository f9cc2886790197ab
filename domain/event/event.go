// Package event defines the tagged envelopes exchanged on the realtime
// channel. Every event kind carries its own typed payload; bare positional
// arguments never cross the boundary.
package event

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindSendMessage    Kind = "sendMessage"
	KindOnlineUsers    Kind = "onlineUsers"
	KindReceiveMessage Kind = "receiveMessage"
	KindLoadUser       Kind = "loadUser"
)

// Envelope is the wire frame: a kind tag plus the raw payload for that kind.
type Envelope struct {
	Event Kind            `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SendMessage is the client -> server sending intent.
type SendMessage struct {
	Text     string `json:"text" validate:"required,max=4096"`
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
}

// Presence is the full set of currently connected identity names,
// recomputed and pushed whole on every registry mutation.
type Presence struct {
	Usernames []string `json:"usernames"`
}

// ReceiveMessage carries a persisted message to the receiver's connection.
type ReceiveMessage struct {
	Message domain.Message `json:"message"`
}

// SenderInfo carries the resolved sender summary to the receiver's
// connection, so its client can materialize a conversation entry it
// may not have had yet.
type SenderInfo struct {
	Identity domain.Summary `json:"identity"`
}

func Marshal(kind Kind, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Envelope{Event: kind, Data: data}, nil
}

func NewPresence(usernames []string) (Envelope, error) {
	return Marshal(KindOnlineUsers, Presence{Usernames: usernames})
}

func NewReceiveMessage(message domain.Message) (Envelope, error) {
	return Marshal(KindReceiveMessage, ReceiveMessage{Message: message})
}

func NewSenderInfo(identity domain.Summary) (Envelope, error) {
	return Marshal(KindLoadUser, SenderInfo{Identity: identity})
}
