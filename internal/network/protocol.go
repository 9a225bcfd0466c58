package network

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/amalg/go-dungeon/internal/game"
)

// MaxMessageSize bounds a single framed message.
const MaxMessageSize = 1 << 20

// MsgType identifies the type of network message.
type MsgType string

const (
	MsgJoin    MsgType = "join"
	MsgWelcome MsgType = "welcome"
	MsgCommand MsgType = "command"
	MsgControl MsgType = "control"
	MsgEvent   MsgType = "event"
	MsgError   MsgType = "error"
)

// Envelope wraps all messages with a type discriminator for deserialization.
type Envelope struct {
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// --- Client → Server Messages ---

// JoinMsg claims the session. Only one client may hold it.
type JoinMsg struct {
	Name string `json:"name"`
}

// CommandMsg carries one movement command.
type CommandMsg struct {
	Command game.Command `json:"command"`
}

// ControlOp is a session operation other than movement.
type ControlOp string

const (
	OpReset ControlOp = "reset"
	OpSave  ControlOp = "save"
	OpLoad  ControlOp = "load"
	OpLevel ControlOp = "level"
)

// ControlMsg asks the host to run a session operation. Level is only read
// for OpLevel.
type ControlMsg struct {
	Op    ControlOp `json:"op"`
	Level int       `json:"level,omitempty"`
}

// --- Server → Client Messages ---

// WelcomeMsg answers a successful join with the session as it stands.
type WelcomeMsg struct {
	PlayerID string     `json:"player_id"`
	Event    game.Event `json:"event"`
}

// EventMsg forwards a session event.
type EventMsg struct {
	Event game.Event `json:"event"`
}

// ErrorMsg notifies a client of an error.
type ErrorMsg struct {
	Message string `json:"message"`
}

// Marshal builds the JSON envelope for a message.
func Marshal(msgType MsgType, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	body, err := json.Marshal(Envelope{Type: msgType, Payload: payloadBytes})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return body, nil
}

// Unmarshal parses an envelope produced by Marshal.
func Unmarshal(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// Encode serializes a message and writes it to the writer.
// Format: [4-byte big-endian length][JSON body]
func Encode(w io.Writer, msgType MsgType, payload interface{}) error {
	body, err := Marshal(msgType, payload)
	if err != nil {
		return err
	}

	// Single write so concurrent readers never see a header without a body.
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Decode reads a length-prefixed JSON message from the reader.
func Decode(r io.Reader) (*Envelope, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	if length > MaxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Unmarshal(body)
}

// DecodePayload unmarshals the payload from an envelope into the target struct.
func DecodePayload(env *Envelope, target interface{}) error {
	return json.Unmarshal(env.Payload, target)
}
