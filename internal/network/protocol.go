// Package network defines the wire protocol between client and server
package network

import (
	"fmt"
	"strings"
)

// MessageType represents different types of messages
type MessageType string

const (
	// Client to server commands
	MsgJoin           MessageType = "JOIN"
	MsgShipPlacement  MessageType = "SHIP_PLACEMENT"
	MsgAllShipsPlaced MessageType = "ALL_SHIPS_PLACED"
	MsgAttack         MessageType = "ATTACK"
	MsgLeaveGame      MessageType = "LEAVE_GAME"
	MsgChatMessage    MessageType = "CHAT_MESSAGE"
	MsgListReq        MessageType = "LIST_REQ"

	// Server to client commands
	MsgJoined                 MessageType = "JOINED"
	MsgMatchFound             MessageType = "MATCH_FOUND"
	MsgShipPlacementConfirmed MessageType = "SHIP_PLACEMENT_CONFIRMED"
	MsgGameStart              MessageType = "GAME_START"
	MsgYourTurn               MessageType = "YOUR_TURN"
	MsgYourTurnAgain          MessageType = "YOUR_TURN_AGAIN"
	MsgOpponentTurn           MessageType = "OPPONENT_TURN"
	MsgAttackResult           MessageType = "ATTACK_RESULT"
	MsgGameOver               MessageType = "GAME_OVER"
	MsgOpponentLeft           MessageType = "OPPONENT_LEFT"
	MsgOpponentDisconnected   MessageType = "OPPONENT_DISCONNECTED"
	MsgChatMessageReceived    MessageType = "CHAT_MESSAGE_RECEIVED"
	MsgError                  MessageType = "ERROR"
	MsgListRes                MessageType = "LIST_RES"
)

// Data keys used in protocol messages
const (
	KeyName              = "name"
	KeyPlayerName        = "player_name"
	KeyPlayerID          = "player_id"
	KeyOpponentName      = "opponent_name"
	KeyYourTurn          = "your_turn"
	KeyX                 = "x"
	KeyY                 = "y"
	KeyHit               = "hit"
	KeySunk              = "sunk"
	KeyGameOver          = "game_over"
	KeyWinner            = "winner"
	KeyMessage           = "message"
	KeyAttackerID        = "attacker_id"
	KeyShipsPlaced       = "ships_placed"
	KeySunkShipPositions = "sunk_ship_positions"
	KeyBlockedCells      = "blocked_cells"
	KeyText              = "text"
	KeySender            = "sender"
)

// Message represents a single protocol frame: a command plus ordered
// key/value fields. The wire format has no escaping: field values must not
// contain ';', '=' or a newline, and keys must not contain ':' either.
// This is a protocol constraint, not something the codec works around.
type Message struct {
	Type MessageType
	keys []string
	data map[string]string
}

// NewMessage creates an empty message of the given type
func NewMessage(msgType MessageType) *Message {
	return &Message{
		Type: msgType,
		data: make(map[string]string),
	}
}

// Set stores a field value. Setting an existing key overwrites its value
// and keeps the original position.
func (m *Message) Set(key, value string) *Message {
	if m.data == nil {
		m.data = make(map[string]string)
	}
	if _, exists := m.data[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.data[key] = value
	return m
}

// Get returns the value for key, or "" if the key is absent
func (m *Message) Get(key string) string {
	return m.data[key]
}

// GetOr returns the value for key, or fallback if the key is absent
func (m *Message) GetOr(key, fallback string) string {
	if v, ok := m.data[key]; ok {
		return v
	}
	return fallback
}

// Has reports whether the message carries the key
func (m *Message) Has(key string) bool {
	_, ok := m.data[key]
	return ok
}

// Keys returns the field keys in insertion order
func (m *Message) Keys() []string {
	return m.keys
}

// Len returns the number of fields
func (m *Message) Len() int {
	return len(m.keys)
}

// Encode serializes the message to its wire form "TYPE:k1=v1;k2=v2\n".
// A message with no fields encodes as "TYPE:\n".
func Encode(m *Message) string {
	var b strings.Builder
	b.WriteString(string(m.Type))
	b.WriteByte(':')
	for i, key := range m.keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(m.data[key])
	}
	b.WriteByte('\n')
	return b.String()
}

// Decode parses one wire line into a Message. The line must contain a ':'
// separating the command from the field section. Pairs without '=' are
// skipped; a duplicated key keeps the last value seen.
func Decode(line string) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")

	typePart, dataPart, found := strings.Cut(line, ":")
	if !found {
		return nil, fmt.Errorf("malformed message: missing ':' separator in %q", line)
	}
	if typePart == "" {
		return nil, fmt.Errorf("malformed message: empty command in %q", line)
	}

	msg := NewMessage(MessageType(typePart))
	if dataPart == "" {
		return msg, nil
	}

	for _, pair := range strings.Split(dataPart, ";") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		msg.Set(key, value)
	}
	return msg, nil
}
