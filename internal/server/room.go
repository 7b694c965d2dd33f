package server

import (
	"sync"

	"github.com/google/uuid"
)

// Room pairs exactly two connections for one match. The room does not own
// the connections; the server's registry does.
//
// All mutation of the room's flags and the two member boards happens under
// mu. The two players' read loops run concurrently, so every handler that
// touches turn, ready or board state must serialize here.
type Room struct {
	ID      string
	Player1 *Connection
	Player2 *Connection

	GameStarted bool
	GameOver    bool

	mu sync.Mutex
}

// NewRoom creates a room for the two players
func NewRoom(p1, p2 *Connection) *Room {
	return &Room{
		ID:      uuid.NewString(),
		Player1: p1,
		Player2: p2,
	}
}

// Opponent returns the other player, or nil if c is not in the room
func (r *Room) Opponent(c *Connection) *Connection {
	switch c.ID {
	case r.Player1.ID:
		return r.Player2
	case r.Player2.ID:
		return r.Player1
	default:
		return nil
	}
}

// Contains reports whether the connection belongs to this room
func (r *Room) Contains(c *Connection) bool {
	return r.Player1.ID == c.ID || r.Player2.ID == c.ID
}
