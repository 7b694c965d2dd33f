package server

import (
	"bufio"
	"net"
	"sync"

	"github.com/google/uuid"

	"battleship-game/internal/game"
	"battleship-game/internal/network"
)

// Connection represents one connected player: its socket, identity and
// authoritative board. Turn and ready flags are only touched by message
// handlers holding the owning room's lock.
type Connection struct {
	ID   string
	Name string

	conn   net.Conn
	writer *bufio.Writer

	Ready  bool
	MyTurn bool
	Board  *game.Board

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewConnection wraps an accepted socket with a fresh ID and empty board
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		ID:     uuid.NewString(),
		conn:   conn,
		writer: bufio.NewWriter(conn),
		Board:  game.NewBoard(),
	}
}

// Send serializes and writes one message. The write mutex keeps frames from
// concurrent handlers from interleaving on the wire.
func (c *Connection) Send(msg *network.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.writer.WriteString(network.Encode(msg)); err != nil {
		return err
	}
	return c.writer.Flush()
}

// Close releases the socket. Idempotent and safe from any goroutine;
// closing unblocks the connection's read loop.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

// RemoteAddr returns the peer address
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// DisplayName returns the player name, falling back to the ID before JOIN
func (c *Connection) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
