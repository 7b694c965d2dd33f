// Package client implements the battleship terminal client: the network
// session state machine and its interactive front end
package client

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"battleship-game/internal/network"
	"battleship-game/pkg/logger"
)

// NetClient owns the TCP connection to the server: a background listener
// goroutine delivers decoded messages on a channel, sends go through a
// write mutex. The channel closes when the server side goes away.
type NetClient struct {
	conn      net.Conn
	writer    *bufio.Writer
	writeMu   sync.Mutex
	connected atomic.Bool
	messages  chan *network.Message
	closeOnce sync.Once
	logger    *logger.Logger
}

// NewNetClient creates a disconnected network client
func NewNetClient() *NetClient {
	return &NetClient{
		messages: make(chan *network.Message, 32),
		logger:   logger.Client,
	}
}

// Connect dials the server and starts the listener goroutine. Reconnecting
// after a failed or closed attempt gets a fresh message channel and close
// latch.
func (n *NetClient) Connect(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	messages := make(chan *network.Message, 32)

	n.writeMu.Lock()
	n.conn = conn
	n.writer = bufio.NewWriter(conn)
	n.messages = messages
	n.closeOnce = sync.Once{}
	n.writeMu.Unlock()

	n.connected.Store(true)
	n.logger.Info("Connected to server at %s", addr)

	go n.listen(conn, messages)
	return nil
}

// IsConnected reports whether the connection is up
func (n *NetClient) IsConnected() bool {
	return n.connected.Load()
}

// Messages returns the inbound message stream. The channel closes on
// disconnect; per-connection FIFO order is preserved.
func (n *NetClient) Messages() <-chan *network.Message {
	return n.messages
}

// Send serializes and writes one message
func (n *NetClient) Send(msg *network.Message) error {
	if !n.connected.Load() {
		return fmt.Errorf("not connected")
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	if _, err := n.writer.WriteString(network.Encode(msg)); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return n.writer.Flush()
}

// Close drops the connection; idempotent. The listener goroutine observes
// the closed socket and closes the message channel.
func (n *NetClient) Close() {
	n.closeOnce.Do(func() {
		n.connected.Store(false)
		if n.conn != nil {
			n.conn.Close()
		}
	})
}

// listen works on the connection and channel it was started with, so a
// stale listener from a previous attempt can never touch a newer one's.
func (n *NetClient) listen(conn net.Conn, messages chan *network.Message) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		msg, err := network.Decode(line)
		if err != nil {
			// Malformed server lines are dropped, not fatal.
			n.logger.Debug("Dropping malformed line: %q", line)
			continue
		}
		n.logger.Debug("Received %s", msg.Type)
		messages <- msg
	}

	n.writeMu.Lock()
	if n.conn == conn {
		n.connected.Store(false)
	}
	n.writeMu.Unlock()

	close(messages)
	n.logger.Info("Connection to server closed")
}
