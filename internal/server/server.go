// Package server implements the TCP battleship session server
package server

import (
	"bufio"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"battleship-game/internal/game"
	"battleship-game/internal/network"
	"battleship-game/pkg/logger"
)

// Server accepts connections, pairs them into rooms and relays game traffic
type Server struct {
	address  string
	listener net.Listener
	players  map[string]*Connection
	rooms    map[string]*Room
	queue    *MatchmakingQueue
	mu       sync.RWMutex
	running  atomic.Bool
	logger   *logger.Logger
}

// NewServer creates a server that will listen on address
func NewServer(address string) *Server {
	return &Server{
		address: address,
		players: make(map[string]*Connection),
		rooms:   make(map[string]*Room),
		queue:   NewMatchmakingQueue(),
		logger:  logger.Server,
	}
}

// Start begins listening and accepting connections in the background
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.running.Store(true)
	s.logger.Info("Battleship server listening on %s", s.listener.Addr())

	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and closes every connection
func (s *Server) Stop() {
	s.running.Store(false)

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for _, conn := range s.players {
		conn.Close()
	}
	s.players = make(map[string]*Connection)
	s.rooms = make(map[string]*Room)
	s.mu.Unlock()

	s.logger.Info("Server stopped")
}

func (s *Server) acceptLoop() {
	for s.running.Load() {
		netConn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.logger.Error("Failed to accept connection: %v", err)
			}
			continue
		}
		go s.handleConnection(netConn)
	}
}

// handleConnection runs one client's read loop until EOF or I/O failure.
// Handler errors are answered with ERROR messages and never tear down the
// connection; only a dead socket does.
func (s *Server) handleConnection(netConn net.Conn) {
	conn := NewConnection(netConn)

	s.mu.Lock()
	s.players[conn.ID] = conn
	s.mu.Unlock()

	s.logger.Info("Client connected: %s from %s", conn.ID, conn.RemoteAddr())

	scanner := bufio.NewScanner(netConn)
	for scanner.Scan() {
		if !s.running.Load() {
			break
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		msg, err := network.Decode(line)
		if err != nil {
			s.logger.Debug("Malformed line from %s: %q", conn.DisplayName(), line)
			s.sendError(conn, "Malformed message")
			continue
		}

		if err := s.processMessage(conn, msg); err != nil {
			s.logger.Error("Error processing %s from %s: %v", msg.Type, conn.DisplayName(), err)
			s.sendError(conn, err.Error())
		}
	}

	s.disconnect(conn)
	s.logger.Info("Client disconnected: %s", conn.DisplayName())
}

func (s *Server) processMessage(conn *Connection, msg *network.Message) error {
	s.logger.Debug("Received %s from %s", msg.Type, conn.DisplayName())

	switch msg.Type {
	case network.MsgJoin:
		return s.handleJoin(conn, msg)
	case network.MsgShipPlacement:
		return s.handleShipPlacement(conn, msg)
	case network.MsgAllShipsPlaced:
		return s.handleAllShipsPlaced(conn)
	case network.MsgAttack:
		return s.handleAttack(conn, msg)
	case network.MsgChatMessage:
		return s.handleChatMessage(conn, msg)
	case network.MsgLeaveGame:
		return s.handleLeaveGame(conn)
	case network.MsgListReq:
		return s.handleListRequest(conn)
	default:
		return fmt.Errorf("Unknown command: %s", msg.Type)
	}
}

// handleJoin records the display name, confirms the join and enqueues the
// player for matchmaking. A connection joins at most once: a repeated JOIN
// would enqueue the same socket twice and let it be paired with itself.
func (s *Server) handleJoin(conn *Connection, msg *network.Message) error {
	if s.queue.Contains(conn.ID) || s.roomFor(conn) != nil {
		return fmt.Errorf("Already joined")
	}

	name := strings.TrimSpace(msg.GetOr(network.KeyName, ""))
	if name == "" {
		name = "Anon"
	}
	if len(name) > 32 || strings.ContainsAny(name, ":;=\r\n") {
		return fmt.Errorf("Invalid name")
	}

	conn.Name = name
	if err := conn.Send(network.NewMessage(network.MsgJoined).
		Set(network.KeyPlayerName, name).
		Set(network.KeyPlayerID, conn.ID)); err != nil {
		return err
	}

	s.queue.Add(conn)
	s.logger.Info("Player %s (%s) joined the queue, %d waiting", name, conn.ID, s.queue.Len())

	s.tryMatch()
	return nil
}

// tryMatch pairs waiting players in FIFO order. First move is a coin flip.
func (s *Server) tryMatch() {
	for {
		p1, p2, ok := s.queue.TakePair()
		if !ok {
			return
		}

		p1.Ready = false
		p2.Ready = false
		p1.MyTurn = rand.Intn(2) == 0
		p2.MyTurn = !p1.MyTurn

		room := NewRoom(p1, p2)
		s.mu.Lock()
		s.rooms[room.ID] = room
		s.mu.Unlock()

		p1.Send(network.NewMessage(network.MsgMatchFound).Set(network.KeyOpponentName, p2.Name))
		p2.Send(network.NewMessage(network.MsgMatchFound).Set(network.KeyOpponentName, p1.Name))

		first := p1
		if p2.MyTurn {
			first = p2
		}
		s.logger.Info("Room %s created: %s vs %s, %s moves first", room.ID, p1.Name, p2.Name, first.Name)
	}
}

// handleShipPlacement rebuilds the player's authoritative board from the
// submitted layout
func (s *Server) handleShipPlacement(conn *Connection, msg *network.Message) error {
	room := s.roomFor(conn)
	if room != nil {
		room.mu.Lock()
		defer room.mu.Unlock()
		if room.GameStarted {
			return fmt.Errorf("Game already started")
		}
		conn.Ready = false
	}

	conn.Board.Clear()

	for i := 0; ; i++ {
		sizeKey := fmt.Sprintf("ship%d_size", i)
		if !msg.Has(sizeKey) {
			break
		}

		size, err := strconv.Atoi(msg.Get(sizeKey))
		if err != nil || size < 1 {
			return fmt.Errorf("Invalid ship placement")
		}
		horizontal, err := strconv.ParseBool(msg.Get(fmt.Sprintf("ship%d_horizontal", i)))
		if err != nil {
			return fmt.Errorf("Invalid ship placement")
		}

		positions := msg.Get(fmt.Sprintf("ship%d_positions", i))
		x, y, err := parsePosition(strings.Split(positions, ",")[0])
		if err != nil {
			return fmt.Errorf("Invalid ship placement")
		}

		if !conn.Board.PlaceShip(game.NewShip(size, horizontal), x, y) {
			s.logger.Warn("Rejected ship %d for %s at (%d,%d)", i, conn.DisplayName(), x, y)
		}
	}

	s.logger.Info("Player %s placed %d ships", conn.DisplayName(), len(conn.Board.Ships))

	return conn.Send(network.NewMessage(network.MsgShipPlacementConfirmed).
		Set(network.KeyShipsPlaced, strconv.Itoa(len(conn.Board.Ships))))
}

// handleAllShipsPlaced marks the player ready; when both sides are ready
// the room starts and each side learns its own turn flag
func (s *Server) handleAllShipsPlaced(conn *Connection) error {
	room := s.roomFor(conn)
	if room == nil {
		return fmt.Errorf("No active game")
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.GameStarted {
		return fmt.Errorf("Game already started")
	}
	if len(conn.Board.Ships) == 0 {
		return fmt.Errorf("No ships placed")
	}

	conn.Ready = true
	s.logger.Info("Player %s is ready", conn.DisplayName())

	if !room.Player1.Ready || !room.Player2.Ready {
		return nil
	}

	room.GameStarted = true
	s.logger.Info("Game in room %s starting", room.ID)

	for _, p := range []*Connection{room.Player1, room.Player2} {
		p.Send(network.NewMessage(network.MsgGameStart).
			Set(network.KeyYourTurn, strconv.FormatBool(p.MyTurn)))
	}
	return nil
}

// handleAttack validates and resolves one shot against the opponent's board
func (s *Server) handleAttack(conn *Connection, msg *network.Message) error {
	room := s.roomFor(conn)
	if room == nil {
		return fmt.Errorf("No active game")
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.GameStarted || room.GameOver {
		return fmt.Errorf("No active game")
	}
	if !conn.MyTurn {
		return fmt.Errorf("Not your turn")
	}

	x, err1 := strconv.Atoi(msg.Get(network.KeyX))
	y, err2 := strconv.Atoi(msg.Get(network.KeyY))
	if err1 != nil || err2 != nil {
		return fmt.Errorf("Invalid coordinates")
	}

	defender := room.Opponent(conn)
	if !defender.Board.InBounds(x, y) {
		return fmt.Errorf("Invalid coordinates")
	}

	switch defender.Board.Grid[x][y] {
	case game.Hit, game.Miss, game.Sunk, game.Blocked:
		return fmt.Errorf("Cell already attacked")
	}

	hit, sunk, gameOver := defender.Board.Attack(x, y)
	s.logger.Info("Attack by %s at (%d,%d): hit=%t sunk=%t gameOver=%t",
		conn.Name, x, y, hit, sunk, gameOver)

	result := network.NewMessage(network.MsgAttackResult).
		Set(network.KeyX, strconv.Itoa(x)).
		Set(network.KeyY, strconv.Itoa(y)).
		Set(network.KeyHit, strconv.FormatBool(hit)).
		Set(network.KeySunk, strconv.FormatBool(sunk)).
		Set(network.KeyGameOver, strconv.FormatBool(gameOver)).
		Set(network.KeyAttackerID, conn.ID)

	if sunk {
		if ship := defender.Board.ShipAt(x, y); ship != nil {
			result.Set(network.KeySunkShipPositions, joinPositions(ship.Positions))
			if blocked := defender.Board.BlockAroundShip(ship); len(blocked) > 0 {
				result.Set(network.KeyBlockedCells, joinPositions(blocked))
			}
		}
	}

	conn.Send(result)
	defender.Send(result)

	switch {
	case gameOver:
		room.GameOver = true
		winMsg := network.NewMessage(network.MsgGameOver).Set(network.KeyWinner, conn.Name)
		conn.Send(winMsg)
		defender.Send(winMsg)
		s.logger.Info("Game in room %s over, winner: %s", room.ID, conn.Name)
		s.removeRoom(room.ID)
	case !hit:
		conn.MyTurn = false
		defender.MyTurn = true
		defender.Send(network.NewMessage(network.MsgYourTurn))
		conn.Send(network.NewMessage(network.MsgOpponentTurn))
	default:
		conn.Send(network.NewMessage(network.MsgYourTurnAgain))
	}
	return nil
}

// handleChatMessage relays chat to the opponent once the game has started.
// Dropped silently otherwise: there is no one to deliver it to.
func (s *Server) handleChatMessage(conn *Connection, msg *network.Message) error {
	room := s.roomFor(conn)
	if room == nil {
		s.logger.Debug("Chat from %s dropped: no room", conn.DisplayName())
		return nil
	}

	room.mu.Lock()
	started := room.GameStarted
	opponent := room.Opponent(conn)
	room.mu.Unlock()

	if !started {
		s.logger.Debug("Chat from %s dropped: game not started", conn.DisplayName())
		return nil
	}

	// The wire format has no escaping, so delimiter characters in free
	// text would corrupt the frame. Strip them before relaying.
	text := sanitizeText(msg.Get(network.KeyText))

	return opponent.Send(network.NewMessage(network.MsgChatMessageReceived).
		Set(network.KeySender, conn.Name).
		Set(network.KeyText, text))
}

// handleLeaveGame notifies the opponent and tears the room down. Leaving
// before pairing quietly removes the player from the matchmaking queue.
func (s *Server) handleLeaveGame(conn *Connection) error {
	room := s.roomFor(conn)
	if room == nil {
		if s.queue.Remove(conn.ID) {
			s.logger.Info("Player %s left the queue", conn.DisplayName())
		}
		return nil
	}

	room.mu.Lock()
	room.GameOver = true
	opponent := room.Opponent(conn)
	room.mu.Unlock()

	s.logger.Info("Player %s left room %s", conn.Name, room.ID)

	opponent.Send(network.NewMessage(network.MsgOpponentLeft).
		Set(network.KeyMessage, fmt.Sprintf("%s left the game", conn.Name)))

	s.removeRoom(room.ID)
	return nil
}

// handleListRequest answers with every other connected player's id and name
func (s *Server) handleListRequest(conn *Connection) error {
	msg := network.NewMessage(network.MsgListRes)

	s.mu.RLock()
	for id, p := range s.players {
		if id == conn.ID {
			continue
		}
		msg.Set(id, p.DisplayName())
	}
	s.mu.RUnlock()

	return conn.Send(msg)
}

// disconnect runs the cleanup path for a dropped connection: dequeue it,
// notify an in-room opponent, remove the room and release the socket
func (s *Server) disconnect(conn *Connection) {
	s.queue.Remove(conn.ID)

	if room := s.roomFor(conn); room != nil {
		room.mu.Lock()
		room.GameOver = true
		opponent := room.Opponent(conn)
		room.mu.Unlock()

		opponent.Send(network.NewMessage(network.MsgOpponentDisconnected))
		s.removeRoom(room.ID)
		s.logger.Info("Room %s removed after %s disconnected", room.ID, conn.DisplayName())
	}

	s.mu.Lock()
	delete(s.players, conn.ID)
	s.mu.Unlock()

	conn.Close()
}

func (s *Server) roomFor(conn *Connection) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, room := range s.rooms {
		if room.Contains(conn) {
			return room
		}
	}
	return nil
}

func (s *Server) removeRoom(id string) {
	s.mu.Lock()
	delete(s.rooms, id)
	s.mu.Unlock()
}

func (s *Server) sendError(conn *Connection, message string) {
	err := conn.Send(network.NewMessage(network.MsgError).Set(network.KeyMessage, message))
	if err != nil {
		s.logger.Error("Failed to send error to %s: %v", conn.DisplayName(), err)
	}
}

// parsePosition parses one "x:y" coordinate
func parsePosition(raw string) (int, int, error) {
	xs, ys, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid position %q", raw)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// joinPositions renders positions as "x:y,x:y,..."
func joinPositions(positions []game.Position) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprintf("%d:%d", p.X, p.Y)
	}
	return strings.Join(parts, ",")
}

func sanitizeText(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ';', '=', '\r', '\n':
			return -1
		}
		return r
	}, text)
}
