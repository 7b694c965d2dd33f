package client

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"battleship-game/internal/game"
	"battleship-game/internal/network"
	"battleship-game/pkg/logger"
)

// State is the client session state. Having AwaitingAttackResult as its own
// state (instead of a boolean next to MyTurn) makes "attack while one is in
// flight" unrepresentable rather than merely checked.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSearching
	StatePlacing
	StateWaitingOpponent
	StateMyTurn
	StateAwaitingAttackResult
	StateOpponentTurn
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateSearching:
		return "Searching"
	case StatePlacing:
		return "Placing"
	case StateWaitingOpponent:
		return "WaitingOpponent"
	case StateMyTurn:
		return "MyTurn"
	case StateAwaitingAttackResult:
		return "AwaitingAttackResult"
	case StateOpponentTurn:
		return "OpponentTurn"
	case StateGameOver:
		return "GameOver"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventType identifies session events delivered to the single consumer
type EventType int

const (
	EventJoined EventType = iota
	EventMatchFound
	EventPlacementConfirmed
	EventGameStarted
	EventYourTurn
	EventTurnAgain
	EventOpponentTurn
	EventAttackResult
	EventGameOver
	EventOpponentLeft
	EventOpponentDisconnected
	EventChatReceived
	EventServerError
	EventConnectionLost
)

// AttackResult carries one server-authoritative shot outcome
type AttackResult struct {
	X        int
	Y        int
	Hit      bool
	Sunk     bool
	GameOver bool
	Mine     bool
	SunkShip []game.Position
	Blocked  []game.Position
}

// Event is one item of the session's outbound event stream
type Event struct {
	Type     EventType
	Status   string
	YourTurn bool
	Result   *AttackResult
	Sender   string
	Text     string
	Winner   string
	Won      bool
}

// Session drives the client side of the game protocol. All server messages
// funnel through a single goroutine that owns the state machine and the two
// board copies; the consumer reads typed events from Events().
type Session struct {
	net *NetClient

	mu            sync.Mutex
	state         State
	playerID      string
	playerName    string
	opponentName  string
	playerBoard   *game.Board
	trackingBoard *game.Board
	winner        string

	events chan Event
	logger *logger.Logger
}

// NewSession creates a session over the given network client
func NewSession(netClient *NetClient) *Session {
	return &Session{
		net:    netClient,
		state:  StateDisconnected,
		events: make(chan Event, 32),
		logger: logger.Client,
	}
}

// Connect dials the server, joins under the given name and starts the
// inbound message loop
func (s *Session) Connect(addr, name string) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return fmt.Errorf("already connected (state %s)", s.state)
	}
	s.state = StateConnecting
	s.playerName = name
	s.mu.Unlock()

	if err := s.net.Connect(addr); err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return err
	}

	if err := s.net.Send(network.NewMessage(network.MsgJoin).Set(network.KeyName, name)); err != nil {
		s.net.Close()
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return err
	}

	go s.run()
	return nil
}

// Events returns the session's event stream. Closed after the connection
// is gone and the final event has been delivered.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PlayerID returns the server-assigned ID, empty before JOINED
func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// PlayerName returns this player's display name
func (s *Session) PlayerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerName
}

// OpponentName returns the matched opponent's name
func (s *Session) OpponentName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opponentName
}

// Boards returns copies of the two grids: the player's own board and the
// tracking view of the opponent's
func (s *Session) Boards() (own, tracking [][]game.CellState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyGrid(s.playerBoard), copyGrid(s.trackingBoard)
}

// PlaceFleet submits the fleet layout and signals ready. Legal only while
// the session is in the placement phase.
func (s *Session) PlaceFleet(board *game.Board) error {
	s.mu.Lock()
	if s.state != StatePlacing {
		s.mu.Unlock()
		return fmt.Errorf("cannot place ships in state %s", s.state)
	}
	s.playerBoard = board
	s.state = StateWaitingOpponent
	s.mu.Unlock()

	msg := network.NewMessage(network.MsgShipPlacement)
	for i, ship := range board.Ships {
		msg.Set(fmt.Sprintf("ship%d_size", i), strconv.Itoa(ship.Size))
		msg.Set(fmt.Sprintf("ship%d_horizontal", i), strconv.FormatBool(ship.Horizontal))
		msg.Set(fmt.Sprintf("ship%d_positions", i), joinPositions(ship.Positions))
	}

	if err := s.net.Send(msg); err != nil {
		return err
	}
	return s.net.Send(network.NewMessage(network.MsgAllShipsPlaced))
}

// Attack fires at (x, y) on the opponent's board. Legal only when it is
// this player's turn and no attack is in flight; the session moves to
// AwaitingAttackResult until the server answers.
func (s *Session) Attack(x, y int) error {
	s.mu.Lock()
	switch s.state {
	case StateMyTurn:
	case StateAwaitingAttackResult:
		s.mu.Unlock()
		return fmt.Errorf("attack already in flight")
	default:
		s.mu.Unlock()
		return fmt.Errorf("cannot attack in state %s", s.state)
	}

	if !s.trackingBoard.InBounds(x, y) {
		s.mu.Unlock()
		return fmt.Errorf("coordinates (%d,%d) are off the board", x, y)
	}
	if s.trackingBoard.Grid[x][y] != game.Empty {
		s.mu.Unlock()
		return fmt.Errorf("cell (%d,%d) was already attacked", x, y)
	}

	s.state = StateAwaitingAttackResult
	s.mu.Unlock()

	err := s.net.Send(network.NewMessage(network.MsgAttack).
		Set(network.KeyX, strconv.Itoa(x)).
		Set(network.KeyY, strconv.Itoa(y)))
	if err != nil {
		s.mu.Lock()
		s.state = StateMyTurn
		s.mu.Unlock()
		return err
	}
	return nil
}

// SendChat relays a chat line to the opponent. Delimiter characters are
// stripped: the wire format cannot carry them.
func (s *Session) SendChat(text string) error {
	text = strings.TrimSpace(sanitizeChat(text))
	if text == "" {
		return nil
	}
	return s.net.Send(network.NewMessage(network.MsgChatMessage).Set(network.KeyText, text))
}

// Leave tells the server we are gone and drops the connection
func (s *Session) Leave() {
	s.mu.Lock()
	id := s.playerID
	s.mu.Unlock()

	s.net.Send(network.NewMessage(network.MsgLeaveGame).Set(network.KeyPlayerID, id))
	s.net.Close()
}

// Close drops the connection without notifying the server
func (s *Session) Close() {
	s.net.Close()
}

// run consumes the inbound stream until the connection closes
func (s *Session) run() {
	for msg := range s.net.Messages() {
		s.handleMessage(msg)
	}

	s.mu.Lock()
	wasOver := s.state == StateGameOver
	s.state = StateDisconnected
	s.mu.Unlock()

	if !wasOver {
		s.events <- Event{Type: EventConnectionLost, Status: "Connection to server lost"}
	}
	close(s.events)
}

func (s *Session) handleMessage(msg *network.Message) {
	s.mu.Lock()
	events := s.apply(msg)
	s.mu.Unlock()

	for _, ev := range events {
		s.events <- ev
	}
}

// apply advances the state machine for one server message and returns the
// events to surface. Runs under s.mu.
func (s *Session) apply(msg *network.Message) []Event {
	switch msg.Type {
	case network.MsgJoined:
		s.playerName = msg.GetOr(network.KeyPlayerName, s.playerName)
		s.playerID = msg.Get(network.KeyPlayerID)
		s.state = StateSearching
		return []Event{{
			Type:   EventJoined,
			Status: fmt.Sprintf("Joined as %s, waiting for an opponent", s.playerName),
		}}

	case network.MsgMatchFound:
		s.opponentName = msg.GetOr(network.KeyOpponentName, "Unknown")
		s.playerBoard = game.NewBoard()
		s.trackingBoard = game.NewBoard()
		s.winner = ""
		s.state = StatePlacing
		return []Event{{
			Type:   EventMatchFound,
			Status: fmt.Sprintf("Opponent found: %s", s.opponentName),
		}}

	case network.MsgShipPlacementConfirmed:
		return []Event{{
			Type:   EventPlacementConfirmed,
			Status: fmt.Sprintf("Server confirmed %s ships", msg.GetOr(network.KeyShipsPlaced, "?")),
		}}

	case network.MsgGameStart:
		yourTurn := msg.Get(network.KeyYourTurn) == "true"
		if yourTurn {
			s.state = StateMyTurn
		} else {
			s.state = StateOpponentTurn
		}
		return []Event{{Type: EventGameStarted, YourTurn: yourTurn}}

	case network.MsgYourTurn:
		if s.state == StateGameOver {
			return nil
		}
		s.state = StateMyTurn
		return []Event{{Type: EventYourTurn}}

	case network.MsgYourTurnAgain:
		if s.state == StateGameOver {
			return nil
		}
		s.state = StateMyTurn
		return []Event{{Type: EventTurnAgain}}

	case network.MsgOpponentTurn:
		if s.state == StateGameOver {
			return nil
		}
		s.state = StateOpponentTurn
		return []Event{{Type: EventOpponentTurn}}

	case network.MsgAttackResult:
		return s.applyAttackResult(msg)

	case network.MsgGameOver:
		// Latching: a repeated GAME_OVER or one after a terminal result
		// reports nothing new.
		if s.winner != "" {
			return nil
		}
		s.winner = msg.GetOr(network.KeyWinner, "Unknown")
		s.state = StateGameOver
		return []Event{{
			Type:   EventGameOver,
			Winner: s.winner,
			Won:    s.winner == s.playerName,
		}}

	case network.MsgOpponentLeft:
		if s.state == StateGameOver {
			return nil
		}
		s.state = StateGameOver
		s.winner = s.playerName
		return []Event{{
			Type:   EventOpponentLeft,
			Status: msg.GetOr(network.KeyMessage, "Opponent left the game"),
		}}

	case network.MsgOpponentDisconnected:
		if s.state == StateGameOver {
			return nil
		}
		s.state = StateGameOver
		s.winner = s.playerName
		return []Event{{
			Type:   EventOpponentDisconnected,
			Status: "Opponent disconnected",
		}}

	case network.MsgChatMessageReceived:
		return []Event{{
			Type:   EventChatReceived,
			Sender: msg.GetOr(network.KeySender, "Opponent"),
			Text:   msg.Get(network.KeyText),
		}}

	case network.MsgError:
		// A rejected attack leaves the turn with us; clear the in-flight
		// state so the player can act again.
		if s.state == StateAwaitingAttackResult {
			s.state = StateMyTurn
		}
		return []Event{{
			Type:   EventServerError,
			Status: msg.GetOr(network.KeyMessage, "Unknown server error"),
		}}

	default:
		s.logger.Debug("Ignoring unexpected message type %s", msg.Type)
		return nil
	}
}

// applyAttackResult reconciles one shot outcome into the local boards.
// Results are server-authoritative: cells are set from the message, never
// recomputed locally.
func (s *Session) applyAttackResult(msg *network.Message) []Event {
	if s.state == StateGameOver {
		return nil
	}

	x, err1 := strconv.Atoi(msg.Get(network.KeyX))
	y, err2 := strconv.Atoi(msg.Get(network.KeyY))
	if err1 != nil || err2 != nil {
		s.logger.Debug("Dropping attack result with bad coordinates")
		return nil
	}

	result := &AttackResult{
		X:        x,
		Y:        y,
		Hit:      msg.Get(network.KeyHit) == "true",
		Sunk:     msg.Get(network.KeySunk) == "true",
		GameOver: msg.Get(network.KeyGameOver) == "true",
		Mine:     msg.Get(network.KeyAttackerID) == s.playerID,
		SunkShip: parsePositions(msg.Get(network.KeySunkShipPositions)),
		Blocked:  parsePositions(msg.Get(network.KeyBlockedCells)),
	}

	board := s.playerBoard
	if result.Mine {
		board = s.trackingBoard
	}
	if board.InBounds(x, y) {
		if result.Hit {
			board.Grid[x][y] = game.Hit
		} else {
			board.Grid[x][y] = game.Miss
		}
	}
	for _, p := range result.SunkShip {
		if board.InBounds(p.X, p.Y) {
			board.Grid[p.X][p.Y] = game.Sunk
		}
	}
	for _, p := range result.Blocked {
		if board.InBounds(p.X, p.Y) {
			board.Grid[p.X][p.Y] = game.Blocked
		}
	}

	switch {
	case result.GameOver:
		// A game-ending result suppresses all further turn handling;
		// the GAME_OVER message that follows names the winner.
		s.state = StateGameOver
	case result.Mine && result.Hit:
		s.state = StateMyTurn
	case result.Mine:
		s.state = StateOpponentTurn
	}

	return []Event{{Type: EventAttackResult, Result: result}}
}

func copyGrid(b *game.Board) [][]game.CellState {
	if b == nil {
		return nil
	}
	grid := make([][]game.CellState, len(b.Grid))
	for i, col := range b.Grid {
		grid[i] = append([]game.CellState(nil), col...)
	}
	return grid
}

// joinPositions renders positions as "x:y,x:y,..."
func joinPositions(positions []game.Position) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprintf("%d:%d", p.X, p.Y)
	}
	return strings.Join(parts, ",")
}

// parsePositions parses "x:y,x:y,..." lists; malformed entries are skipped
func parsePositions(raw string) []game.Position {
	if raw == "" {
		return nil
	}
	var positions []game.Position
	for _, part := range strings.Split(raw, ",") {
		xs, ys, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		x, err1 := strconv.Atoi(xs)
		y, err2 := strconv.Atoi(ys)
		if err1 != nil || err2 != nil {
			continue
		}
		positions = append(positions, game.Position{X: x, Y: y})
	}
	return positions
}

func sanitizeChat(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', ';', '=', '\r', '\n':
			return -1
		}
		return r
	}, text)
}
