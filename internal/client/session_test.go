package client_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"battleship-game/internal/client"
	"battleship-game/internal/game"
	"battleship-game/internal/network"
)

// fakeServer accepts a single client and lets the test script the
// server side of the protocol line by line.
type fakeServer struct {
	t        *testing.T
	listener net.Listener
	conn     net.Conn
	accepted chan struct{}
	lines    chan string
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeServer{
		t:        t,
		listener: listener,
		accepted: make(chan struct{}),
		lines:    make(chan string, 16),
	}

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			close(f.lines)
			return
		}
		f.conn = conn
		close(f.accepted)

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			f.lines <- scanner.Text()
		}
		close(f.lines)
	}()

	t.Cleanup(func() {
		listener.Close()
		select {
		case <-f.accepted:
			f.conn.Close()
		default:
		}
	})
	return f
}

func (f *fakeServer) addr() string {
	return f.listener.Addr().String()
}

func (f *fakeServer) waitClient() {
	f.t.Helper()
	select {
	case <-f.accepted:
	case <-time.After(2 * time.Second):
		f.t.Fatal("no client connected")
	}
}

// send writes one raw protocol line to the client
func (f *fakeServer) send(line string) {
	f.t.Helper()
	f.waitClient()
	_, err := f.conn.Write([]byte(line + "\n"))
	require.NoError(f.t, err)
}

// recv returns the next decoded message from the client
func (f *fakeServer) recv() *network.Message {
	f.t.Helper()
	select {
	case line, ok := <-f.lines:
		require.True(f.t, ok, "client connection closed")
		msg, err := network.Decode(line)
		require.NoError(f.t, err)
		return msg
	case <-time.After(2 * time.Second):
		f.t.Fatal("timed out waiting for a client message")
		return nil
	}
}

func (f *fakeServer) dropClient() {
	f.waitClient()
	f.conn.Close()
}

// dialSession connects a fresh session as Alice and consumes the JOIN
// the client sends on connect.
func dialSession(t *testing.T, f *fakeServer) *client.Session {
	t.Helper()

	s := client.NewSession(client.NewNetClient())
	require.NoError(t, s.Connect(f.addr(), "Alice"))
	t.Cleanup(s.Close)

	join := f.recv()
	require.Equal(t, network.MsgJoin, join.Type)
	require.Equal(t, "Alice", join.Get(network.KeyName))
	return s
}

func nextEvent(t *testing.T, s *client.Session) client.Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a session event")
		return client.Event{}
	}
}

func expectEvent(t *testing.T, s *client.Session, typ client.EventType) client.Event {
	t.Helper()
	ev := nextEvent(t, s)
	require.Equal(t, typ, ev.Type)
	return ev
}

func expectNoEvent(t *testing.T, s *client.Session, d time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		if ok {
			t.Fatalf("unexpected event %v", ev.Type)
		}
		t.Fatal("event stream closed")
	case <-time.After(d):
	}
}

// startedSession brings a session into a running game against Bob
func startedSession(t *testing.T, f *fakeServer, myTurn bool) *client.Session {
	t.Helper()

	s := dialSession(t, f)
	f.send("JOINED:player_name=Alice;player_id=p1")
	expectEvent(t, s, client.EventJoined)
	f.send("MATCH_FOUND:opponent_name=Bob")
	expectEvent(t, s, client.EventMatchFound)

	turn := "false"
	if myTurn {
		turn = "true"
	}
	f.send("GAME_START:your_turn=" + turn)
	ev := expectEvent(t, s, client.EventGameStarted)
	require.Equal(t, myTurn, ev.YourTurn)
	return s
}

func TestHandshakeStates(t *testing.T) {
	f := startFakeServer(t)
	s := dialSession(t, f)

	f.send("JOINED:player_name=Alice;player_id=p1")
	expectEvent(t, s, client.EventJoined)
	require.Equal(t, client.StateSearching, s.State())
	require.Equal(t, "p1", s.PlayerID())

	f.send("MATCH_FOUND:opponent_name=Bob")
	expectEvent(t, s, client.EventMatchFound)
	require.Equal(t, client.StatePlacing, s.State())
	require.Equal(t, "Bob", s.OpponentName())
}

func TestPlaceFleetSendsLayout(t *testing.T) {
	f := startFakeServer(t)
	s := dialSession(t, f)

	f.send("JOINED:player_name=Alice;player_id=p1")
	expectEvent(t, s, client.EventJoined)
	f.send("MATCH_FOUND:opponent_name=Bob")
	expectEvent(t, s, client.EventMatchFound)

	board := game.NewBoard()
	require.True(t, board.PlaceShip(game.NewShip(2, true), 0, 0))
	require.True(t, board.PlaceShip(game.NewShip(1, true), 5, 5))
	require.NoError(t, s.PlaceFleet(board))
	require.Equal(t, client.StateWaitingOpponent, s.State())

	placement := f.recv()
	require.Equal(t, network.MsgShipPlacement, placement.Type)
	require.Equal(t, "2", placement.Get("ship0_size"))
	require.Equal(t, "true", placement.Get("ship0_horizontal"))
	require.Equal(t, "0:0,1:0", placement.Get("ship0_positions"))
	require.Equal(t, "5:5", placement.Get("ship1_positions"))

	ready := f.recv()
	require.Equal(t, network.MsgAllShipsPlaced, ready.Type)

	// Placement is a one-shot phase
	require.Error(t, s.PlaceFleet(board))

	f.send("GAME_START:your_turn=true")
	ev := expectEvent(t, s, client.EventGameStarted)
	require.True(t, ev.YourTurn)
	require.Equal(t, client.StateMyTurn, s.State())
}

func TestAttackInFlightGuard(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, true)

	require.NoError(t, s.Attack(2, 3))
	require.Equal(t, client.StateAwaitingAttackResult, s.State())

	attack := f.recv()
	require.Equal(t, network.MsgAttack, attack.Type)
	require.Equal(t, "2", attack.Get(network.KeyX))
	require.Equal(t, "3", attack.Get(network.KeyY))

	err := s.Attack(4, 4)
	require.ErrorContains(t, err, "attack already in flight")

	// A rejection hands the turn back
	f.send("ERROR:message=Cell already attacked")
	ev := expectEvent(t, s, client.EventServerError)
	require.Equal(t, "Cell already attacked", ev.Status)
	require.Equal(t, client.StateMyTurn, s.State())
}

func TestAttackResultBeforeTurnMessage(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, true)

	require.NoError(t, s.Attack(2, 3))
	f.recv()

	// The result alone must clear the in-flight state even when the
	// follow-up turn message is delayed or reordered away.
	f.send("ATTACK_RESULT:x=2;y=3;hit=true;sunk=false;game_over=false;attacker_id=p1")
	ev := expectEvent(t, s, client.EventAttackResult)
	require.True(t, ev.Result.Mine)
	require.True(t, ev.Result.Hit)
	require.Equal(t, client.StateMyTurn, s.State())

	f.send("YOUR_TURN_AGAIN:")
	expectEvent(t, s, client.EventTurnAgain)
	require.Equal(t, client.StateMyTurn, s.State())

	_, tracking := s.Boards()
	require.Equal(t, game.Hit, tracking[2][3])
}

func TestMissFlipsTurnAndOwnBoardTracksHits(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, true)

	require.NoError(t, s.Attack(7, 7))
	f.recv()

	f.send("ATTACK_RESULT:x=7;y=7;hit=false;sunk=false;game_over=false;attacker_id=p1")
	ev := expectEvent(t, s, client.EventAttackResult)
	require.False(t, ev.Result.Hit)
	require.Equal(t, client.StateOpponentTurn, s.State())

	f.send("OPPONENT_TURN:")
	expectEvent(t, s, client.EventOpponentTurn)

	// Opponent's shot lands on our own board
	f.send("ATTACK_RESULT:x=0;y=0;hit=true;sunk=false;game_over=false;attacker_id=p2")
	ev = expectEvent(t, s, client.EventAttackResult)
	require.False(t, ev.Result.Mine)
	require.Equal(t, client.StateOpponentTurn, s.State())

	own, tracking := s.Boards()
	require.Equal(t, game.Hit, own[0][0])
	require.Equal(t, game.Miss, tracking[7][7])

	f.send("YOUR_TURN:")
	expectEvent(t, s, client.EventYourTurn)
	require.Equal(t, client.StateMyTurn, s.State())
}

func TestSunkShipMarksCellsAndBlockedRing(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, true)

	require.NoError(t, s.Attack(0, 0))
	f.recv()

	f.send("ATTACK_RESULT:x=0;y=0;hit=true;sunk=true;game_over=false;attacker_id=p1;sunk_ship_positions=0:0;blocked_cells=1:0,0:1,1:1")
	ev := expectEvent(t, s, client.EventAttackResult)
	require.True(t, ev.Result.Sunk)
	require.Len(t, ev.Result.SunkShip, 1)
	require.Len(t, ev.Result.Blocked, 3)

	_, tracking := s.Boards()
	require.Equal(t, game.Sunk, tracking[0][0])
	require.Equal(t, game.Blocked, tracking[1][0])
	require.Equal(t, game.Blocked, tracking[0][1])
	require.Equal(t, game.Blocked, tracking[1][1])

	// Sunk keeps the turn
	require.Equal(t, client.StateMyTurn, s.State())
}

func TestGameOverLatches(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, true)

	require.NoError(t, s.Attack(3, 3))
	f.recv()

	f.send("ATTACK_RESULT:x=3;y=3;hit=true;sunk=true;game_over=true;attacker_id=p1;sunk_ship_positions=3:3")
	ev := expectEvent(t, s, client.EventAttackResult)
	require.True(t, ev.Result.GameOver)
	require.Equal(t, client.StateGameOver, s.State())

	f.send("GAME_OVER:winner=Alice")
	ev = expectEvent(t, s, client.EventGameOver)
	require.Equal(t, "Alice", ev.Winner)
	require.True(t, ev.Won)

	// Repeats and stray turn messages after the end report nothing
	f.send("GAME_OVER:winner=Alice")
	f.send("YOUR_TURN:")
	expectNoEvent(t, s, 200*time.Millisecond)

	err := s.Attack(4, 4)
	require.ErrorContains(t, err, "cannot attack in state GameOver")
}

func TestOpponentDisconnectedEndsGame(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, false)

	f.send("OPPONENT_DISCONNECTED:")
	expectEvent(t, s, client.EventOpponentDisconnected)
	require.Equal(t, client.StateGameOver, s.State())

	// The ensuing hangup is not reported as a lost connection
	f.dropClient()
	select {
	case ev, ok := <-s.Events():
		require.False(t, ok, "expected closed event stream, got event %v", ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event stream never closed")
	}
}

func TestConnectionLostMidGame(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, true)

	f.dropClient()
	expectEvent(t, s, client.EventConnectionLost)
	require.Equal(t, client.StateDisconnected, s.State())

	_, ok := <-s.Events()
	require.False(t, ok, "expected closed event stream")
}

func TestChatRoundTripSanitized(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, true)

	require.NoError(t, s.SendChat("gg: well; played=1"))
	chat := f.recv()
	require.Equal(t, network.MsgChatMessage, chat.Type)
	require.Equal(t, "gg well played1", chat.Get(network.KeyText))

	f.send("CHAT_MESSAGE_RECEIVED:sender=Bob;text=hello there")
	ev := expectEvent(t, s, client.EventChatReceived)
	require.Equal(t, "Bob", ev.Sender)
	require.Equal(t, "hello there", ev.Text)
}

func TestConnectRetryAfterFailure(t *testing.T) {
	f := startFakeServer(t)

	s := client.NewSession(client.NewNetClient())
	t.Cleanup(s.Close)

	// Nothing listens on the reserved port; the attempt must fail and
	// leave the session reconnectable instead of stuck mid-connect.
	require.Error(t, s.Connect("127.0.0.1:1", "Alice"))
	require.Equal(t, client.StateDisconnected, s.State())

	require.NoError(t, s.Connect(f.addr(), "Alice"))
	join := f.recv()
	require.Equal(t, network.MsgJoin, join.Type)
	require.Equal(t, "Alice", join.Get(network.KeyName))

	f.send("JOINED:player_name=Alice;player_id=p1")
	expectEvent(t, s, client.EventJoined)
	require.Equal(t, client.StateSearching, s.State())
}

func TestMalformedServerLineIgnored(t *testing.T) {
	f := startFakeServer(t)
	s := startedSession(t, f, false)

	f.send("garbage without separator")
	f.send("YOUR_TURN:")
	expectEvent(t, s, client.EventYourTurn)
	require.Equal(t, client.StateMyTurn, s.State())
}
