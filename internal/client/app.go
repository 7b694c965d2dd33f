package client

import (
	"fmt"

	"battleship-game/internal/game"
	"battleship-game/pkg/logger"
)

// App is the interactive terminal client: it drives a Session from stdin
// and renders its event stream
type App struct {
	serverAddr string
	session    *Session
	display    *Display
	input      *InputHandler
	logger     *logger.Logger
}

// NewApp creates the client application
func NewApp(serverAddr string) *App {
	display := NewDisplay()
	return &App{
		serverAddr: serverAddr,
		session:    NewSession(NewNetClient()),
		display:    display,
		input:      NewInputHandler(display),
		logger:     logger.Client,
	}
}

// Run connects, plays one match and returns when it ends
func (a *App) Run() error {
	a.display.PrintBanner()

	name := a.input.GetPlayerName()
	if err := a.session.Connect(a.serverAddr, name); err != nil {
		a.display.PrintError(fmt.Sprintf("Failed to connect: %v", err))
		return err
	}
	a.display.PrintServerStatus(fmt.Sprintf("Connected to %s", a.serverAddr))

	for ev := range a.session.Events() {
		done, err := a.handleEvent(ev)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

// Close drops the session
func (a *App) Close() {
	a.session.Close()
}

func (a *App) handleEvent(ev Event) (done bool, err error) {
	switch ev.Type {
	case EventJoined:
		a.display.PrintServerStatus(ev.Status)

	case EventMatchFound:
		a.display.PrintMatchFound(a.session.OpponentName())
		a.placeFleet()

	case EventPlacementConfirmed:
		a.display.PrintServerStatus(ev.Status)

	case EventGameStarted:
		a.display.PrintGameStart(ev.YourTurn, a.session.OpponentName())
		if ev.YourTurn {
			done = a.takeTurn()
		}

	case EventYourTurn:
		a.display.PrintInfo("Your turn.")
		done = a.takeTurn()

	case EventTurnAgain:
		a.display.PrintInfo("Hit! Fire again.")
		done = a.takeTurn()

	case EventOpponentTurn:
		a.display.PrintInfo(fmt.Sprintf("Waiting for %s...", a.session.OpponentName()))

	case EventAttackResult:
		a.display.PrintAttackResult(ev.Result, a.session.OpponentName())
		own, tracking := a.session.Boards()
		a.display.PrintBoards(own, tracking)

	case EventGameOver:
		a.display.PrintGameOver(ev.Winner, ev.Won)
		done = true

	case EventOpponentLeft, EventOpponentDisconnected:
		a.display.PrintWarning(ev.Status)
		a.display.PrintGameOver(a.session.PlayerName(), true)
		done = true

	case EventChatReceived:
		a.display.PrintChat(ev.Sender, ev.Text)

	case EventServerError:
		a.display.PrintError(fmt.Sprintf("Server: %s", ev.Status))
		if a.session.State() == StateMyTurn {
			done = a.takeTurn()
		}

	case EventConnectionLost:
		a.display.PrintError(ev.Status)
		err = fmt.Errorf("connection lost")
	}
	return done, err
}

// placeFleet auto-places the standard fleet and submits it
func (a *App) placeFleet() {
	board := game.NewBoard()
	board.PlaceShipsRandomly()

	a.display.PrintInfo(fmt.Sprintf("Placing your fleet (%d ships)...", len(board.Ships)))
	if err := a.session.PlaceFleet(board); err != nil {
		a.display.PrintError(fmt.Sprintf("Failed to place fleet: %v", err))
		return
	}

	own, tracking := a.session.Boards()
	a.display.PrintBoards(own, tracking)
	a.display.PrintInfo("Fleet submitted. Waiting for the opponent to finish placing...")
}

// takeTurn prompts for commands until an attack is on the wire or the
// player quits. Returns true when the player quit.
func (a *App) takeTurn() bool {
	for {
		cmd := a.input.GetTurnCommand(game.BoardSize)

		switch cmd.Kind {
		case CommandQuit:
			a.display.PrintInfo("Leaving the game...")
			a.session.Leave()
			return true

		case CommandChat:
			if err := a.session.SendChat(cmd.Text); err != nil {
				a.display.PrintError(fmt.Sprintf("Failed to send chat: %v", err))
			}

		case CommandAttack:
			if err := a.session.Attack(cmd.X, cmd.Y); err != nil {
				a.display.PrintWarning(err.Error())
				continue
			}
			return false
		}
	}
}
