package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"battleship-game/internal/game"
)

// Display renders client output with consistent colors
type Display struct {
	serverColor  *color.Color
	gameColor    *color.Color
	hitColor     *color.Color
	missColor    *color.Color
	sunkColor    *color.Color
	winColor     *color.Color
	loseColor    *color.Color
	warningColor *color.Color
	errorColor   *color.Color
	infoColor    *color.Color
	chatColor    *color.Color
}

// NewDisplay creates a display with the configured color scheme
func NewDisplay() *Display {
	return &Display{
		serverColor:  color.New(color.FgCyan, color.Bold),
		gameColor:    color.New(color.FgYellow, color.Bold),
		hitColor:     color.New(color.FgRed, color.Bold),
		missColor:    color.New(color.FgBlue),
		sunkColor:    color.New(color.FgRed, color.Bold, color.BgBlack),
		winColor:     color.New(color.FgGreen, color.Bold),
		loseColor:    color.New(color.FgRed, color.Bold),
		warningColor: color.New(color.FgYellow),
		errorColor:   color.New(color.FgRed),
		infoColor:    color.New(color.FgWhite),
		chatColor:    color.New(color.FgMagenta),
	}
}

// PrintBanner displays the game banner
func (d *Display) PrintBanner() {
	banner := `
╔═══════════════════════════════════════╗
║           BATTLESHIP CLIENT           ║
║          Sink them all first          ║
╚═══════════════════════════════════════╝
`
	d.gameColor.Println(banner)
}

// PrintServerStatus displays server connection status
func (d *Display) PrintServerStatus(message string) {
	d.serverColor.Printf("[%s] [SERVER] %s\n", d.timestamp(), message)
}

// PrintInfo displays general information
func (d *Display) PrintInfo(message string) {
	d.infoColor.Println(message)
}

// PrintWarning displays a warning
func (d *Display) PrintWarning(message string) {
	d.warningColor.Printf("[%s] [WARNING] %s\n", d.timestamp(), message)
}

// PrintError displays an error
func (d *Display) PrintError(message string) {
	d.errorColor.Printf("[%s] [ERROR] %s\n", d.timestamp(), message)
}

// PrintMatchFound announces the opponent
func (d *Display) PrintMatchFound(opponent string) {
	d.gameColor.Printf("[%s] [MATCH] Opponent found: %s\n", d.timestamp(), opponent)
}

// PrintGameStart announces the first move
func (d *Display) PrintGameStart(yourTurn bool, opponent string) {
	if yourTurn {
		d.gameColor.Printf("[%s] [GAME START] You move first. Fire away!\n", d.timestamp())
	} else {
		d.gameColor.Printf("[%s] [GAME START] %s moves first...\n", d.timestamp(), opponent)
	}
}

// PrintAttackResult reports one shot outcome
func (d *Display) PrintAttackResult(result *AttackResult, opponent string) {
	who := opponent
	if result.Mine {
		who = "You"
	}

	switch {
	case result.Sunk:
		d.sunkColor.Printf("[%s] [SUNK] %s sank a ship at (%d,%d)!\n",
			d.timestamp(), who, result.X, result.Y)
	case result.Hit:
		d.hitColor.Printf("[%s] [HIT] %s hit at (%d,%d)\n",
			d.timestamp(), who, result.X, result.Y)
	default:
		d.missColor.Printf("[%s] [MISS] %s missed at (%d,%d)\n",
			d.timestamp(), who, result.X, result.Y)
	}
}

// PrintChat displays a received chat line
func (d *Display) PrintChat(sender, text string) {
	d.chatColor.Printf("[%s] [CHAT] %s: %s\n", d.timestamp(), sender, text)
}

// PrintGameOver displays the final result
func (d *Display) PrintGameOver(winner string, won bool) {
	if won {
		d.winColor.Printf("\n[%s] [VICTORY] You won the game!\n", d.timestamp())
	} else {
		d.loseColor.Printf("\n[%s] [DEFEAT] %s won the game.\n", d.timestamp(), winner)
	}
}

// PrintBoards renders the player's own fleet and the tracking grid side
// by side. Own board shows ships; the tracking board only shows shot
// outcomes.
func (d *Display) PrintBoards(own, tracking [][]game.CellState) {
	if own == nil || tracking == nil {
		return
	}

	size := len(own)
	header := "   "
	for x := 0; x < size; x++ {
		header += fmt.Sprintf("%d ", x)
	}

	d.infoColor.Printf("\n%-25s %s\n", "YOUR FLEET", "TARGET GRID")
	d.infoColor.Printf("%-25s %s\n", header, header)

	for y := 0; y < size; y++ {
		var left, right strings.Builder
		left.WriteString(fmt.Sprintf("%2d ", y))
		right.WriteString(fmt.Sprintf("%2d ", y))
		for x := 0; x < size; x++ {
			left.WriteString(cellRune(own[x][y], true) + " ")
			right.WriteString(cellRune(tracking[x][y], false) + " ")
		}
		d.infoColor.Printf("%-25s %s\n", left.String(), right.String())
	}
	fmt.Println()
}

func cellRune(state game.CellState, showShips bool) string {
	switch state {
	case game.ShipCell:
		if showShips {
			return "#"
		}
		return "."
	case game.Miss:
		return "o"
	case game.Hit:
		return "x"
	case game.Sunk:
		return "X"
	case game.Blocked:
		return "-"
	default:
		return "."
	}
}

func (d *Display) timestamp() string {
	return time.Now().Format("15:04:05")
}
