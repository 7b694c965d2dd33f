package client

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CommandKind classifies one parsed turn command
type CommandKind int

const (
	CommandAttack CommandKind = iota
	CommandChat
	CommandQuit
)

// TurnCommand is one action entered at the turn prompt
type TurnCommand struct {
	Kind CommandKind
	X    int
	Y    int
	Text string
}

// InputHandler reads and validates user input from stdin
type InputHandler struct {
	scanner *bufio.Scanner
	display *Display
}

// NewInputHandler creates an input handler
func NewInputHandler(display *Display) *InputHandler {
	return &InputHandler{
		scanner: bufio.NewScanner(os.Stdin),
		display: display,
	}
}

// GetPlayerName prompts for and validates the player name. The wire format
// forbids delimiter characters, so they are rejected here.
func (ih *InputHandler) GetPlayerName() string {
	for {
		fmt.Print("Enter your name (1-32 characters): ")

		if !ih.scanner.Scan() {
			// Stdin is gone, fall back to a default name
			return "Player"
		}

		name := strings.TrimSpace(ih.scanner.Text())
		if name == "" || len(name) > 32 {
			ih.display.PrintWarning("Name must be 1-32 characters")
			continue
		}
		if strings.ContainsAny(name, ":;=") {
			ih.display.PrintWarning("Name must not contain ':', ';' or '='")
			continue
		}
		return name
	}
}

// GetTurnCommand prompts until a valid turn command is entered:
// "x y" to attack, "chat <text>" to talk, "quit" to leave
func (ih *InputHandler) GetTurnCommand(boardSize int) TurnCommand {
	for {
		fmt.Printf("Your move (x y | chat <text> | quit): ")

		if !ih.scanner.Scan() {
			return TurnCommand{Kind: CommandQuit}
		}

		line := strings.TrimSpace(ih.scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "quit":
			return TurnCommand{Kind: CommandQuit}
		case strings.HasPrefix(line, "chat "):
			return TurnCommand{Kind: CommandChat, Text: strings.TrimSpace(line[len("chat "):])}
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			ih.display.PrintWarning("Enter coordinates as two numbers, e.g. '3 4'")
			continue
		}

		x, err1 := strconv.Atoi(fields[0])
		y, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			ih.display.PrintWarning("Coordinates must be numbers")
			continue
		}
		if x < 0 || x >= boardSize || y < 0 || y >= boardSize {
			ih.display.PrintWarning(fmt.Sprintf("Coordinates must be between 0 and %d", boardSize-1))
			continue
		}

		return TurnCommand{Kind: CommandAttack, X: x, Y: y}
	}
}
