// Package game implements the battleship board, ships and attack resolution
package game

import "math/rand"

// CellState represents the state of one board cell
type CellState int

const (
	Empty CellState = iota
	ShipCell
	Miss
	Hit
	Sunk
	Blocked
)

// BoardSize is the side length of the square board
const BoardSize = 10

// FleetSizes is the standard fleet: one 4, two 3s, three 2s, four 1s
var FleetSizes = []int{4, 3, 3, 2, 2, 2, 1, 1, 1, 1}

// Position is a board coordinate
type Position struct {
	X int
	Y int
}

// Ship represents one ship and its hit tally
type Ship struct {
	Size       int
	Horizontal bool
	Positions  []Position
	HitCount   int
}

// NewShip creates an unplaced ship
func NewShip(size int, horizontal bool) *Ship {
	return &Ship{Size: size, Horizontal: horizontal}
}

// IsSunk reports whether every cell of the ship has been hit
func (s *Ship) IsSunk() bool {
	return s.HitCount >= s.Size
}

// Contains reports whether the ship occupies (x, y)
func (s *Ship) Contains(x, y int) bool {
	for _, p := range s.Positions {
		if p.X == x && p.Y == y {
			return true
		}
	}
	return false
}

// Board is one player's 10x10 grid and fleet
type Board struct {
	Size  int
	Grid  [][]CellState
	Ships []*Ship
}

// NewBoard creates an empty board
func NewBoard() *Board {
	grid := make([][]CellState, BoardSize)
	for i := range grid {
		grid[i] = make([]CellState, BoardSize)
	}
	return &Board{Size: BoardSize, Grid: grid}
}

// Clear resets the board to empty with no ships
func (b *Board) Clear() {
	for x := range b.Grid {
		for y := range b.Grid[x] {
			b.Grid[x][y] = Empty
		}
	}
	b.Ships = nil
}

// InBounds reports whether (x, y) lies on the board
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.Size && y >= 0 && y < b.Size
}

// CanPlaceShip checks that a ship of the given size and orientation fits at
// (x, y) with a one-cell buffer: no cell of it may touch another ship,
// diagonals included.
func (b *Board) CanPlaceShip(x, y, size int, horizontal bool) bool {
	for i := 0; i < size; i++ {
		px, py := x, y
		if horizontal {
			px += i
		} else {
			py += i
		}
		if !b.InBounds(px, py) {
			return false
		}

		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				cx, cy := px+dx, py+dy
				if b.InBounds(cx, cy) && b.Grid[cx][cy] == ShipCell {
					return false
				}
			}
		}
	}
	return true
}

// PlaceShip places the ship with its bow at (x, y), recording its cells.
// Returns false without mutating the board if the placement is invalid.
func (b *Board) PlaceShip(ship *Ship, x, y int) bool {
	if !b.CanPlaceShip(x, y, ship.Size, ship.Horizontal) {
		return false
	}

	for i := 0; i < ship.Size; i++ {
		px, py := x, y
		if ship.Horizontal {
			px += i
		} else {
			py += i
		}
		b.Grid[px][py] = ShipCell
		ship.Positions = append(ship.Positions, Position{X: px, Y: py})
	}

	b.Ships = append(b.Ships, ship)
	return true
}

// PlaceShipsRandomly clears the board and places the standard fleet at
// random valid positions
func (b *Board) PlaceShipsRandomly() {
	b.Clear()
	for _, size := range FleetSizes {
		for attempts := 0; attempts < 1000; attempts++ {
			x := rand.Intn(b.Size)
			y := rand.Intn(b.Size)
			horizontal := rand.Intn(2) == 0
			if b.PlaceShip(NewShip(size, horizontal), x, y) {
				break
			}
		}
	}
}

// Attack resolves a shot at (x, y). A hit that completes a ship promotes
// all of its cells to Sunk; gameOver is true once every ship is sunk.
// Shots at cells already in a terminal state resolve as no-ops.
func (b *Board) Attack(x, y int) (hit, sunk, gameOver bool) {
	switch b.Grid[x][y] {
	case Hit, Miss, Sunk, Blocked:
		return false, false, false
	case ShipCell:
		b.Grid[x][y] = Hit

		ship := b.shipAt(x, y)
		if ship != nil {
			ship.HitCount++
			if ship.IsSunk() {
				for _, p := range ship.Positions {
					b.Grid[p.X][p.Y] = Sunk
				}
				return true, true, b.AllShipsSunk()
			}
		}
		return true, false, false
	default:
		b.Grid[x][y] = Miss
		return false, false, false
	}
}

// AllShipsSunk reports whether the whole fleet is sunk
func (b *Board) AllShipsSunk() bool {
	for _, ship := range b.Ships {
		if !ship.IsSunk() {
			return false
		}
	}
	return len(b.Ships) > 0
}

// ShipAt returns the ship occupying (x, y), or nil
func (b *Board) ShipAt(x, y int) *Ship {
	return b.shipAt(x, y)
}

func (b *Board) shipAt(x, y int) *Ship {
	for _, ship := range b.Ships {
		if ship.Contains(x, y) {
			return ship
		}
	}
	return nil
}

// BlockAroundShip marks every empty cell adjacent to the ship (diagonals
// included) as Blocked and returns those cells. Called after the ship is
// sunk: the buffer placement rule means no other ship can occupy the ring,
// so revealing it spares the attacker wasted shots.
func (b *Board) BlockAroundShip(ship *Ship) []Position {
	var blocked []Position
	for _, p := range ship.Positions {
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				cx, cy := p.X+dx, p.Y+dy
				if b.InBounds(cx, cy) && b.Grid[cx][cy] == Empty {
					b.Grid[cx][cy] = Blocked
					blocked = append(blocked, Position{X: cx, Y: cy})
				}
			}
		}
	}
	return blocked
}
