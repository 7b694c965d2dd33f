package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleship-game/internal/game"
)

func TestPlaceShip(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(b *game.Board)
		size       int
		horizontal bool
		x, y       int
		want       bool
	}{
		{
			name: "fits on empty board",
			size: 4, horizontal: true, x: 0, y: 0,
			want: true,
		},
		{
			name: "horizontal overflow",
			size: 4, horizontal: true, x: 7, y: 0,
			want: false,
		},
		{
			name: "vertical overflow",
			size: 3, horizontal: false, x: 0, y: 8,
			want: false,
		},
		{
			name: "overlaps existing ship",
			setup: func(b *game.Board) {
				require.True(t, b.PlaceShip(game.NewShip(2, true), 2, 2))
			},
			size: 2, horizontal: true, x: 3, y: 2,
			want: false,
		},
		{
			name: "adjacent cell rejected",
			setup: func(b *game.Board) {
				require.True(t, b.PlaceShip(game.NewShip(2, true), 2, 2))
			},
			size: 1, horizontal: true, x: 4, y: 2,
			want: false,
		},
		{
			name: "diagonal neighbor rejected",
			setup: func(b *game.Board) {
				require.True(t, b.PlaceShip(game.NewShip(2, true), 2, 2))
			},
			size: 1, horizontal: true, x: 4, y: 3,
			want: false,
		},
		{
			name: "one cell of clearance is enough",
			setup: func(b *game.Board) {
				require.True(t, b.PlaceShip(game.NewShip(2, true), 2, 2))
			},
			size: 1, horizontal: true, x: 5, y: 2,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := game.NewBoard()
			if tt.setup != nil {
				tt.setup(board)
			}
			got := board.PlaceShip(game.NewShip(tt.size, tt.horizontal), tt.x, tt.y)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttack(t *testing.T) {
	board := game.NewBoard()
	require.True(t, board.PlaceShip(game.NewShip(2, true), 0, 0))
	require.True(t, board.PlaceShip(game.NewShip(1, true), 5, 5))

	// Miss.
	hit, sunk, over := board.Attack(9, 9)
	assert.False(t, hit)
	assert.False(t, sunk)
	assert.False(t, over)
	assert.Equal(t, game.Miss, board.Grid[9][9])

	// Hit without sinking.
	hit, sunk, over = board.Attack(0, 0)
	assert.True(t, hit)
	assert.False(t, sunk)
	assert.False(t, over)
	assert.Equal(t, game.Hit, board.Grid[0][0])

	// Second hit sinks the ship and promotes both cells.
	hit, sunk, over = board.Attack(1, 0)
	assert.True(t, hit)
	assert.True(t, sunk)
	assert.False(t, over)
	assert.Equal(t, game.Sunk, board.Grid[0][0])
	assert.Equal(t, game.Sunk, board.Grid[1][0])

	// Sinking the last ship ends the game.
	hit, sunk, over = board.Attack(5, 5)
	assert.True(t, hit)
	assert.True(t, sunk)
	assert.True(t, over)
	assert.True(t, board.AllShipsSunk())
}

func TestAttackTerminalCellsAreNoOps(t *testing.T) {
	board := game.NewBoard()
	require.True(t, board.PlaceShip(game.NewShip(2, true), 0, 0))

	board.Attack(9, 9)
	board.Attack(0, 0)

	for _, pos := range []game.Position{{X: 9, Y: 9}, {X: 0, Y: 0}} {
		before := board.Grid[pos.X][pos.Y]
		hit, sunk, over := board.Attack(pos.X, pos.Y)
		assert.False(t, hit)
		assert.False(t, sunk)
		assert.False(t, over)
		assert.Equal(t, before, board.Grid[pos.X][pos.Y])
	}
}

func TestBlockAroundShip(t *testing.T) {
	board := game.NewBoard()
	ship := game.NewShip(1, true)
	require.True(t, board.PlaceShip(ship, 0, 0))
	require.True(t, board.PlaceShip(game.NewShip(1, true), 5, 5))

	_, sunk, _ := board.Attack(0, 0)
	require.True(t, sunk)

	blocked := board.BlockAroundShip(ship)

	// Corner ship: exactly the three in-bounds neighbors.
	assert.ElementsMatch(t, []game.Position{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}, blocked)
	for _, p := range blocked {
		assert.Equal(t, game.Blocked, board.Grid[p.X][p.Y])
	}

	// Blocked cells are terminal for later attacks.
	hit, _, _ := board.Attack(1, 1)
	assert.False(t, hit)
	assert.Equal(t, game.Blocked, board.Grid[1][1])
}

func TestPlaceShipsRandomly(t *testing.T) {
	for i := 0; i < 20; i++ {
		board := game.NewBoard()
		board.PlaceShipsRandomly()

		require.Len(t, board.Ships, len(game.FleetSizes))

		cells := 0
		for _, ship := range board.Ships {
			assert.Len(t, ship.Positions, ship.Size)
			cells += ship.Size
		}

		occupied := 0
		for x := 0; x < board.Size; x++ {
			for y := 0; y < board.Size; y++ {
				if board.Grid[x][y] == game.ShipCell {
					occupied++
				}
			}
		}
		assert.Equal(t, cells, occupied)
	}
}
