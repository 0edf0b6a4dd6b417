package game

import "math/rand"

// Terrain codes stored in Board.Terrain. Values >= 2 mean the cell is owned by
// the player whose slot is value-2 (see OwnerValue).
const (
	TerrainMountain = -1
	TerrainVillage  = -2
	TerrainEmpty    = 0
)

// Board is the dense grid: terrain/owner codes and army counts in two parallel
// matrices, plus a flag matrix remembering which cells were generated as
// villages so captured villages keep producing armies.
type Board struct {
	Size     int
	Terrain  [][]int
	Armies   [][]int
	Villages [][]bool
}

func NewBoard(size int) *Board {
	b := &Board{
		Size:     size,
		Terrain:  make([][]int, size),
		Armies:   make([][]int, size),
		Villages: make([][]bool, size),
	}
	for x := 0; x < size; x++ {
		b.Terrain[x] = make([]int, size)
		b.Armies[x] = make([]int, size)
		b.Villages[x] = make([]bool, size)
	}
	return b
}

// Generate rolls fresh terrain for every cell. Rates are percentages: a roll
// below mountainRate makes a mountain, below mountainRate+villageRate a village
// seeded with a garrison drawn uniformly from [garrisonMin, garrisonMax]. All
// other cells are empty land.
func (b *Board) Generate(rng *rand.Rand, mountainRate, villageRate, garrisonMin, garrisonMax int) {
	for x := 0; x < b.Size; x++ {
		for y := 0; y < b.Size; y++ {
			b.Terrain[x][y] = TerrainEmpty
			b.Armies[x][y] = 0
			b.Villages[x][y] = false

			roll := rng.Intn(100)
			if roll < mountainRate {
				b.Terrain[x][y] = TerrainMountain
			} else if roll < mountainRate+villageRate {
				b.Terrain[x][y] = TerrainVillage
				b.Armies[x][y] = garrisonMin + rng.Intn(garrisonMax-garrisonMin+1)
				b.Villages[x][y] = true
			}
		}
	}
}

// OwnerValue is the single source of truth for the ownership encoding: the
// terrain code of a cell owned by the player holding the given slot.
func OwnerValue(slot int) int { return slot + 2 }

func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.Size && y >= 0 && y < b.Size
}

func (b *Board) IsOwnedBy(x, y, slot int) bool {
	return b.Terrain[x][y] == OwnerValue(slot)
}

// Owned reports whether any player holds the cell.
func (b *Board) Owned(x, y int) bool { return b.Terrain[x][y] >= 2 }

// Adjacent reports 4-adjacency (up/down/left/right, no diagonals).
func Adjacent(x1, y1, x2, y2 int) bool {
	dx := x1 - x2
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y2
	if dy < 0 {
		dy = -dy
	}
	return dx+dy == 1
}

// CopyTerrain and CopyArmies return deep copies for snapshots handed to
// writer goroutines.
func (b *Board) CopyTerrain() [][]int {
	out := make([][]int, b.Size)
	for x := range b.Terrain {
		out[x] = make([]int, b.Size)
		copy(out[x], b.Terrain[x])
	}
	return out
}

func (b *Board) CopyArmies() [][]int {
	out := make([][]int, b.Size)
	for x := range b.Armies {
		out[x] = make([]int, b.Size)
		copy(out[x], b.Armies[x])
	}
	return out
}
