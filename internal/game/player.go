package game

// Colors is the fixed palette applied by join slot; mirrors the territory
// colors the client renders.
var Colors = []string{
	"#EF4444", // red
	"#3B82F6", // blue
	"#10B981", // green
	"#F59E0B", // yellow
	"#8B5CF6", // purple
	"#EC4899", // pink
	"#06B6D4", // cyan
	"#84CC16", // lime
}

// Player is one connected participant. Slot is the stable ownership slot
// assigned at join time and never reused within a match; the board encodes
// ownership as OwnerValue(Slot).
type Player struct {
	ID          string
	Name        string
	Color       string
	Slot        int
	ClientID    string
	Territories int
	KingX       int
	KingY       int
	Eliminated  bool
}

// HasKingAt reports whether (x, y) is this player's king tile.
func (p *Player) HasKingAt(x, y int) bool {
	return p.KingX == x && p.KingY == y
}
