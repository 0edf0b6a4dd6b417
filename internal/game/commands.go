package game

import "errors"

// Validation failures. These are reported to the originating connection only
// and never mutate state.
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrMountainClaim      = errors.New("cannot claim mountain")
	ErrNotAdjacentClaim   = errors.New("territory must be adjacent to your existing territories")
	ErrSourceNotOwned     = errors.New("source tile does not belong to you")
	ErrNoArmies           = errors.New("no armies to move")
	ErrNotAdjacent        = errors.New("target must be adjacent")
	ErrTileNotOwned       = errors.New("tile does not belong to you")
	ErrNotEnoughArmies    = errors.New("not enough armies (need 200)")
)

// Reason is the resolved outcome of a move, reported in moveResult events.
type Reason string

const (
	ReasonOwnTerritory      Reason = "own_territory"
	ReasonConquered         Reason = "conquered"
	ReasonConqueredVillage  Reason = "conquered_village"
	ReasonBattleLost        Reason = "battle_lost"
	ReasonVillageBattleLost Reason = "village_battle_lost"
	ReasonMountain          Reason = "mountain"
)

// MoveResult describes how a validated move resolved. Winner and Loser are set
// only when the move captured the last opposing king and ended the match.
type MoveResult struct {
	Success     bool
	Reason      Reason
	ArmiesMoved int
	Eliminated  *Player
	Winner      *Player
	Loser       *Player
}

// ClaimTerritory is the non-combat expansion used by the simple FFA variant:
// the target must be in bounds, not a mountain, and 4-adjacent to an owned
// tile once the player holds any territory.
func (s *State) ClaimTerritory(p *Player, x, y int) error {
	if !s.Board.InBounds(x, y) {
		return ErrInvalidCoordinates
	}
	if s.Board.Terrain[x][y] == TerrainMountain {
		return ErrMountainClaim
	}
	if p.Territories > 0 && !s.adjacentToOwned(x, y, p.Slot) {
		return ErrNotAdjacentClaim
	}

	old := s.Board.Terrain[x][y]
	owner := OwnerValue(p.Slot)
	if old == owner {
		return nil
	}
	if old >= 2 {
		if prev := s.PlayerBySlot(old - 2); prev != nil {
			prev.Territories--
		}
	}
	s.Board.Terrain[x][y] = owner
	p.Territories++
	return nil
}

func (s *State) adjacentToOwned(x, y, slot int) bool {
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, ny := x+d[0], y+d[1]
		if s.Board.InBounds(nx, ny) && s.Board.IsOwnedBy(nx, ny, slot) {
			return true
		}
	}
	return false
}

// MoveArmies validates and resolves the primary mechanic. Validation failures
// return an error with no mutation; battle losses are not errors, they return
// a MoveResult with Success=false and the armies spent per the combat rules.
func (s *State) MoveArmies(p *Player, fromX, fromY, toX, toY int, split bool) (MoveResult, error) {
	b := s.Board
	if !b.InBounds(fromX, fromY) || !b.InBounds(toX, toY) {
		return MoveResult{}, ErrInvalidCoordinates
	}
	if !b.IsOwnedBy(fromX, fromY, p.Slot) {
		return MoveResult{}, ErrSourceNotOwned
	}
	if b.Armies[fromX][fromY] <= 0 {
		return MoveResult{}, ErrNoArmies
	}
	if !Adjacent(fromX, fromY, toX, toY) {
		return MoveResult{}, ErrNotAdjacent
	}

	// A mountain rejects the order before any armies are committed.
	if b.Terrain[toX][toY] == TerrainMountain {
		return MoveResult{Reason: ReasonMountain}, nil
	}

	total := b.Armies[fromX][fromY]
	var moving int
	switch {
	case split:
		moving = total / 2
		b.Armies[fromX][fromY] = total - moving
	default:
		// King and ordinary tiles both retain exactly one army.
		moving = total - 1
		if moving < 0 {
			moving = 0
		}
		b.Armies[fromX][fromY] = 1
	}

	res := MoveResult{ArmiesMoved: moving}
	owner := OwnerValue(p.Slot)

	switch target := b.Terrain[toX][toY]; {
	case target == TerrainVillage:
		garrison := b.Armies[toX][toY]
		if moving > garrison {
			b.Terrain[toX][toY] = owner
			b.Armies[toX][toY] = max(1, moving-garrison)
			p.Territories++
			res.Success = true
			res.Reason = ReasonConqueredVillage
		} else {
			// Attack consumed; the garrison is worn down, no retreat.
			b.Armies[toX][toY] = max(0, garrison-moving)
			res.Reason = ReasonVillageBattleLost
		}

	case target == owner:
		b.Armies[toX][toY] += moving
		res.Success = true
		res.Reason = ReasonOwnTerritory

	default: // enemy or unclaimed
		defenders := b.Armies[toX][toY]
		if moving > defenders {
			b.Terrain[toX][toY] = owner
			b.Armies[toX][toY] = max(1, moving-defenders)
			p.Territories++
			res.Success = true
			res.Reason = ReasonConquered
			if target >= 2 {
				s.resolveCapture(target-2, toX, toY, &res)
			}
		} else {
			b.Armies[toX][toY] = max(0, defenders-moving)
			res.Reason = ReasonBattleLost
		}
	}

	return res, nil
}

// resolveCapture settles the bookkeeping after an owned tile changed hands:
// the previous owner loses a territory, and losing the king tile eliminates
// them. The match ends once a single king-holder remains.
func (s *State) resolveCapture(prevSlot, x, y int, res *MoveResult) {
	prev := s.PlayerBySlot(prevSlot)
	if prev == nil {
		return
	}
	prev.Territories--
	if !prev.HasKingAt(x, y) || prev.Eliminated {
		return
	}

	prev.Eliminated = true
	res.Eliminated = prev
	if survivors := s.Survivors(); len(survivors) == 1 {
		res.Winner = survivors[0]
		res.Loser = prev
	}
}

// PurchaseWeapon deducts the weapon cost from an owned tile and returns the
// remaining army count. The weapon's gameplay effect is intentionally stubbed.
func (s *State) PurchaseWeapon(p *Player, x, y int) (int, error) {
	if !s.Board.InBounds(x, y) {
		return 0, ErrInvalidCoordinates
	}
	if !s.Board.IsOwnedBy(x, y, p.Slot) {
		return 0, ErrTileNotOwned
	}
	if s.Board.Armies[x][y] < s.rules.WeaponCost {
		return 0, ErrNotEnoughArmies
	}
	s.Board.Armies[x][y] -= s.rules.WeaponCost
	return s.Board.Armies[x][y], nil
}

// Tick advances one half-turn. Regeneration happens only on even turn values
// (once per full turn): every surviving king gains one army, every captured
// village gains one army, and every GlobalBonusEvery half-turns all owned
// tiles gain one army.
func (s *State) Tick() {
	s.Turn++
	if s.Turn%2 != 0 {
		return
	}

	for _, id := range s.Order {
		p := s.Players[id]
		if p == nil || p.Eliminated {
			continue
		}
		s.Board.Armies[p.KingX][p.KingY]++
	}

	for x := 0; x < s.Board.Size; x++ {
		for y := 0; y < s.Board.Size; y++ {
			if s.Board.Villages[x][y] && s.Board.Terrain[x][y] >= 2 {
				s.Board.Armies[x][y]++
			}
		}
	}

	if s.rules.GlobalBonusEvery > 0 && s.Turn%s.rules.GlobalBonusEvery == 0 {
		for x := 0; x < s.Board.Size; x++ {
			for y := 0; y < s.Board.Size; y++ {
				if s.Board.Terrain[x][y] >= 2 {
					s.Board.Armies[x][y]++
				}
			}
		}
	}
}
