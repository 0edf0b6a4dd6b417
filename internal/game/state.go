package game

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"
)

var (
	ErrNameRequired     = errors.New("player name is required")
	ErrNameTaken        = errors.New("player name already taken")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
)

// Rules carries the simulation tuning applied to one session.
type Rules struct {
	BoardSize        int
	MountainRate     int
	VillageRate      int
	GarrisonMin      int
	GarrisonMax      int
	WeaponCost       int
	GlobalBonusEvery int // in half-turns
}

// State is the shared mutable world: board, player registry and match
// lifecycle. It is not safe for concurrent use; the session actor owns it and
// serializes all access.
type State struct {
	Board   *Board
	Players map[string]*Player
	Order   []string // player ids in join order
	Started bool
	Turn    int

	MountainRate int
	VillageRate  int
	Votes        map[string]struct{}

	rules    Rules
	rng      *rand.Rand
	nextSlot int
}

func NewState(rules Rules, rng *rand.Rand) *State {
	s := &State{
		Players:      make(map[string]*Player),
		MountainRate: rules.MountainRate,
		VillageRate:  rules.VillageRate,
		Votes:        make(map[string]struct{}),
		rules:        rules,
		rng:          rng,
	}
	s.Board = NewBoard(rules.BoardSize)
	s.generate()
	return s
}

func (s *State) generate() {
	s.Board.Generate(s.rng, s.MountainRate, s.VillageRate, s.rules.GarrisonMin, s.rules.GarrisonMax)
}

// Reset returns the session to an empty lobby: fresh board from the configured
// spawn rates, registry and votes cleared, turn counter back to zero. Slots
// restart as well since no player survives a reset.
func (s *State) Reset() {
	s.Started = false
	s.Turn = 0
	s.Players = make(map[string]*Player)
	s.Order = nil
	s.Votes = make(map[string]struct{})
	s.nextSlot = 0
	s.generate()
}

// SetSpawnRates records the map-generation percentages used by the next
// Reset. Values are clamped to [0, 100].
func (s *State) SetSpawnRates(mountain, village *int) {
	if mountain != nil {
		s.MountainRate = clampPercent(*mountain)
	}
	if village != nil {
		s.VillageRate = clampPercent(*village)
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// AddPlayer joins a new player: enforces display-name uniqueness, assigns the
// next slot and palette color, and places the king on a uniformly random empty
// cell with a single army. Force-start votes are cleared on every roster
// change.
func (s *State) AddPlayer(clientID, name string) (*Player, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	for _, p := range s.Players {
		if p.Name == name {
			return nil, ErrNameTaken
		}
	}

	slot := s.nextSlot
	s.nextSlot++

	p := &Player{
		ID:          uuid.NewString(),
		Name:        name,
		Color:       Colors[slot%len(Colors)],
		Slot:        slot,
		ClientID:    clientID,
		Territories: 1,
	}

	for {
		x, y := s.rng.Intn(s.Board.Size), s.rng.Intn(s.Board.Size)
		if s.Board.Terrain[x][y] != TerrainEmpty {
			continue
		}
		p.KingX, p.KingY = x, y
		s.Board.Terrain[x][y] = OwnerValue(slot)
		s.Board.Armies[x][y] = 1
		break
	}

	s.Players[p.ID] = p
	s.Order = append(s.Order, p.ID)
	s.clearVotes()
	return p, nil
}

// RemovePlayer drops a player from the registry. Their tiles stay on the board
// as capturable territory. Votes are cleared on every roster change.
func (s *State) RemovePlayer(id string) *Player {
	p, ok := s.Players[id]
	if !ok {
		return nil
	}
	delete(s.Players, id)
	for i, pid := range s.Order {
		if pid == id {
			s.Order = append(s.Order[:i], s.Order[i+1:]...)
			break
		}
	}
	s.clearVotes()
	return p
}

func (s *State) clearVotes() {
	if len(s.Votes) > 0 {
		s.Votes = make(map[string]struct{})
	}
}

// PlayerBySlot resolves a board owner code back to its player. Returns nil for
// slots of players who already left.
func (s *State) PlayerBySlot(slot int) *Player {
	for _, p := range s.Players {
		if p.Slot == slot {
			return p
		}
	}
	return nil
}

func (s *State) PlayerByClient(clientID string) *Player {
	for _, id := range s.Order {
		if p := s.Players[id]; p != nil && p.ClientID == clientID {
			return p
		}
	}
	return nil
}

// ToggleVote flips the player's force-start vote.
func (s *State) ToggleVote(id string) {
	if _, ok := s.Votes[id]; ok {
		delete(s.Votes, id)
	} else {
		s.Votes[id] = struct{}{}
	}
}

// AddVote registers a force-start vote without toggling.
func (s *State) AddVote(id string) { s.Votes[id] = struct{}{} }

// VotesNeeded is the majority threshold: ceil(playerCount / 2).
func (s *State) VotesNeeded() int { return (len(s.Players) + 1) / 2 }

// VoteIDs lists voting player ids in join order.
func (s *State) VoteIDs() []string {
	ids := make([]string, 0, len(s.Votes))
	for _, id := range s.Order {
		if _, ok := s.Votes[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CanStart reports whether the force-start threshold is met. At least two
// players are always required.
func (s *State) CanStart() bool {
	return len(s.Players) >= 2 && len(s.Votes) >= s.VotesNeeded()
}

// Start transitions the lobby into a running match.
func (s *State) Start() {
	s.Started = true
	s.clearVotes()
}

// Survivors returns the players still holding their king, in join order.
func (s *State) Survivors() []*Player {
	var out []*Player
	for _, id := range s.Order {
		if p := s.Players[id]; p != nil && !p.Eliminated {
			out = append(out, p)
		}
	}
	return out
}
