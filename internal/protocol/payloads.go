package protocol

// Inbound payloads.

type JoinGame struct {
	PlayerName string `json:"playerName"`
}

type JoinLobby struct {
	Name     string `json:"name"`
	GameMode string `json:"gameMode"`
}

type ClaimTerritory struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	PlayerID string `json:"playerId"`
}

// StartGame optionally overrides the map-generation rates; they apply at the
// next board generation. Sending it also counts as a force-start vote.
type StartGame struct {
	MountainSpawnRate *int `json:"mountainSpawnRate,omitempty"`
	VillageSpawnRate  *int `json:"villageSpawnRate,omitempty"`
}

type ForceStart struct {
	PlayerID string `json:"playerId"`
}

type MoveArmies struct {
	FromX    int    `json:"fromX"`
	FromY    int    `json:"fromY"`
	ToX      int    `json:"toX"`
	ToY      int    `json:"toY"`
	PlayerID string `json:"playerId"`
	IsSplit  bool   `json:"isSplit"`
}

type QueuedMove struct {
	FromX   int  `json:"fromX"`
	FromY   int  `json:"fromY"`
	ToX     int  `json:"toX"`
	ToY     int  `json:"toY"`
	IsSplit bool `json:"isSplit"`
}

type QueueMoves struct {
	Moves    []QueuedMove `json:"moves"`
	PlayerID string       `json:"playerId"`
}

type Quit struct {
	PlayerID string `json:"playerId"`
}

type Chat struct {
	PlayerID string `json:"playerId"`
	Message  string `json:"message"`
}

type PurchaseWeapon struct {
	PlayerID   string `json:"playerId"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	WeaponType string `json:"weaponType"`
}

// Outbound payloads.

type PlayerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Territories int    `json:"territories"`
	KingX       int    `json:"kingX"`
	KingY       int    `json:"kingY"`
}

// GameState is the full snapshot broadcast after every mutating event and
// every tick, and served by GET /api/gamestate.
type GameState struct {
	Map         [][]int      `json:"map"`
	Armies      [][]int      `json:"armies"`
	Players     []PlayerInfo `json:"players"`
	GameStarted bool         `json:"gameStarted"`
	Turn        int          `json:"turn"`
}

type JoinSuccess struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Color      string `json:"color"`
}

type LobbyPlayer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type LobbyJoined struct {
	PlayerID       string        `json:"playerId"`
	GameMode       string        `json:"gameMode"`
	MaxPlayers     int           `json:"maxPlayers"`
	CurrentPlayers int           `json:"currentPlayers"`
	Players        []LobbyPlayer `json:"players"`
}

type LobbyUpdate struct {
	CurrentPlayers int           `json:"currentPlayers"`
	Players        []LobbyPlayer `json:"players"`
}

type ForceStartUpdate struct {
	Votes []string `json:"votes"`
}

type MoveResult struct {
	Success bool   `json:"success"`
	FromX   int    `json:"fromX"`
	FromY   int    `json:"fromY"`
	ToX     int    `json:"toX"`
	ToY     int    `json:"toY"`
	Reason  string `json:"reason"`
}

type GameOver struct {
	Won    bool   `json:"won"`
	Winner string `json:"winner,omitempty"`
	Loser  string `json:"loser,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type ChatMessage struct {
	Player    string `json:"player"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type WeaponPurchased struct {
	WeaponType      string `json:"weaponType"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	RemainingArmies int    `json:"remainingArmies"`
}
