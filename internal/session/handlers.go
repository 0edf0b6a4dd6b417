package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mopmop-game/mopmop-server/internal/game"
	"github.com/mopmop-game/mopmop-server/internal/protocol"
)

func (s *Session) dispatch(clientID string, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeJoinGame:
		var d protocol.JoinGame
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleJoinGame(clientID, d)

	case protocol.TypeJoinLobby:
		var d protocol.JoinLobby
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleJoinLobby(clientID, d)

	case protocol.TypeClaimTerritory:
		var d protocol.ClaimTerritory
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleClaim(clientID, d)

	case protocol.TypeStartGame:
		var d protocol.StartGame
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleStartGame(clientID, d)

	case protocol.TypeForceStart:
		var d protocol.ForceStart
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleForceStart(clientID, d)

	case protocol.TypeMoveArmies:
		var d protocol.MoveArmies
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleMove(clientID, d)

	case protocol.TypeQueueMoves:
		var d protocol.QueueMoves
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleQueueMoves(clientID, d)

	case protocol.TypeQuit:
		var d protocol.Quit
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleQuit(clientID, d)

	case protocol.TypeChat:
		var d protocol.Chat
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handleChat(clientID, d)

	case protocol.TypePurchaseWeapon:
		var d protocol.PurchaseWeapon
		if !s.decode(clientID, env.Data, &d) {
			return
		}
		s.handlePurchase(clientID, d)

	default:
		s.sendTo(clientID, protocol.Error("unknown message type"))
	}
}

func (s *Session) decode(clientID string, raw json.RawMessage, into any) bool {
	if err := json.Unmarshal(raw, into); err != nil {
		s.sendTo(clientID, protocol.Error("invalid message format"))
		return false
	}
	return true
}

// playerFor resolves a commanded player id and verifies it belongs to the
// commanding connection; basic ownership check against id spoofing.
func (s *Session) playerFor(clientID, playerID string) *game.Player {
	p := s.state.Players[playerID]
	if p == nil || p.ClientID != clientID {
		return nil
	}
	return p
}

func (s *Session) handleJoinGame(clientID string, d protocol.JoinGame) {
	p, err := s.state.AddPlayer(clientID, strings.TrimSpace(d.PlayerName))
	if err != nil {
		s.sendTo(clientID, protocol.Error(err.Error()))
		return
	}
	s.log.Infow("player joined", "name", p.Name, "slot", p.Slot)

	s.sendTo(clientID, protocol.Event(protocol.TypeJoinSuccess, protocol.JoinSuccess{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Color:      p.Color,
	}))
	s.broadcastState()
	s.broadcastLobby()
	s.broadcastVotes()
}

func (s *Session) handleJoinLobby(clientID string, d protocol.JoinLobby) {
	if _, ok := s.cfg.Modes[d.GameMode]; !ok {
		s.sendTo(clientID, protocol.Error("unknown game mode"))
		return
	}
	// The first joiner picks the session's mode; later joiners land in it.
	if len(s.state.Players) == 0 {
		s.gameMode = d.GameMode
	}
	capacity := s.cfg.Modes[s.gameMode]
	if len(s.state.Players) >= capacity {
		s.sendTo(clientID, protocol.Error("lobby is full"))
		return
	}

	p, err := s.state.AddPlayer(clientID, strings.TrimSpace(d.Name))
	switch err {
	case nil:
	case game.ErrNameTaken:
		s.sendTo(clientID, protocol.Event(protocol.TypeNameTaken, nil))
		return
	default:
		s.sendTo(clientID, protocol.Error(err.Error()))
		return
	}
	s.log.Infow("player joined lobby", "name", p.Name, "mode", s.gameMode)

	s.sendTo(clientID, protocol.Event(protocol.TypeLobbyJoined, protocol.LobbyJoined{
		PlayerID:       p.ID,
		GameMode:       s.gameMode,
		MaxPlayers:     capacity,
		CurrentPlayers: len(s.state.Players),
		Players:        s.roster(),
	}))
	s.broadcastLobby()
	s.broadcastVotes()
	s.broadcastState()
}

func (s *Session) handleClaim(clientID string, d protocol.ClaimTerritory) {
	p := s.playerFor(clientID, d.PlayerID)
	if p == nil {
		s.sendTo(clientID, protocol.Error("invalid player"))
		return
	}
	if err := s.state.ClaimTerritory(p, d.X, d.Y); err != nil {
		s.sendTo(clientID, protocol.Error(err.Error()))
		return
	}
	s.broadcastState()
}

func (s *Session) handleStartGame(clientID string, d protocol.StartGame) {
	p := s.state.PlayerByClient(clientID)
	if p == nil {
		s.sendTo(clientID, protocol.Error("player not found"))
		return
	}
	s.state.SetSpawnRates(d.MountainSpawnRate, d.VillageSpawnRate)
	s.state.AddVote(p.ID)
	s.broadcastVotes()
	s.maybeStart(clientID)
}

func (s *Session) handleForceStart(clientID string, d protocol.ForceStart) {
	p := s.playerFor(clientID, d.PlayerID)
	if p == nil {
		s.sendTo(clientID, protocol.Error("invalid player"))
		return
	}
	s.state.ToggleVote(p.ID)
	s.broadcastVotes()
	s.maybeStart(clientID)
}

func (s *Session) maybeStart(clientID string) {
	if s.state.Started {
		return
	}
	if len(s.state.Players) < 2 {
		s.sendTo(clientID, protocol.Error("need at least 2 players to start"))
		return
	}
	if !s.state.CanStart() {
		return
	}

	s.state.Start()
	s.log.Infow("match started", "players", len(s.state.Players), "mode", s.gameMode)
	s.broadcast(protocol.Event(protocol.TypeGameStarting, nil))
	s.broadcastVotes()
	s.startTimer()
	s.broadcastState()
}

func (s *Session) handleMove(clientID string, d protocol.MoveArmies) {
	p := s.playerFor(clientID, d.PlayerID)
	if p == nil {
		s.sendTo(clientID, protocol.Error("invalid player"))
		return
	}

	res, err := s.state.MoveArmies(p, d.FromX, d.FromY, d.ToX, d.ToY, d.IsSplit)
	if err != nil {
		s.sendTo(clientID, protocol.Error(err.Error()))
		return
	}
	if res.Reason == game.ReasonMountain {
		s.sendTo(clientID, protocol.Error("cannot move into mountain"))
	}

	s.sendTo(clientID, protocol.Event(protocol.TypeMoveResult, protocol.MoveResult{
		Success: res.Success,
		FromX:   d.FromX,
		FromY:   d.FromY,
		ToX:     d.ToX,
		ToY:     d.ToY,
		Reason:  string(res.Reason),
	}))

	if res.Winner != nil {
		s.log.Infow("king captured, match over", "winner", res.Winner.Name, "loser", res.Loser.Name)
		over := protocol.GameOver{Winner: res.Winner.Name, Loser: res.Loser.Name}
		win, lose := over, over
		win.Won = true
		s.sendTo(res.Winner.ClientID, protocol.Event(protocol.TypeGameOver, win))
		s.sendTo(res.Loser.ClientID, protocol.Event(protocol.TypeGameOver, lose))
		s.reset()
		return
	}
	if res.Eliminated != nil {
		s.log.Infow("player eliminated", "name", res.Eliminated.Name)
	}

	s.broadcastState()
}

// handleQueueMoves applies only the first queued move; the client re-queues the
// rest after each moveResult, which keeps the one-command-per-message contract.
func (s *Session) handleQueueMoves(clientID string, d protocol.QueueMoves) {
	if s.playerFor(clientID, d.PlayerID) == nil {
		return
	}
	if len(d.Moves) == 0 {
		return
	}
	m := d.Moves[0]
	s.handleMove(clientID, protocol.MoveArmies{
		FromX:    m.FromX,
		FromY:    m.FromY,
		ToX:      m.ToX,
		ToY:      m.ToY,
		PlayerID: d.PlayerID,
		IsSplit:  m.IsSplit,
	})
}

func (s *Session) handleQuit(clientID string, d protocol.Quit) {
	p := s.playerFor(clientID, d.PlayerID)
	if p == nil {
		return
	}
	s.log.Infow("player quit", "name", p.Name)
	s.removePlayer(p)
}

func (s *Session) handleChat(clientID string, d protocol.Chat) {
	p := s.playerFor(clientID, d.PlayerID)
	if p == nil {
		return
	}
	s.broadcast(protocol.Event(protocol.TypeChatMessage, protocol.ChatMessage{
		Player:    p.Name,
		Message:   d.Message,
		Timestamp: time.Now().UnixMilli(),
	}))
}

func (s *Session) handlePurchase(clientID string, d protocol.PurchaseWeapon) {
	p := s.playerFor(clientID, d.PlayerID)
	if p == nil {
		s.sendTo(clientID, protocol.Error("invalid player"))
		return
	}
	remaining, err := s.state.PurchaseWeapon(p, d.X, d.Y)
	if err != nil {
		s.sendTo(clientID, protocol.Error(err.Error()))
		return
	}
	s.sendTo(clientID, protocol.Event(protocol.TypeWeaponPurchased, protocol.WeaponPurchased{
		WeaponType:      d.WeaponType,
		X:               d.X,
		Y:               d.Y,
		RemainingArmies: remaining,
	}))
	s.broadcastState()
}
