// Package session hosts the single game session: a lobby that fills up,
// force-starts into a match, runs the half-turn scheduler, and resets back to
// an empty lobby when a king falls or the roster drains. One goroutine owns
// the world state and processes every command to completion, broadcast
// included, before the next event is handled.
package session

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/mopmop-game/mopmop-server/internal/config"
	"github.com/mopmop-game/mopmop-server/internal/game"
	"github.com/mopmop-game/mopmop-server/internal/protocol"
)

type Session struct {
	inbox   chan Msg
	state   *game.State
	clients map[string]chan protocol.ServerMessage

	cfg      config.Config
	log      *zap.SugaredLogger
	gameMode string

	ctx    context.Context
	cancel context.CancelFunc

	timerGen    uint64
	timerCancel context.CancelFunc
}

func New(parent context.Context, cfg config.Config, log *zap.SugaredLogger) *Session {
	ctx, cancel := context.WithCancel(parent)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	s := &Session{
		inbox: make(chan Msg, 64),
		state: game.NewState(game.Rules{
			BoardSize:        cfg.Game.BoardSize,
			MountainRate:     cfg.Game.MountainRate,
			VillageRate:      cfg.Game.VillageRate,
			GarrisonMin:      cfg.Game.GarrisonMin,
			GarrisonMax:      cfg.Game.GarrisonMax,
			WeaponCost:       cfg.Game.WeaponCost,
			GlobalBonusEvery: cfg.Game.GlobalBonusEvery,
		}, rng),
		clients:  make(map[string]chan protocol.ServerMessage),
		cfg:      cfg,
		log:      log,
		gameMode: "ffa",
		ctx:      ctx,
		cancel:   cancel,
	}
	go s.loop()
	return s
}

// Inbox exposes the message channel to the transport layer and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				s.sendTo(msg.ClientID, protocol.Event(protocol.TypeGameState, s.snapshot()))

			case Leave:
				s.disconnect(msg.ClientID)

			case FromClient:
				s.dispatch(msg.ClientID, msg.Envelope)

			case tick:
				s.handleTick(msg.gen)

			case GetState:
				msg.Reply <- View{NumClients: len(s.clients), State: s.snapshot()}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	s.stopTimer()
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

// snapshot deep-copies the world into the wire shape so writer goroutines can
// marshal it while the session keeps mutating.
func (s *Session) snapshot() protocol.GameState {
	st := s.state
	players := make([]protocol.PlayerInfo, 0, len(st.Order))
	for _, id := range st.Order {
		p := st.Players[id]
		players = append(players, protocol.PlayerInfo{
			ID:          p.ID,
			Name:        p.Name,
			Color:       p.Color,
			Territories: p.Territories,
			KingX:       p.KingX,
			KingY:       p.KingY,
		})
	}
	return protocol.GameState{
		Map:         st.Board.CopyTerrain(),
		Armies:      st.Board.CopyArmies(),
		Players:     players,
		GameStarted: st.Started,
		Turn:        st.Turn,
	}
}

func (s *Session) sendTo(clientID string, msg protocol.ServerMessage) {
	ch, ok := s.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		// Slow or full outbox: drop the connection. Player cleanup follows
		// from the transport's Leave once its writer observes the close.
		close(ch)
		delete(s.clients, clientID)
	}
}

func (s *Session) broadcast(msg protocol.ServerMessage) {
	for id := range s.clients {
		s.sendTo(id, msg)
	}
}

func (s *Session) broadcastState() {
	s.broadcast(protocol.Event(protocol.TypeGameState, s.snapshot()))
}

func (s *Session) broadcastLobby() {
	s.broadcast(protocol.Event(protocol.TypeLobbyUpdate, protocol.LobbyUpdate{
		CurrentPlayers: len(s.state.Players),
		Players:        s.roster(),
	}))
}

func (s *Session) broadcastVotes() {
	s.broadcast(protocol.Event(protocol.TypeForceStartUpdate, protocol.ForceStartUpdate{
		Votes: s.state.VoteIDs(),
	}))
}

func (s *Session) roster() []protocol.LobbyPlayer {
	out := make([]protocol.LobbyPlayer, 0, len(s.state.Order))
	for _, id := range s.state.Order {
		p := s.state.Players[id]
		out = append(out, protocol.LobbyPlayer{ID: p.ID, Name: p.Name, Color: p.Color})
	}
	return out
}

// reset tears the match down to an empty lobby: timer cancelled first so no
// stale tick can touch the fresh board, then state regenerated and the new
// lobby broadcast.
func (s *Session) reset() {
	s.stopTimer()
	s.state.Reset()
	s.gameMode = "ffa"
	s.log.Infow("session reset")
	s.broadcastState()
	s.broadcastLobby()
}

// startTimer arms the half-turn scheduler. Any previous timer is cancelled and
// its generation invalidated, so rapid start/reset cycles never leave two
// timers driving the same board.
func (s *Session) startTimer() {
	s.stopTimer()
	s.timerGen++
	gen := s.timerGen

	ctx, cancel := context.WithCancel(s.ctx)
	s.timerCancel = cancel

	go func() {
		t := time.NewTicker(s.cfg.TickInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case s.inbox <- tick{gen: gen}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func (s *Session) stopTimer() {
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
}

func (s *Session) handleTick(gen uint64) {
	if gen != s.timerGen || !s.state.Started {
		return
	}
	s.state.Tick()
	s.broadcastState()
}

// disconnect handles transport closure: the connection goes away, and any
// player bound to it leaves the game.
func (s *Session) disconnect(clientID string) {
	delete(s.clients, clientID)
	if p := s.state.PlayerByClient(clientID); p != nil {
		s.log.Infow("player disconnected", "name", p.Name)
		s.removePlayer(p)
	}
}

// removePlayer applies the leave protocol: forfeit win if a started match
// drops to one player, full reset if the roster empties, otherwise lobby and
// vote updates for everyone left.
func (s *Session) removePlayer(p *game.Player) {
	s.state.RemovePlayer(p.ID)

	if s.state.Started && len(s.state.Players) == 1 {
		var last *game.Player
		for _, q := range s.state.Players {
			last = q
		}
		s.sendTo(last.ClientID, protocol.Event(protocol.TypeGameOver, protocol.GameOver{
			Won:    true,
			Winner: last.Name,
			Reason: "opponent_quit",
		}))
		s.log.Infow("match won by forfeit", "winner", last.Name)
		s.reset()
		return
	}
	if len(s.state.Players) == 0 {
		s.reset()
		return
	}

	s.broadcastLobby()
	s.broadcastVotes()
	s.broadcastState()
}
