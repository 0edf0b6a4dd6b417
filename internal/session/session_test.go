package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mopmop-game/mopmop-server/internal/config"
	"github.com/mopmop-game/mopmop-server/internal/game"
	"github.com/mopmop-game/mopmop-server/internal/protocol"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.TickInterval = 25 * time.Millisecond
	// Featureless board so tests can arrange tiles by hand.
	cfg.Game.MountainRate = 0
	cfg.Game.VillageRate = 0
	return cfg
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, testConfig(), zap.NewNop().Sugar())
}

// connect registers a client and drains the initial snapshot.
func connect(t *testing.T, s *Session, clientID string) chan protocol.ServerMessage {
	t.Helper()
	out := make(chan protocol.ServerMessage, 64)
	s.Inbox() <- Join{ClientID: clientID, Outbox: out}
	first := recvMsg(t, out, time.Second)
	require.Equal(t, protocol.TypeGameState, first.Type)
	return out
}

func env(t *testing.T, typ string, data any) protocol.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return protocol.Envelope{Type: typ, Data: raw}
}

// recvMsg receives one message with a timeout so tests never hang.
func recvMsg(t *testing.T, ch <-chan protocol.ServerMessage, within time.Duration) protocol.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return protocol.ServerMessage{} // unreachable
	}
}

// recvType skips messages until one of the wanted type arrives.
func recvType(t *testing.T, ch <-chan protocol.ServerMessage, typ string, within time.Duration) protocol.ServerMessage {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("client outbox closed while waiting for %q", typ)
			}
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", typ)
			return protocol.ServerMessage{} // unreachable
		}
	}
}

// drain waits for the actor to go idle, then empties the given outboxes so the
// next recvType only sees messages caused by what the test does afterwards.
func drain(t *testing.T, s *Session, outs ...chan protocol.ServerMessage) {
	t.Helper()
	_ = view(t, s)
	for _, out := range outs {
		for len(out) > 0 {
			<-out
		}
	}
}

// view round-trips GetState; it also acts as a barrier ensuring all previously
// sent messages are fully processed.
func view(t *testing.T, s *Session) View {
	t.Helper()
	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func TestJoinSendsInitialSnapshot(t *testing.T) {
	s := newTestSession(t)
	out := make(chan protocol.ServerMessage, 8)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}

	msg := recvMsg(t, out, time.Second)
	require.Equal(t, protocol.TypeGameState, msg.Type)
	state, ok := msg.Data.(protocol.GameState)
	require.True(t, ok)
	assert.False(t, state.GameStarted)
	assert.Empty(t, state.Players)
	assert.Len(t, state.Map, testConfig().Game.BoardSize)
}

func TestJoinGameAssignsPlayer(t *testing.T) {
	s := newTestSession(t)
	out := connect(t, s, "c1")

	s.Inbox() <- FromClient{ClientID: "c1", Envelope: env(t, protocol.TypeJoinGame, protocol.JoinGame{PlayerName: "alice"})}

	success := recvType(t, out, protocol.TypeJoinSuccess, time.Second)
	data, ok := success.Data.(protocol.JoinSuccess)
	require.True(t, ok)
	assert.Equal(t, "alice", data.PlayerName)
	assert.NotEmpty(t, data.PlayerID)
	assert.Equal(t, game.Colors[0], data.Color)

	state := recvType(t, out, protocol.TypeGameState, time.Second)
	snap := state.Data.(protocol.GameState)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, 1, snap.Players[0].Territories)
}

func TestJoinGameDuplicateName(t *testing.T) {
	s := newTestSession(t)
	out1 := connect(t, s, "c1")
	out2 := connect(t, s, "c2")

	s.Inbox() <- FromClient{ClientID: "c1", Envelope: env(t, protocol.TypeJoinGame, protocol.JoinGame{PlayerName: "alice"})}
	recvType(t, out1, protocol.TypeJoinSuccess, time.Second)

	s.Inbox() <- FromClient{ClientID: "c2", Envelope: env(t, protocol.TypeJoinGame, protocol.JoinGame{PlayerName: "alice"})}
	errMsg := recvType(t, out2, protocol.TypeError, time.Second)
	assert.Equal(t, "player name already taken", errMsg.Message)

	assert.Len(t, view(t, s).State.Players, 1)
}

func TestJoinLobbyFlow(t *testing.T) {
	s := newTestSession(t)
	out := connect(t, s, "c1")

	s.Inbox() <- FromClient{ClientID: "c1", Envelope: env(t, protocol.TypeJoinLobby, protocol.JoinLobby{Name: "alice", GameMode: "1v1"})}

	joined := recvType(t, out, protocol.TypeLobbyJoined, time.Second)
	data, ok := joined.Data.(protocol.LobbyJoined)
	require.True(t, ok)
	assert.Equal(t, "1v1", data.GameMode)
	assert.Equal(t, 2, data.MaxPlayers)
	assert.Equal(t, 1, data.CurrentPlayers)
	require.Len(t, data.Players, 1)
	assert.Equal(t, "alice", data.Players[0].Name)
}

func TestJoinLobbyNameTaken(t *testing.T) {
	s := newTestSession(t)
	out1 := connect(t, s, "c1")
	out2 := connect(t, s, "c2")

	s.Inbox() <- FromClient{ClientID: "c1", Envelope: env(t, protocol.TypeJoinLobby, protocol.JoinLobby{Name: "alice", GameMode: "ffa"})}
	recvType(t, out1, protocol.TypeLobbyJoined, time.Second)

	s.Inbox() <- FromClient{ClientID: "c2", Envelope: env(t, protocol.TypeJoinLobby, protocol.JoinLobby{Name: "alice", GameMode: "ffa"})}
	recvType(t, out2, protocol.TypeNameTaken, time.Second)
}

func TestJoinLobbyCapacity(t *testing.T) {
	s := newTestSession(t)
	out1 := connect(t, s, "c1")
	out2 := connect(t, s, "c2")
	out3 := connect(t, s, "c3")

	s.Inbox() <- FromClient{ClientID: "c1", Envelope: env(t, protocol.TypeJoinLobby, protocol.JoinLobby{Name: "a", GameMode: "1v1"})}
	recvType(t, out1, protocol.TypeLobbyJoined, time.Second)
	s.Inbox() <- FromClient{ClientID: "c2", Envelope: env(t, protocol.TypeJoinLobby, protocol.JoinLobby{Name: "b", GameMode: "1v1"})}
	recvType(t, out2, protocol.TypeLobbyJoined, time.Second)

	s.Inbox() <- FromClient{ClientID: "c3", Envelope: env(t, protocol.TypeJoinLobby, protocol.JoinLobby{Name: "c", GameMode: "1v1"})}
	errMsg := recvType(t, out3, protocol.TypeError, time.Second)
	assert.Equal(t, "lobby is full", errMsg.Message)
}

// lobbyJoin is the common setup: joins n players via joinLobby and returns
// their outboxes and player ids.
func lobbyJoin(t *testing.T, s *Session, names ...string) ([]chan protocol.ServerMessage, []string) {
	t.Helper()
	outs := make([]chan protocol.ServerMessage, len(names))
	ids := make([]string, len(names))
	for i, name := range names {
		clientID := "conn-" + name
		outs[i] = connect(t, s, clientID)
		s.Inbox() <- FromClient{ClientID: clientID, Envelope: env(t, protocol.TypeJoinLobby, protocol.JoinLobby{Name: name, GameMode: "ffa"})}
		joined := recvType(t, outs[i], protocol.TypeLobbyJoined, time.Second)
		ids[i] = joined.Data.(protocol.LobbyJoined).PlayerID
	}
	return outs, ids
}

func TestForceStartThreshold(t *testing.T) {
	s := newTestSession(t)
	outs, ids := lobbyJoin(t, s, "a", "b", "c", "d")
	drain(t, s, outs...)

	// 1 of 4 votes: not enough.
	s.Inbox() <- FromClient{ClientID: "conn-a", Envelope: env(t, protocol.TypeForceStart, protocol.ForceStart{PlayerID: ids[0]})}
	update := recvType(t, outs[1], protocol.TypeForceStartUpdate, time.Second)
	assert.Len(t, update.Data.(protocol.ForceStartUpdate).Votes, 1)
	assert.False(t, view(t, s).State.GameStarted)

	// ceil(4/2) = 2 votes: match starts.
	s.Inbox() <- FromClient{ClientID: "conn-b", Envelope: env(t, protocol.TypeForceStart, protocol.ForceStart{PlayerID: ids[1]})}
	recvType(t, outs[2], protocol.TypeGameStarting, time.Second)
	assert.True(t, view(t, s).State.GameStarted)
}

func TestForceStartToggle(t *testing.T) {
	s := newTestSession(t)
	outs, ids := lobbyJoin(t, s, "a", "b", "c", "d")
	drain(t, s, outs...)

	s.Inbox() <- FromClient{ClientID: "conn-a", Envelope: env(t, protocol.TypeForceStart, protocol.ForceStart{PlayerID: ids[0]})}
	update := recvType(t, outs[1], protocol.TypeForceStartUpdate, time.Second)
	require.Len(t, update.Data.(protocol.ForceStartUpdate).Votes, 1)
	drain(t, s, outs...)

	// Voting again cancels.
	s.Inbox() <- FromClient{ClientID: "conn-a", Envelope: env(t, protocol.TypeForceStart, protocol.ForceStart{PlayerID: ids[0]})}
	cleared := recvType(t, outs[1], protocol.TypeForceStartUpdate, time.Second)
	assert.Empty(t, cleared.Data.(protocol.ForceStartUpdate).Votes)
}

func TestForceStartNeedsTwoPlayers(t *testing.T) {
	s := newTestSession(t)
	outs, ids := lobbyJoin(t, s, "solo")

	s.Inbox() <- FromClient{ClientID: "conn-solo", Envelope: env(t, protocol.TypeForceStart, protocol.ForceStart{PlayerID: ids[0]})}
	errMsg := recvType(t, outs[0], protocol.TypeError, time.Second)
	assert.Equal(t, "need at least 2 players to start", errMsg.Message)
	assert.False(t, view(t, s).State.GameStarted)
}

func TestStartGameRecordsSpawnRates(t *testing.T) {
	s := newTestSession(t)
	_, _ = lobbyJoin(t, s, "a")
	_ = view(t, s) // barrier

	mountain, village := 30, 5
	s.Inbox() <- FromClient{ClientID: "conn-a", Envelope: env(t, protocol.TypeStartGame, protocol.StartGame{
		MountainSpawnRate: &mountain,
		VillageSpawnRate:  &village,
	})}
	_ = view(t, s) // barrier

	assert.Equal(t, 30, s.state.MountainRate)
	assert.Equal(t, 5, s.state.VillageRate)
	assert.Len(t, s.state.Votes, 1, "startGame counts as a force-start vote")
}

// startMatch joins two players and force-starts.
func startMatch(t *testing.T, s *Session) ([]chan protocol.ServerMessage, []string) {
	t.Helper()
	outs, ids := lobbyJoin(t, s, "alice", "bob")
	s.Inbox() <- FromClient{ClientID: "conn-alice", Envelope: env(t, protocol.TypeForceStart, protocol.ForceStart{PlayerID: ids[0]})}
	recvType(t, outs[0], protocol.TypeGameStarting, time.Second)
	recvType(t, outs[1], protocol.TypeGameStarting, time.Second)
	return outs, ids
}

// arrange pins both kings and gives alice an army adjacent to bob's king. Safe
// to touch state directly: the view barrier guarantees the actor is idle, and
// the following inbox send publishes the writes to it.
func arrange(t *testing.T, s *Session, ids []string) {
	t.Helper()
	_ = view(t, s)
	st := s.state
	alice, bob := st.Players[ids[0]], st.Players[ids[1]]
	require.NotNil(t, alice)
	require.NotNil(t, bob)

	for _, p := range []*game.Player{alice, bob} {
		st.Board.Terrain[p.KingX][p.KingY] = game.TerrainEmpty
		st.Board.Armies[p.KingX][p.KingY] = 0
	}
	place := func(p *game.Player, x, y int) {
		p.KingX, p.KingY = x, y
		st.Board.Terrain[x][y] = game.OwnerValue(p.Slot)
		st.Board.Armies[x][y] = 1
	}
	place(alice, 0, 0)
	place(bob, 19, 19)

	st.Board.Terrain[18][19] = game.OwnerValue(alice.Slot)
	st.Board.Armies[18][19] = 50
	alice.Territories++
}

func TestKingCaptureEmitsGameOverAndResets(t *testing.T) {
	s := newTestSession(t)
	outs, ids := startMatch(t, s)
	arrange(t, s, ids)

	s.Inbox() <- FromClient{ClientID: "conn-alice", Envelope: env(t, protocol.TypeMoveArmies, protocol.MoveArmies{
		FromX: 18, FromY: 19, ToX: 19, ToY: 19, PlayerID: ids[0],
	})}

	result := recvType(t, outs[0], protocol.TypeMoveResult, time.Second)
	moveData := result.Data.(protocol.MoveResult)
	assert.True(t, moveData.Success)
	assert.Equal(t, string(game.ReasonConquered), moveData.Reason)

	winMsg := recvType(t, outs[0], protocol.TypeGameOver, time.Second)
	win := winMsg.Data.(protocol.GameOver)
	assert.True(t, win.Won)
	assert.Equal(t, "alice", win.Winner)
	assert.Equal(t, "bob", win.Loser)

	loseMsg := recvType(t, outs[1], protocol.TypeGameOver, time.Second)
	assert.False(t, loseMsg.Data.(protocol.GameOver).Won)

	// Reset back to an empty lobby with a regenerated board.
	v := view(t, s)
	assert.False(t, v.State.GameStarted)
	assert.Zero(t, v.State.Turn)
	assert.Empty(t, v.State.Players)
	for x := range v.State.Map {
		for y := range v.State.Map[x] {
			assert.Less(t, v.State.Map[x][y], 2)
		}
	}
}

func TestQuitForfeitsToLastPlayer(t *testing.T) {
	s := newTestSession(t)
	outs, ids := startMatch(t, s)

	s.Inbox() <- FromClient{ClientID: "conn-bob", Envelope: env(t, protocol.TypeQuit, protocol.Quit{PlayerID: ids[1]})}

	over := recvType(t, outs[0], protocol.TypeGameOver, time.Second)
	data := over.Data.(protocol.GameOver)
	assert.True(t, data.Won)
	assert.Equal(t, "alice", data.Winner)
	assert.Equal(t, "opponent_quit", data.Reason)

	v := view(t, s)
	assert.False(t, v.State.GameStarted)
	assert.Empty(t, v.State.Players)
}

func TestDisconnectOfLastPlayerResets(t *testing.T) {
	s := newTestSession(t)
	_, _ = lobbyJoin(t, s, "alice")

	s.Inbox() <- Leave{ClientID: "conn-alice"}

	v := view(t, s)
	assert.Empty(t, v.State.Players)
	assert.False(t, v.State.GameStarted)
	assert.Zero(t, v.NumClients)
}

func TestTickAdvancesTurns(t *testing.T) {
	s := newTestSession(t)
	outs, _ := startMatch(t, s)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-outs[0]:
			if msg.Type == protocol.TypeGameState {
				if snap := msg.Data.(protocol.GameState); snap.Turn >= 2 {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timer never advanced the turn counter")
		}
	}
}

func TestQueueMovesAppliesFirstOnly(t *testing.T) {
	s := newTestSession(t)
	outs, ids := startMatch(t, s)
	arrange(t, s, ids)

	s.Inbox() <- FromClient{ClientID: "conn-alice", Envelope: env(t, protocol.TypeQueueMoves, protocol.QueueMoves{
		PlayerID: ids[0],
		Moves: []protocol.QueuedMove{
			{FromX: 18, FromY: 19, ToX: 18, ToY: 18},
			{FromX: 18, FromY: 18, ToX: 18, ToY: 17},
		},
	})}

	result := recvType(t, outs[0], protocol.TypeMoveResult, time.Second)
	require.True(t, result.Data.(protocol.MoveResult).Success)

	_ = view(t, s)
	assert.Equal(t, 49, s.state.Board.Armies[18][18], "first move applied")
	assert.False(t, s.state.Board.IsOwnedBy(18, 17, 0), "second move ignored")
}

func TestChatFansOutToEveryone(t *testing.T) {
	s := newTestSession(t)
	outs, ids := lobbyJoin(t, s, "alice", "bob")

	s.Inbox() <- FromClient{ClientID: "conn-alice", Envelope: env(t, protocol.TypeChat, protocol.Chat{PlayerID: ids[0], Message: "gg"})}

	for _, out := range outs {
		msg := recvType(t, out, protocol.TypeChatMessage, time.Second)
		data := msg.Data.(protocol.ChatMessage)
		assert.Equal(t, "alice", data.Player)
		assert.Equal(t, "gg", data.Message)
		assert.NotZero(t, data.Timestamp)
	}
}

func TestPurchaseWeapon(t *testing.T) {
	s := newTestSession(t)
	outs, ids := startMatch(t, s)
	arrange(t, s, ids)

	_ = view(t, s)
	s.state.Board.Armies[18][19] = 250

	s.Inbox() <- FromClient{ClientID: "conn-alice", Envelope: env(t, protocol.TypePurchaseWeapon, protocol.PurchaseWeapon{
		PlayerID: ids[0], X: 18, Y: 19, WeaponType: "cannon",
	})}

	msg := recvType(t, outs[0], protocol.TypeWeaponPurchased, time.Second)
	data := msg.Data.(protocol.WeaponPurchased)
	assert.Equal(t, "cannon", data.WeaponType)
	assert.Equal(t, 50, data.RemainingArmies)
}

func TestCommandForAnotherPlayersIDRejected(t *testing.T) {
	s := newTestSession(t)
	outs, ids := startMatch(t, s)

	// bob tries to move with alice's player id.
	s.Inbox() <- FromClient{ClientID: "conn-bob", Envelope: env(t, protocol.TypeMoveArmies, protocol.MoveArmies{
		FromX: 0, FromY: 0, ToX: 0, ToY: 1, PlayerID: ids[0],
	})}
	errMsg := recvType(t, outs[1], protocol.TypeError, time.Second)
	assert.Equal(t, "invalid player", errMsg.Message)
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	s := newTestSession(t)
	out := connect(t, s, "c1")

	s.Inbox() <- FromClient{ClientID: "c1", Envelope: protocol.Envelope{Type: "teleport", Data: json.RawMessage(`{}`)}}
	assert.Equal(t, "unknown message type", recvType(t, out, protocol.TypeError, time.Second).Message)

	s.Inbox() <- FromClient{ClientID: "c1", Envelope: protocol.Envelope{Type: protocol.TypeMoveArmies, Data: json.RawMessage(`"nope"`)}}
	assert.Equal(t, "invalid message format", recvType(t, out, protocol.TypeError, time.Second).Message)
}

func TestSlowClientIsDropped(t *testing.T) {
	s := newTestSession(t)
	slow := make(chan protocol.ServerMessage, 1)
	s.Inbox() <- Join{ClientID: "slow", Outbox: slow}
	// Buffer now holds the initial snapshot; the next broadcast overflows it.
	_ = connect(t, s, "fast")
	s.Inbox() <- FromClient{ClientID: "fast", Envelope: env(t, protocol.TypeJoinGame, protocol.JoinGame{PlayerName: "fast"})}

	require.Equal(t, 1, view(t, s).NumClients, "slow client dropped, fast one kept")
}
