// Package protocol defines the JSON message contract spoken over each
// client's websocket: inbound {type, data} envelopes and the outbound events
// built from game state. The same gameState shape is also served by the HTTP
// query endpoint.
package protocol

import "encoding/json"

// Inbound message types.
const (
	TypeJoinGame       = "joinGame"
	TypeJoinLobby      = "joinLobby"
	TypeClaimTerritory = "claimTerritory"
	TypeStartGame      = "startGame"
	TypeForceStart     = "forceStart"
	TypeMoveArmies     = "moveArmies"
	TypeQueueMoves     = "queueMoves"
	TypeQuit           = "quit"
	TypeChat           = "chat"
	TypePurchaseWeapon = "purchaseWeapon"
)

// Outbound event types.
const (
	TypeError            = "error"
	TypeJoinSuccess      = "joinSuccess"
	TypeLobbyJoined      = "lobbyJoined"
	TypeLobbyUpdate      = "lobbyUpdate"
	TypeForceStartUpdate = "forceStartUpdate"
	TypeGameStarting     = "gameStarting"
	TypeGameState        = "gameState"
	TypeMoveResult       = "moveResult"
	TypeGameOver         = "gameOver"
	TypeChatMessage      = "chatMessage"
	TypeWeaponPurchased  = "weaponPurchased"
	TypeNameTaken        = "nameTaken"
)

// Envelope is one inbound frame. Data stays raw until the type is dispatched.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage is one outbound frame. Error responses carry Message instead
// of Data.
type ServerMessage struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func Event(typ string, data any) ServerMessage {
	return ServerMessage{Type: typ, Data: data}
}

func Error(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: message}
}
