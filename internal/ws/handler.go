package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mopmop-game/mopmop-server/internal/protocol"
	"github.com/mopmop-game/mopmop-server/internal/session"
)

// Handler upgrades the connection and bridges it to the session actor: a
// writer goroutine drains the outbox while the request goroutine reads
// envelopes. Closing the transport, in either direction, ends with a Leave so
// the session drops the player.
func Handler(s *session.Session, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debugw("websocket accept failed", "err", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan protocol.ServerMessage, 16)

		s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { s.Inbox() <- session.Leave{ClientID: clientID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
			// Session closed the outbox (slow consumer or shutdown).
			conn.Close(websocket.StatusPolicyViolation, "dropped")
		}()

		// Reader loop. No idle timeout: a connection is live until the
		// transport reports closure.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debugw("websocket read ended", "err", err)
				}
				return
			}

			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				payload, _ := json.Marshal(protocol.Error("invalid message format"))
				_ = conn.Write(r.Context(), websocket.MessageText, payload)
				continue
			}

			s.Inbox() <- session.FromClient{ClientID: clientID, Envelope: env}
		}
	}
}
