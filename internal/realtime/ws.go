package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are enforced by the CORS layer in front of this.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and streams the user's message events as JSON
// frames until the client disconnects or ctx ends. The subscription dies
// with the connection; clients resubscribe by reconnecting.
func ServeWS(ctx context.Context, w http.ResponseWriter, r *http.Request, dispatcher *Dispatcher, userID string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, unsubscribe := dispatcher.Subscribe(subCtx, userID)
	defer unsubscribe()

	// Read pump exists only to observe close frames and pongs.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-subCtx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("websocket write failed", zap.String("user_id", userID), zap.Error(err))
				return
			}
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
