package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

const feedPingInterval = 30 * time.Second

// handleAdminFeed streams lead events over a websocket until the client goes
// away. Messages from the client are ignored.
func handleAdminFeed(broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch := broker.Subscribe()
		defer broker.Unsubscribe(ch)
		logger.Debug("admin feed opened", "admin_id", adminFrom(r).AdminID, "subscribers", broker.subscribers())

		ctx := conn.CloseRead(r.Context())

		ping := time.NewTicker(feedPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Debug("admin feed closed", "error", ctx.Err())
				return
			case data := <-ch:
				if err := writeFeed(ctx, conn, data); err != nil {
					logger.Debug("admin feed write failed", "error", err)
					return
				}
			case <-ping.C:
				if err := conn.Ping(ctx); err != nil {
					logger.Debug("admin feed ping failed", "error", err)
					return
				}
			}
		}
	}
}

func writeFeed(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
