package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/elys-network/lgevault/internal/metrics"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	feedBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is public and read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// receiptFilter narrows the feed by operation and sender.
type receiptFilter struct {
	op     string
	sender types.Address
}

func (f receiptFilter) match(r types.Receipt) bool {
	if f.op != "" && r.Op != f.op {
		return false
	}
	if f.sender != "" && r.Sender != f.sender {
		return false
	}
	return true
}

// handleEvents streams every new receipt, failed ones included, as JSON text messages.
// Optional query parameters op and sender filter the stream.
func (ws *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter := receiptFilter{op: r.URL.Query().Get("op")}
	if raw := r.URL.Query().Get("sender"); raw != "" {
		sender, err := types.ParseAddress(raw)
		if err != nil {
			ws.badRequest(w, err)
			return
		}
		filter.sender = sender
	}

	// Subscribe first so nothing committed after the handshake is missed.
	receipts, cancel := ws.app.Ledger.Subscribe(feedBuffer)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		ws.log.Warn().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}
	metrics.WebsocketClients.Inc()
	ws.log.Debug().Str("remote_addr", r.RemoteAddr).Msg("Receipt feed client connected")

	done := make(chan struct{})
	go ws.readPump(conn, done)
	ws.writePump(conn, receipts, filter, done)

	cancel()
	metrics.WebsocketClients.Dec()
	ws.log.Debug().Str("remote_addr", r.RemoteAddr).Msg("Receipt feed client disconnected")
}

func (ws *WebServer) writePump(conn *websocket.Conn, receipts <-chan types.Receipt, filter receiptFilter, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case receipt, ok := <-receipts:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !filter.match(receipt) {
				continue
			}
			payload, err := json.Marshal(receipt)
			if err != nil {
				ws.log.Error().Err(err).Str("receipt", receipt.ID).Msg("Failed to encode receipt")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return

		case <-ws.quit:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

// readPump discards client messages and closes done when the client goes away.
func (ws *WebServer) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.log.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}
