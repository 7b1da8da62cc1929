package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	liveWriteWait = 5 * time.Second
	// Klient nic posílat nemusí, větší rámec spojení ukončí.
	liveMaxMessageSize = 512
)

// HandleLive: GET /ws
// Každé spojení dostane View při každé změně Store a jednou za sekundu (hodiny).
func (h *WebHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade už klientovi odpověděl chybou.
		h.logger.Warn("WebSocket upgrade selhal", "error", err)
		return
	}

	h.metrics.LiveClientOpened()
	defer h.metrics.LiveClientClosed()

	h.serveLive(conn)
}

// serveLive běží, dokud klient nezavře spojení, zápis neselže nebo se server nevypíná.
// Na každé cestě ven se zastaví ticker, zruší odběr Store a zavře socket.
func (h *WebHandler) serveLive(conn *websocket.Conn) {
	defer conn.Close()

	// Kanál s kapacitou 1: víc změn mezi dvěma zápisy se slije do jednoho odeslání.
	changed := make(chan struct{}, 1)
	cancelWatch := h.dash.Watch(func(Change) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancelWatch()

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	// Čtecí smyčka jen zjišťuje, že klient odešel. Skončí nejpozději po conn.Close().
	conn.SetReadLimit(liveMaxMessageSize)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return conn.WriteJSON(h.dash.View())
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-h.shutdown.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(time.Second))
			return
		case <-closed:
			return
		case <-changed:
		case <-ticker.C:
		}
		if err := send(); err != nil {
			h.logger.Debug("Zápis do WebSocketu selhal", "error", err)
			return
		}
	}
}
