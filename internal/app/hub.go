// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sensor_monitor/internal/env"
	"github.com/relabs-tech/sensor_monitor/internal/session"
	"github.com/relabs-tech/sensor_monitor/internal/store"
)

const (
	clientSendBuffer = 32
	writeWait        = 5 * time.Second
)

// FeedMessage is what WebSocket clients receive.
type FeedMessage struct {
	Type     string          `json:"type"` // "reading" or "state"
	Reading  *env.Reading    `json:"reading,omitempty"`
	Averages *store.Averages `json:"averages,omitempty"`
	State    string          `json:"state,omitempty"`
	Text     string          `json:"text,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans feed messages out to WebSocket clients. Slow clients are
// dropped rather than allowed to block the read loop.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*client]bool

	logger *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Hub{
		register:   make(chan *client), // unbuffered: only a live Run can accept a client
		unregister: make(chan *client, 8),
		broadcast:  make(chan []byte, 100),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
		logger:     logger,
	}
}

// Run must be running for clients to receive anything.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "clients", n)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("client too slow, dropping")
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues msg for every client. It drops the message if the hub is
// backed up.
func (h *Hub) Publish(msg FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("feed marshal", "err", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("feed backlog full, dropping message", "type", msg.Type)
	}
}

// Attach subscribes the hub to a's session.
func (h *Hub) Attach(a *App) {
	a.Session.OnReading(func(r env.Reading, avg *store.Averages) {
		h.Publish(FeedMessage{Type: "reading", Reading: &r, Averages: avg})
	})
	a.Session.OnStateChange(func(state session.State, err error) {
		msg := FeedMessage{
			Type:  "state",
			State: state.String(),
			Text:  StatusText(state, a.Session.SessionID(), err),
		}
		if err != nil {
			msg.Error = err.Error()
		}
		h.Publish(msg)
	})
}

// Serve upgrades the request and streams feed messages until the client
// goes away.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", "err", err)
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(cl)
	h.readPump(cl)
}

// readPump discards client input and notices disconnects.
func (h *Hub) readPump(cl *client) {
	defer func() {
		select {
		case h.unregister <- cl:
		case <-h.done:
		}
		cl.conn.Close()
	}()
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	defer cl.conn.Close()
	for msg := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
