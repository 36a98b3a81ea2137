package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xqiuyi/hall-backend/internal/goroutine"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// clientFrame — входящий кадр от клиента: управление подписками.
type clientFrame struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// Client представляет одно подключение к ленте изменений.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	userID uuid.UUID
	send   chan []byte

	mu   sync.RWMutex
	subs map[Subscription]struct{}

	closeOnce sync.Once
}

// NewClient создаёт нового клиента ленты.
func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, 16),
		subs:   make(map[Subscription]struct{}),
	}
}

// Run запускает обработку входящих и исходящих сообщений.
func (c *Client) Run(ctx context.Context) {
	goroutine.SafeGo(c.writePump)
	c.readPump(ctx)
}

// Close закрывает соединение и снимает клиента с учёта в хабе.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c)
		c.conn.Close()
	})
}

// Subscribed проверяет, подписан ли клиент на событие.
func (c *Client) Subscribed(ev Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for sub := range c.subs {
		if sub.Matches(ev) {
			return true
		}
	}
	return false
}

// readPump читает кадры подписок от клиента.
func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(4 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, raw, err := c.conn.ReadMessage()
			if err != nil {
				return
			}

			var frame clientFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}
			c.handleFrame(frame)
		}
	}
}

func (c *Client) handleFrame(frame clientFrame) {
	if frame.Table == "" {
		return
	}
	sub := Subscription{Table: frame.Table, Filter: frame.Filter}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch frame.Action {
	case "subscribe":
		c.subs[sub] = struct{}{}
	case "unsubscribe":
		delete(c.subs, sub)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
