package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/xqiuyi/hall-backend/internal/goroutine"
	"github.com/xqiuyi/hall-backend/internal/logger"
)

// RedisChannel — канал pub/sub, по которому хабы разных инстансов
// обмениваются событиями.
const RedisChannel = "feed:events"

// Hub управляет клиентами ленты изменений и рассылает им события по
// подпискам. При наличии redis события дополнительно публикуются в pub/sub,
// чтобы их увидели клиенты других инстансов.
type Hub struct {
	id         uuid.UUID
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	events     chan Event
	rdb        *redis.Client
	ctx        context.Context
}

// NewHub создаёт хаб. rdb может быть nil, тогда фан-аут между инстансами
// отключён.
func NewHub(ctx context.Context, rdb *redis.Client) *Hub {
	return &Hub{
		id:         uuid.New(),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 64),
		rdb:        rdb,
		ctx:        ctx,
	}
}

// Run запускает главный цикл хаба и мост с redis.
func (h *Hub) Run() {
	if h.rdb != nil {
		goroutine.SafeGo(h.runBridge)
	}

	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish рассылает событие локальным подписчикам и в redis.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.Origin = h.id

	select {
	case h.events <- ev:
	default:
		if logger.Log != nil {
			logger.Log.WithField("table", ev.Table).Warn("feed: очередь событий переполнена, событие отброшено")
		}
	}

	if h.rdb == nil {
		return
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := h.rdb.Publish(ctx, RedisChannel, raw).Err(); err != nil {
		if logger.Log != nil {
			logger.Log.WithField("error", err.Error()).Warn("feed: не удалось опубликовать событие в redis")
		}
	}
}

// runBridge доставляет события из redis pub/sub локальным подписчикам.
// Свои же события (Origin совпадает с ID хаба) пропускаются.
func (h *Hub) runBridge() {
	sub := h.rdb.Subscribe(h.ctx, RedisChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			if ev.Origin == h.id {
				continue
			}
			select {
			case h.events <- ev:
			default:
			}
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// deliver отправляет событие клиентам с подходящими подписками.
func (h *Hub) deliver(ev Event) {
	raw, err := json.Marshal(map[string]any{
		"type":  "event",
		"event": ev,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.Subscribed(ev) {
			continue
		}
		select {
		case client.send <- raw:
		default:
			goroutine.SafeGo(func() { client.Close() })
		}
	}
}

// ClientCount возвращает число подключённых клиентов.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
