package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xqiuyi/hall-backend/internal/feed"
	"github.com/xqiuyi/hall-backend/internal/service"
)

// FeedHandler отвечает за установку WebSocket соединений ленты изменений.
type FeedHandler struct {
	hub          *feed.Hub
	tokenManager *service.TokenManager
	upgrader     websocket.Upgrader
}

// NewFeedHandler создаёт новый хэндлер.
func NewFeedHandler(hub *feed.Hub, tokens *service.TokenManager) *FeedHandler {
	return &FeedHandler{
		hub:          hub,
		tokenManager: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle обслуживает GET /api/feed?token=...
// Анонимные сессии тоже подключаются: лента нужна и гостю зала.
func (h *FeedHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access токен обязателен"})
		return
	}

	userID, _, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидный access токен"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	client := feed.NewClient(conn, h.hub, userID)
	h.hub.Register(client)

	client.Run(c.Request.Context())
}
