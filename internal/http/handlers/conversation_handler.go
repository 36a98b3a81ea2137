package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xqiuyi/hall-backend/internal/http/handlers/common"
	"github.com/xqiuyi/hall-backend/internal/service"
)

// ConversationHandler обслуживает диалоги и сообщения.
type ConversationHandler struct {
	convs *service.ConversationService
}

func NewConversationHandler(convs *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convs: convs}
}

// Resolve обрабатывает POST /:kind/:id/conversations: возвращает существующий
// диалог по объявлению или создаёт новый.
func (h *ConversationHandler) Resolve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	conv, err := h.convs.Resolve(c.Request.Context(), userID, listingID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"conversation": conv})
}

// My обрабатывает GET /conversations.
func (h *ConversationHandler) My(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	items, err := h.convs.My(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"items": items})
}

// Get обрабатывает GET /conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	conv, err := h.convs.Get(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"conversation": conv})
}

// Messages обрабатывает GET /conversations/:id/messages.
func (h *ConversationHandler) Messages(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	items, err := h.convs.Messages(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"items": items})
}

// SendMessage обрабатывает POST /conversations/:id/messages.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	msg, err := h.convs.SendMessage(c.Request.Context(), userID, id, req.Content)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, gin.H{"message": msg})
}

// Counterpart обрабатывает GET /conversations/:id/counterpart — карточка
// собеседника для шапки диалога.
func (h *ConversationHandler) Counterpart(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	card, err := h.convs.Counterpart(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, card)
}
