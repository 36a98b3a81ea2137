package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xqiuyi/hall-backend/internal/dto"
	"github.com/xqiuyi/hall-backend/internal/http/handlers/common"
	"github.com/xqiuyi/hall-backend/internal/service"
)

// DealHandler обслуживает подтверждение сделок внутри диалога.
type DealHandler struct {
	deals *service.DealService
}

func NewDealHandler(deals *service.DealService) *DealHandler {
	return &DealHandler{deals: deals}
}

// Get обрабатывает GET /conversations/:id/deal. Deal=null означает, что
// сделку ещё никто не подтверждал.
func (h *DealHandler) Get(c *gin.Context) {
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

	deal, err := h.deals.Get(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.DealResponse{Deal: deal})
}

// Confirm обрабатывает POST /conversations/:id/deal/confirm.
func (h *DealHandler) Confirm(c *gin.Context) {
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

	deal, err := h.deals.Confirm(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.DealResponse{Deal: deal})
}
