package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xqiuyi/hall-backend/internal/http/handlers/common"
	"github.com/xqiuyi/hall-backend/internal/service"
)

// ReviewHandler обслуживает отзывы по завершённым сделкам.
type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create обрабатывает POST /conversations/:id/review.
func (h *ReviewHandler) Create(c *gin.Context) {
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
		Rating int    `json:"rating" binding:"required"`
		Text   string `json:"text"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), userID, id, req.Rating, req.Text)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, gin.H{"review": review})
}

// MyReview обрабатывает GET /conversations/:id/review — отзыв текущего
// пользователя в этом диалоге, null если отзыва нет.
func (h *ReviewHandler) MyReview(c *gin.Context) {
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

	review, err := h.reviews.MyReview(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"review": review})
}

// ForUser обрабатывает GET /users/:id/reviews — отзывы о пользователе для
// публичного профиля.
func (h *ReviewHandler) ForUser(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.reviews.ForUser(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, result)
}
