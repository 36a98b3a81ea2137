package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xqiuyi/hall-backend/internal/dto"
	"github.com/xqiuyi/hall-backend/internal/http/handlers/common"
	"github.com/xqiuyi/hall-backend/internal/service"
)

// AuthHandler предоставляет HTTP слой входа по magic-ссылке.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RequestMagicLink обрабатывает POST /auth/magic-link.
// Ответ одинаковый для нового и существующего адреса: форма входа не должна
// раскрывать, зарегистрирован ли email.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.RequestMagicLink(c.Request.Context(), req.Email); err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.SuccessResponse{
		Message: "письмо со ссылкой входа отправлено",
	})
}

// Verify обрабатывает GET /auth/verify?link_id=...&secret=...
func (h *AuthHandler) Verify(c *gin.Context) {
	linkID, err := uuid.Parse(c.Query("link_id"))
	if err != nil {
		common.RespondBadRequest(c, "параметр link_id должен быть валидным UUID")
		return
	}

	secret := c.Query("secret")
	if secret == "" {
		common.RespondBadRequest(c, "параметр secret обязателен")
		return
	}

	result, err := h.auth.VerifyMagicLink(c.Request.Context(), linkID, secret, requestMeta(c))
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.AuthResponse{
		User:    result.User,
		Profile: result.Profile,
		Tokens:  result.TokenPair,
	})
}

// Anonymous обрабатывает POST /auth/anonymous: сессия просмотра без email.
func (h *AuthHandler) Anonymous(c *gin.Context) {
	result, err := h.auth.Anonymous(c.Request.Context(), requestMeta(c))
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, dto.AuthResponse{
		User:   result.User,
		Tokens: result.TokenPair,
	})
}

// Refresh обрабатывает POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, requestMeta(c))
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"tokens": pair})
}

// Logout обрабатывает POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.SuccessResponse{Message: "сессия завершена"})
}

// Me обрабатывает GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	user, profile, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{
		"user":    user,
		"profile": profile,
	})
}

// GetBio обрабатывает GET /profile/bio.
func (h *AuthHandler) GetBio(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	_, profile, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"profile": profile})
}

// UpdateBio обрабатывает PUT /profile/bio.
func (h *AuthHandler) UpdateBio(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req struct {
		Bio string `json:"bio"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.auth.UpdateBio(c.Request.Context(), userID, req.Bio)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"profile": profile})
}

// requestMeta собирает user-agent и IP запроса для сессии.
func requestMeta(c *gin.Context) map[string]string {
	return map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}
}
