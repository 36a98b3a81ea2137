package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xqiuyi/hall-backend/internal/dto"
	"github.com/xqiuyi/hall-backend/internal/http/handlers/common"
	"github.com/xqiuyi/hall-backend/internal/service"
)

// ListingHandler обслуживает залы услуг и запросов. Вид зала приходит в
// path-параметре kind (services или demands), проверку делает сервис.
type ListingHandler struct {
	listings *service.ListingService
}

func NewListingHandler(listings *service.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// List обрабатывает GET /:kind с query-параметрами q и category.
func (h *ListingHandler) List(c *gin.Context) {
	items, err := h.listings.List(c.Request.Context(), c.Param("kind"), c.Query("q"), c.Query("category"))
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"items": items})
}

// Get обрабатывает GET /:kind/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.listings.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"listing": listing})
}

// Publish обрабатывает POST /:kind.
func (h *ListingHandler) Publish(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Amount      string `json:"amount"`
		Contact     string `json:"contact"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.listings.Publish(c.Request.Context(), userID, service.PublishInput{
		Kind:        c.Param("kind"),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		AmountRaw:   req.Amount,
		Contact:     req.Contact,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, dto.PublishResponse{
		Listing:      result.Listing,
		ContactSaved: result.ContactSaved,
	})
}

// Update обрабатывает PUT /:kind/:id.
func (h *ListingHandler) Update(c *gin.Context) {
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
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Amount      string `json:"amount"`
		Contact     string `json:"contact"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.listings.Update(c.Request.Context(), userID, id, service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		AmountRaw:   req.Amount,
		Contact:     req.Contact,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"listing": listing})
}

// Delete обрабатывает DELETE /:kind/:id.
func (h *ListingHandler) Delete(c *gin.Context) {
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

	if err := h.listings.Delete(c.Request.Context(), userID, id); err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.SuccessResponse{Message: "объявление удалено"})
}

// Complete обрабатывает POST /:kind/:id/complete — ручное снятие с публикации.
func (h *ListingHandler) Complete(c *gin.Context) {
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

	listing, err := h.listings.Complete(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"listing": listing})
}

// My обрабатывает GET /:kind/my — объявления текущего пользователя.
func (h *ListingHandler) My(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	items, err := h.listings.My(c.Request.Context(), userID, c.Param("kind"), c.Query("status"))
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"items": items})
}

// Contact обрабатывает GET /:kind/:id/contact. Пустой контакт — не ошибка:
// фронт показывает «владелец не оставил контакт».
func (h *ListingHandler) Contact(c *gin.Context) {
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

	result, err := h.listings.Contact(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.ContactResponse{
		Contact:  result.Contact,
		Provided: result.Provided,
	})
}

// UploadPhoto обрабатывает POST /:kind/:id/photos (multipart поле photo).
func (h *ListingHandler) UploadPhoto(c *gin.Context) {
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

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		common.RespondBadRequest(c, "файл photo обязателен")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось открыть файл")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	photo, err := h.listings.AddPhoto(c.Request.Context(), userID, id, fileHeader.Filename, data)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, gin.H{"photo": photo})
}

// Photos обрабатывает GET /:kind/:id/photos.
func (h *ListingHandler) Photos(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	photos, err := h.listings.Photos(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"photos": photos})
}
