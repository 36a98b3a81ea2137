package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReviewHandler_Create_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ReviewHandler{reviews: nil}
	r.POST("/conversations/:id/review", handler.Create)

	conversationID := uuid.New()
	req, _ := http.NewRequest("POST", "/conversations/"+conversationID.String()+"/review", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReviewHandler_Create_InvalidConversationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	handler := &ReviewHandler{reviews: nil}
	r.POST("/conversations/:id/review", handler.Create)

	req, _ := http.NewRequest("POST", "/conversations/invalid-uuid/review", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewHandler_ForUser_InvalidUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ReviewHandler{reviews: nil}
	r.GET("/users/:id/reviews", handler.ForUser)

	req, _ := http.NewRequest("GET", "/users/invalid-uuid/reviews", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewHandler_MyReview_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ReviewHandler{reviews: nil}
	r.GET("/conversations/:id/review", handler.MyReview)

	conversationID := uuid.New()
	req, _ := http.NewRequest("GET", "/conversations/"+conversationID.String()+"/review", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDealHandler_Confirm_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &DealHandler{deals: nil}
	r.POST("/conversations/:id/deal/confirm", handler.Confirm)

	conversationID := uuid.New()
	req, _ := http.NewRequest("POST", "/conversations/"+conversationID.String()+"/deal/confirm", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDealHandler_Get_InvalidConversationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	handler := &DealHandler{deals: nil}
	r.GET("/conversations/:id/deal", handler.Get)

	req, _ := http.NewRequest("GET", "/conversations/invalid-uuid/deal", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
