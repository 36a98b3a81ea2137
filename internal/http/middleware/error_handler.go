package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/xqiuyi/hall-backend/internal/logger"
	"github.com/xqiuyi/hall-backend/internal/pkg/apperror"
	"github.com/xqiuyi/hall-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Маскирует внутренние ошибки и возвращает понятные сообщения клиенту.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()

		statusCode := http.StatusInternalServerError
		message := "внутренняя ошибка сервера"

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		var appErr *apperror.AppError
		switch {
		case errors.As(err.Err, &appErr):
			statusCode = appErr.HTTPStatus
			message = appErr.Message
		case errors.Is(err.Err, repository.ErrUserNotFound):
			statusCode = http.StatusNotFound
			message = "пользователь не найден"
		case errors.Is(err.Err, repository.ErrListingNotFound):
			statusCode = http.StatusNotFound
			message = "объявление не найдено"
		case errors.Is(err.Err, repository.ErrConversationNotFound):
			statusCode = http.StatusNotFound
			message = "диалог не найден"
		case errors.Is(err.Err, repository.ErrDealNotFound):
			statusCode = http.StatusNotFound
			message = "сделка не найдена"
		case errors.Is(err.Err, repository.ErrMagicLinkNotFound):
			statusCode = http.StatusUnauthorized
			message = "ссылка входа недействительна"
		default:
			errStr := err.Error()
			if errStr != "" && !containsInternalKeywords(errStr) {
				message = errStr
				if contains(errStr, "неверн") || contains(errStr, "невалид") || contains(errStr, "должн") || contains(errStr, "пуст") {
					statusCode = http.StatusBadRequest
				}
			}
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}

// containsInternalKeywords проверяет, содержит ли строка ключевые слова внутренних ошибок.
func containsInternalKeywords(s string) bool {
	keywords := []string{
		"sql:",
		"database",
		"connection",
		"timeout",
		"internal",
		"panic",
		"runtime",
	}

	for _, keyword := range keywords {
		if contains(s, keyword) {
			return true
		}
	}
	return false
}

// contains проверяет, содержит ли строка подстроку (case-insensitive).
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
