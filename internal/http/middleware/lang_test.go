package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func langRouter(defaultLang string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LangRedirect(defaultLang))
	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestLangRedirect_AddsDefaultPrefix(t *testing.T) {
	r := langRouter(LangZH)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/zh/services", w.Header().Get("Location"))
}

func TestLangRedirect_KeepsQuery(t *testing.T) {
	r := langRouter(LangZH)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/services?q=水管&category=维修", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/zh/services?q=")
}

func TestLangRedirect_PrefixedPathPasses(t *testing.T) {
	r := langRouter(LangZH)

	for _, path := range []string{"/zh/services", "/en", "/en/demands"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestLangRedirect_SkipsAPIAndStatic(t *testing.T) {
	r := langRouter(LangZH)

	for _, path := range []string{"/api/listings", "/media/photo", "/favicon.ico", "/health"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestLangRedirect_CookieWins(t *testing.T) {
	r := langRouter(LangZH)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	req.AddCookie(&http.Cookie{Name: "lang", Value: "en"})
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	r.ServeHTTP(w, req)

	assert.Equal(t, "/en/services", w.Header().Get("Location"))
}

func TestLangRedirect_AcceptLanguageFallback(t *testing.T) {
	r := langRouter(LangZH)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	r.ServeHTTP(w, req)

	assert.Equal(t, "/en/services", w.Header().Get("Location"))
}

func TestLangRedirect_MediaWithoutSlashStillSkipped(t *testing.T) {
	r := langRouter(LangZH)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
