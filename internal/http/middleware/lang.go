package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Поддерживаемые языки интерфейса.
const (
	LangZH = "zh"
	LangEN = "en"
)

// LangRedirect перенаправляет страницы без языкового префикса на
// /{lang}/... . API, WebSocket и файлы не трогаются. Язык берётся из cookie
// lang, затем из Accept-Language, иначе язык по умолчанию.
func LangRedirect(defaultLang string) gin.HandlerFunc {
	if defaultLang != LangZH && defaultLang != LangEN {
		defaultLang = LangZH
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if skipLangRedirect(path) {
			c.Next()
			return
		}

		if hasLangPrefix(path) {
			c.Next()
			return
		}

		lang := pickLang(c, defaultLang)

		target := "/" + lang + path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		c.Redirect(http.StatusTemporaryRedirect, target)
		c.Abort()
	}
}

// skipLangRedirect отсекает пути, которым языковой префикс не нужен.
func skipLangRedirect(path string) bool {
	if strings.HasPrefix(path, "/api/") || path == "/api" {
		return true
	}
	if strings.HasPrefix(path, "/media/") || path == "/health" {
		return true
	}
	// Файлы со статикой: есть расширение в последнем сегменте.
	last := path[strings.LastIndex(path, "/")+1:]
	return strings.Contains(last, ".")
}

// hasLangPrefix проверяет, начинается ли путь с /zh или /en.
func hasLangPrefix(path string) bool {
	for _, lang := range []string{LangZH, LangEN} {
		prefix := "/" + lang
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// pickLang выбирает язык: cookie, затем Accept-Language, затем умолчание.
func pickLang(c *gin.Context, defaultLang string) string {
	if cookie, err := c.Cookie("lang"); err == nil {
		if cookie == LangZH || cookie == LangEN {
			return cookie
		}
	}

	accept := strings.ToLower(c.GetHeader("Accept-Language"))
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if idx := strings.Index(part, ";"); idx >= 0 {
			part = part[:idx]
		}
		if strings.HasPrefix(part, LangZH) {
			return LangZH
		}
		if strings.HasPrefix(part, LangEN) {
			return LangEN
		}
	}

	return defaultLang
}
