package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xqiuyi/hall-backend/internal/config"
	"github.com/xqiuyi/hall-backend/internal/http/handlers"
	"github.com/xqiuyi/hall-backend/internal/http/middleware"
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	listingHandler *handlers.ListingHandler,
	conversationHandler *handlers.ConversationHandler,
	dealHandler *handlers.DealHandler,
	reviewHandler *handlers.ReviewHandler,
	feedHandler *handlers.FeedHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.LangRedirect(cfg.DefaultLang))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	// Заявка на magic-ссылку ограничена по частоте, остальной /auth — нет.
	magicLinkRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/magic-link", magicLinkRateLimit, authHandler.RequestMagicLink)
		authGroup.GET("/verify", authHandler.Verify)
		authGroup.POST("/anonymous", authHandler.Anonymous)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/me", authHandler.Me)
	}

	// Лента изменений: токен передаётся в query, апгрейд внутри хэндлера.
	api.GET("/feed", feedHandler.Handle)

	// Публичные маршруты
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ForUser)

	// Залы услуг и запросов делят один набор маршрутов: сегмент пути
	// определяет вид объявления.
	halls := []struct {
		path string
		kind string
	}{
		{path: "services", kind: models.ListingKindService},
		{path: "demands", kind: models.ListingKindDemand},
	}
	for _, hallDef := range halls {
		hall := api.Group("/" + hallDef.path)
		hall.Use(withKind(hallDef.kind))

		hall.GET("", listingHandler.List)
		hall.GET("/:id", middleware.UUIDValidator("id"), listingHandler.Get)
		hall.GET("/:id/photos", middleware.UUIDValidator("id"), listingHandler.Photos)

		hallProtected := hall.Group("")
		hallProtected.Use(middleware.AuthMiddleware(tokenManager))
		{
			hallProtected.POST("", listingHandler.Publish)
			hallProtected.GET("/my", listingHandler.My)
			hallProtected.PUT("/:id", middleware.UUIDValidator("id"), listingHandler.Update)
			hallProtected.DELETE("/:id", middleware.UUIDValidator("id"), listingHandler.Delete)
			hallProtected.POST("/:id/complete", middleware.UUIDValidator("id"), listingHandler.Complete)
			hallProtected.GET("/:id/contact", middleware.UUIDValidator("id"), listingHandler.Contact)
			hallProtected.POST("/:id/photos", middleware.UUIDValidator("id"), listingHandler.UploadPhoto)
			hallProtected.POST("/:id/conversations", middleware.UUIDValidator("id"), conversationHandler.Resolve)
		}
	}

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile/bio", authHandler.GetBio)
		protected.PUT("/profile/bio", authHandler.UpdateBio)

		protected.GET("/conversations", conversationHandler.My)
		protected.GET("/conversations/:id", middleware.UUIDValidator("id"), conversationHandler.Get)
		protected.GET("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.Messages)
		protected.POST("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.SendMessage)
		protected.GET("/conversations/:id/counterpart", middleware.UUIDValidator("id"), conversationHandler.Counterpart)

		protected.GET("/conversations/:id/deal", middleware.UUIDValidator("id"), dealHandler.Get)
		protected.POST("/conversations/:id/deal/confirm", middleware.UUIDValidator("id"), dealHandler.Confirm)

		protected.POST("/conversations/:id/review", middleware.UUIDValidator("id"), reviewHandler.Create)
		protected.GET("/conversations/:id/review", middleware.UUIDValidator("id"), reviewHandler.MyReview)
	}

	return r
}

// withKind фиксирует вид зала как path-параметр kind: группы /services и
// /demands делят общие хэндлеры.
func withKind(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Params = append(c.Params, gin.Param{Key: "kind", Value: kind})
		c.Next()
	}
}
