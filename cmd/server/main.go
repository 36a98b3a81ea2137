package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/xqiuyi/hall-backend/internal/config"
	"github.com/xqiuyi/hall-backend/internal/db"
	"github.com/xqiuyi/hall-backend/internal/feed"
	"github.com/xqiuyi/hall-backend/internal/goroutine"
	httpHandlers "github.com/xqiuyi/hall-backend/internal/http/handlers"
	httpRouter "github.com/xqiuyi/hall-backend/internal/http/router"
	"github.com/xqiuyi/hall-backend/internal/logger"
	"github.com/xqiuyi/hall-backend/internal/mail"
	"github.com/xqiuyi/hall-backend/internal/repository"
	"github.com/xqiuyi/hall-backend/internal/service"
	"github.com/xqiuyi/hall-backend/internal/storage"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis опционален: без него лента работает в пределах одного процесса,
	// кэш контактов выключен, а письма уходят синхронно.
	rdb := connectRedis(ctx, cfg.RedisURL)
	if rdb != nil {
		defer rdb.Close()
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Почта: брокер asynq при живом redis, иначе прямая отправка.
	brevo := mail.NewBrevoClient(cfg.BrevoAPIKey, cfg.MailFrom, cfg.MailSenderName)
	mailer := setupMailer(ctx, cfg, brevo, rdb != nil)

	// Лента изменений.
	hub := feed.NewHub(ctx, rdb)
	go hub.Run()

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	listingRepo := repository.NewListingRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)
	dealRepo := repository.NewDealRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)

	// Сервисы.
	contactCache := service.NewContactCache(rdb)
	authService := service.NewAuthService(userRepo, mailer, tokenManager, cfg.PublicBaseURL, cfg.MagicLinkTTL)
	listingService := service.NewListingService(listingRepo, userRepo, contactCache, photoStorage, hub)
	conversationService := service.NewConversationService(conversationRepo, listingRepo, userRepo, hub)
	dealService := service.NewDealService(dealRepo, conversationRepo, listingService, hub)
	reviewService := service.NewReviewService(reviewRepo, dealRepo, conversationRepo, userRepo)

	// Фоновая чистка просроченных magic-ссылок.
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		cleanupExpiredLinks(ctx, authService)
	})

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	listingHandler := httpHandlers.NewListingHandler(listingService)
	conversationHandler := httpHandlers.NewConversationHandler(conversationService)
	dealHandler := httpHandlers.NewDealHandler(dealService)
	reviewHandler := httpHandlers.NewReviewHandler(reviewService)
	feedHandler := httpHandlers.NewFeedHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, rdb)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, listingHandler, conversationHandler, dealHandler, reviewHandler, feedHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// connectRedis возвращает клиент или nil, если redis недоступен.
func connectRedis(ctx context.Context, redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("main: невалидный REDIS_URL, продолжаем без redis: %v", err)
		return nil
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("main: redis недоступен, продолжаем без него: %v", err)
		client.Close()
		return nil
	}

	return client
}

// setupMailer собирает отправку писем: через очередь asynq, если redis
// доступен, иначе напрямую через Brevo в текущем процессе.
func setupMailer(ctx context.Context, cfg *config.Config, brevo *mail.BrevoClient, redisAlive bool) service.MagicLinkSender {
	if !redisAlive {
		log.Printf("main: redis выключен, письма отправляются синхронно")
		return directMailer{brevo: brevo}
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Printf("main: невалидный REDIS_URL для asynq, письма синхронно: %v", err)
		return directMailer{brevo: brevo}
	}

	enqueuer := mail.NewEnqueuer(asynq.NewClient(redisOpt))

	worker := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
	})

	goroutine.SafeGo(func() {
		if err := worker.Run(mail.NewServeMux(brevo)); err != nil {
			log.Printf("main: почтовый воркер завершился с ошибкой: %v", err)
		}
	})

	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		<-ctx.Done()
		worker.Shutdown()
		if err := enqueuer.Close(); err != nil {
			log.Printf("main: ошибка закрытия клиента очереди: %v", err)
		}
	})

	return enqueuer
}

// directMailer шлёт письмо в текущем процессе, без очереди.
type directMailer struct {
	brevo *mail.BrevoClient
}

func (m directMailer) EnqueueMagicLink(ctx context.Context, email, linkURL string) error {
	return m.brevo.SendMagicLink(ctx, email, linkURL)
}

// cleanupExpiredLinks раз в час удаляет просроченные magic-ссылки.
func cleanupExpiredLinks(ctx context.Context, auth *service.AuthService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.CleanupExpiredLinks(ctx); err != nil {
				log.Printf("main: чистка magic-ссылок: %v", err)
			}
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
