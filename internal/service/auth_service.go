package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/xqiuyi/hall-backend/internal/logger"
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/pkg/apperror"
	"github.com/xqiuyi/hall-backend/internal/repository"
	"github.com/xqiuyi/hall-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	CreateMagicLink(ctx context.Context, link *models.MagicLink) error
	GetMagicLink(ctx context.Context, id uuid.UUID) (*models.MagicLink, error)
	MarkMagicLinkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteExpiredMagicLinks(ctx context.Context, before time.Time) (int64, error)
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, refreshToken string) error
}

// MagicLinkSender ставит письмо со ссылкой входа в очередь отправки.
type MagicLinkSender interface {
	EnqueueMagicLink(ctx context.Context, email, linkURL string) error
}

// AuthService инкапсулирует вход по magic-ссылке и анонимные сессии.
type AuthService struct {
	repo          AuthRepository
	mailer        MagicLinkSender
	tokenManager  *TokenManager
	publicBaseURL string
	magicLinkTTL  time.Duration
}

// AuthResult возвращает итог проверки ссылки или создания анонимной сессии.
type AuthResult struct {
	User      *models.User
	Profile   *models.Profile
	TokenPair *TokenPair
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, mailer MagicLinkSender, tokenManager *TokenManager, publicBaseURL string, magicLinkTTL time.Duration) *AuthService {
	return &AuthService{
		repo:          repo,
		mailer:        mailer,
		tokenManager:  tokenManager,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		magicLinkTTL:  magicLinkTTL,
	}
}

// RequestMagicLink создаёт одноразовую ссылку входа и ставит письмо в очередь.
// Пользователь заводится при первом запросе, повторный вход идёт по тому же
// аккаунту.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		user = &models.User{Email: &email, IsAnonymous: false}
		if err := s.repo.Create(ctx, user); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	secret, err := randomSecret()
	if err != nil {
		return fmt.Errorf("auth service: не удалось сгенерировать секрет: %w", err)
	}

	secretHash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: не удалось захешировать секрет: %w", err)
	}

	link := &models.MagicLink{
		ID:         uuid.New(),
		UserID:     user.ID,
		SecretHash: string(secretHash),
		ExpiresAt:  time.Now().Add(s.magicLinkTTL),
	}
	if err := s.repo.CreateMagicLink(ctx, link); err != nil {
		return err
	}

	linkURL := fmt.Sprintf("%s/api/auth/verify?link_id=%s&secret=%s", s.publicBaseURL, link.ID, secret)
	if err := s.mailer.EnqueueMagicLink(ctx, email, linkURL); err != nil {
		return fmt.Errorf("auth service: не удалось поставить письмо в очередь: %w", err)
	}

	return nil
}

// VerifyMagicLink проверяет ссылку, гасит её и выпускает пару токенов.
// Ссылка одноразовая: повторный переход по уже использованной ссылке
// отклоняется, даже если две проверки пришли одновременно.
func (s *AuthService) VerifyMagicLink(ctx context.Context, linkID uuid.UUID, secret string, meta map[string]string) (*AuthResult, error) {
	link, err := s.repo.GetMagicLink(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrMagicLinkNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}

	if link.Used() || link.Expired(time.Now()) {
		return nil, apperror.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(link.SecretHash), []byte(secret)); err != nil {
		return nil, apperror.ErrUnauthorized
	}

	// Условный UPDATE гасит ссылку ровно один раз.
	used, err := s.repo.MarkMagicLinkUsed(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	if !used {
		return nil, apperror.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, link.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		if logger.Log != nil {
			logger.Log.WithFields(map[string]interface{}{
				"user_id": user.ID,
				"error":   err.Error(),
			}).Warn("auth service: не удалось обновить last_login_at")
		}
	}

	return s.issueTokens(ctx, user, meta)
}

// Anonymous создаёт анонимную сессию просмотра без email.
func (s *AuthService) Anonymous(ctx context.Context, meta map[string]string) (*AuthResult, error) {
	user := &models.User{IsAnonymous: true}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user, meta)
}

// Refresh выпускает новую пару токенов по refresh токену.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta map[string]string) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, fmt.Errorf("auth service: refresh токен невалиден: %w", err)
	}

	if _, err := s.repo.GetSessionByRefreshToken(ctx, oldToken); err != nil {
		return nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("auth service: некорректный subject: %w", err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSession(ctx, oldToken); err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:       userID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	applySessionMeta(session, meta)

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Logout удаляет сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteSession(ctx, refreshToken)
}

// Me возвращает пользователя и его профиль.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, *models.Profile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

// UpdateBio сохраняет короткое био пользователя. Анонимам недоступно.
func (s *AuthService) UpdateBio(ctx context.Context, userID uuid.UUID, bio string) (*models.Profile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasEmail() {
		return nil, apperror.ErrEmailRequired
	}

	if err := validation.ValidateBio(bio); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	profile := &models.Profile{UserID: userID}
	trimmed := strings.TrimSpace(bio)
	if trimmed != "" {
		profile.Bio = &trimmed
	}

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// CleanupExpiredLinks удаляет просроченные magic-ссылки. Запускается фоновой
// задачей.
func (s *AuthService) CleanupExpiredLinks(ctx context.Context) error {
	deleted, err := s.repo.DeleteExpiredMagicLinks(ctx, time.Now())
	if err != nil {
		return err
	}
	if deleted > 0 && logger.Log != nil {
		logger.Log.WithField("deleted", deleted).Info("auth service: удалены просроченные magic-ссылки")
	}
	return nil
}

// issueTokens выпускает токены и сохраняет сессию.
func (s *AuthService) issueTokens(ctx context.Context, user *models.User, meta map[string]string) (*AuthResult, error) {
	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	applySessionMeta(session, meta)

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:      user,
		Profile:   profile,
		TokenPair: tokenPair,
	}, nil
}

// applySessionMeta переносит user-agent и IP из метаданных запроса в сессию.
func applySessionMeta(session *models.Session, meta map[string]string) {
	if meta == nil {
		return
	}
	if ua, ok := meta["user_agent"]; ok {
		session.UserAgent = &ua
	}
	if ip, ok := meta["ip"]; ok {
		session.IPAddress = &ip
	}
}

// randomSecret генерирует криптостойкий секрет magic-ссылки.
func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
