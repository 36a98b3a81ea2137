package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/repository/common"
)

// Ошибки уровня репозитория.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrMagicLinkNotFound = errors.New("magic link not found")
)

// UserRepository отвечает за таблицы users, profiles, magic_links и user_sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, is_anonymous)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, user.Email, user.IsAnonymous).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create %w", err)
	}
	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", strings.ToLower(email), ErrUserNotFound)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// UpdateLastLoginAt отмечает время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("user repository: update last login %w", err)
	}
	return nil
}

// GetProfile возвращает профиль пользователя; отсутствие строки — не ошибка.
func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	query := `SELECT user_id, bio, updated_at FROM profiles WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repository: get profile %w", err)
	}
	return &profile, nil
}

// UpsertProfile сохраняет био пользователя.
func (r *UserRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, bio, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET bio = EXCLUDED.bio, updated_at = NOW()
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, profile.UserID, profile.Bio).
		Scan(&profile.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: upsert profile %w", err)
	}
	return nil
}

// CreateMagicLink сохраняет одноразовую ссылку входа.
func (r *UserRepository) CreateMagicLink(ctx context.Context, link *models.MagicLink) error {
	query := `
		INSERT INTO magic_links (id, user_id, secret_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		link.ID, link.UserID, link.SecretHash, link.ExpiresAt,
	).Scan(&link.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create magic link %w", err)
	}
	return nil
}

// GetMagicLink возвращает ссылку по идентификатору.
func (r *UserRepository) GetMagicLink(ctx context.Context, id uuid.UUID) (*models.MagicLink, error) {
	return common.GetByID[models.MagicLink](ctx, r.db, "magic_links", id, ErrMagicLinkNotFound)
}

// MarkMagicLinkUsed помечает ссылку использованной. Возвращает false,
// если ссылка уже была использована (условный UPDATE, гонка двух кликов).
func (r *UserRepository) MarkMagicLinkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE magic_links SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("user repository: mark magic link used %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("user repository: mark magic link used %w", err)
	}
	return affected > 0, nil
}

// DeleteExpiredMagicLinks удаляет истёкшие ссылки старше отметки.
func (r *UserRepository) DeleteExpiredMagicLinks(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM magic_links WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("user repository: delete expired magic links %w", err)
	}
	return res.RowsAffected()
}

// CreateSession сохраняет refresh-сессию.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}
	return nil
}

// GetSessionByRefreshToken возвращает сессию по refresh токену.
func (r *UserRepository) GetSessionByRefreshToken(ctx context.Context, token string) (*models.Session, error) {
	return common.GetByField[models.Session](ctx, r.db, "user_sessions", "refresh_token", token, ErrUserNotFound)
}

// DeleteSession удаляет сессию по refresh токену (logout).
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE refresh_token = $1`, refreshToken); err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}
