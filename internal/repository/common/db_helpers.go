package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UniqueViolation — код ошибки PostgreSQL для нарушения уникальности.
const UniqueViolation = "23505"

// IsUniqueViolation проверяет, что ошибка — конфликт уникального индекса.
// Используется в паттерне «прочитал-вставил-перечитал»: проигравшая вставка
// не фатальна, после неё выполняется повторное чтение.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == UniqueViolation
}

// GetByID возвращает строку таблицы по id. Отсутствие строки превращается
// в notFoundErr репозитория.
func GetByID[T any](ctx context.Context, db *sqlx.DB, table string, id interface{}, notFoundErr error) (*T, error) {
	return GetByField[T](ctx, db, table, "id", id, notFoundErr)
}

// GetByField возвращает строку таблицы по значению одного поля. Имена
// таблицы и поля подставляются в запрос, поэтому сюда передаются только
// литералы из кода репозиториев.
func GetByField[T any](ctx context.Context, db *sqlx.DB, table, field string, value interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", table, field)

	if err := db.GetContext(ctx, &entity, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("%s repository: get by %s %w", table, field, err)
	}

	return &entity, nil
}
