package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// contactCacheTTL — срок жизни закэшированного контакта объявления.
const contactCacheTTL = 10 * time.Minute

// ContactCache хранит контакты объявлений в redis, снимая нагрузку с БД при
// повторных открытиях одного и того же контакта.
type ContactCache struct {
	rdb *redis.Client
}

// NewContactCache создаёт кэш контактов. rdb может быть nil, тогда кэш
// выключен и все вызовы уходят мимо него.
func NewContactCache(rdb *redis.Client) *ContactCache {
	return &ContactCache{rdb: rdb}
}

func contactCacheKey(listingID uuid.UUID) string {
	return "contact:" + listingID.String()
}

// Get возвращает контакт из кэша. Вторым значением сообщает, было ли
// попадание.
func (c *ContactCache) Get(ctx context.Context, listingID uuid.UUID) (string, bool) {
	if c.rdb == nil {
		return "", false
	}

	// Любая ошибка redis трактуется как промах: кэш не должен ломать выдачу.
	val, err := c.rdb.Get(ctx, contactCacheKey(listingID)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set кладёт контакт в кэш.
func (c *ContactCache) Set(ctx context.Context, listingID uuid.UUID, contact string) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Set(ctx, contactCacheKey(listingID), contact, contactCacheTTL).Err()
}

// Invalidate убирает контакт из кэша после изменения или удаления объявления.
func (c *ContactCache) Invalidate(ctx context.Context, listingID uuid.UUID) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, contactCacheKey(listingID)).Err()
}
