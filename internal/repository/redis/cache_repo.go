package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/repository/redis/converter"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/clients"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.RecommendationConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.RecommendationConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetRecommendations возвращает закэшированную выдачу. Промах — (nil, false, nil).
// Повреждённая запись удаляется и считается промахом.
func (c *CacheRepo) GetRecommendations(ctx context.Context, key string) ([]usecase.SimilarItem, bool, error) {
	data, err := c.client.Client.Get(ctx, key).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, false, nil // cache miss
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var models []converter.RecommendationRedisModel
	if err := json.Unmarshal(data, &models); err != nil {
		c.logger.Warnf("Redis unmarshal failed for %s: %v", key, e.Wrap(whereami.WhereAmI(), err))
		if err := c.client.Client.Del(ctx, key).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false, nil
	}

	return c.conv.ToArrUseCase(models), true, nil
}

// SetRecommendations кэширует выдачу с TTL из конфигурации.
func (c *CacheRepo) SetRecommendations(ctx context.Context, key string, items []usecase.SimilarItem) error {
	data, err := json.Marshal(c.conv.ToArrRedisModel(items))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, key, data, c.cfg.CacheTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
