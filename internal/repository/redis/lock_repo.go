package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/style-catalog/pkg/clients"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// releaseScript удаляет ключ, только если он всё ещё принадлежит владельцу.
var releaseScript = r.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepo — блокировка прогонов загрузки между экземплярами сервиса.
type LockRepo struct {
	client *clients.RedisClient
	ttl    time.Duration
}

func NewLockRepo(client *clients.RedisClient, ttl time.Duration) *LockRepo {
	return &LockRepo{
		client: client,
		ttl:    ttl,
	}
}

// Acquire захватывает блокировку name. Если она занята, возвращает e.ErrIngestionInProgress.
func (l *LockRepo) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	key := lockKey(name)
	token := uuid.NewString()

	ok, err := l.client.Client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if !ok {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: lock %s is held", e.ErrIngestionInProgress, name))
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client.Client, []string{key}, token).Err(); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		return nil
	}

	return release, nil
}

func lockKey(name string) string {
	return "lock:" + name
}
