// redis.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"music.mint/internal/models"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps the snapshot under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(options *redis.Options, key string) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client, key: key}, nil
}

func (r *RedisStore) Load(ctx context.Context) ([]*models.Mint, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*models.Mint{}, nil
		}
		return nil, err
	}
	return decode(data)
}

func (r *RedisStore) Save(ctx context.Context, mints []*models.Mint) error {
	data, err := encode(mints)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}

// Quarantine renames the snapshot key to <key>:corrupt-<unixms>.
func (r *RedisStore) Quarantine(ctx context.Context) (string, error) {
	dest := r.key + ":" + quarantineSuffix(time.Now())
	if err := r.client.Rename(ctx, r.key, dest).Err(); err != nil {
		return "", err
	}
	return dest, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
