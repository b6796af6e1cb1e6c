package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/persistence"
	"go.uber.org/zap"
)

var _ persistence.Storage = new(redisStorage)

type redisStorage struct {
	*baseDao
}

func NewRedisStorage(client rd.UniversalClient, namespace string) *redisStorage {
	return &redisStorage{
		baseDao: newBaseDao(client, namespace),
	}
}

func (r *redisStorage) Set(ctx context.Context, key string, value []byte) error {
	key = r.getNamespaceKey(key)
	if err := r.redisClient.Set(ctx, key, value, 0).Err(); err != nil {
		logger.Error("error while saving key", zap.String("key", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	key = r.getNamespaceKey(key)
	data, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.KeyNotFoundError{Key: key}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return data, nil
}

func (r *redisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	nsKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		nsKeys = append(nsKeys, r.getNamespaceKey(key))
	}
	if err := r.redisClient.Del(ctx, nsKeys...).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisStorage) AddMember(ctx context.Context, setKey string, member string) error {
	if err := r.redisClient.SAdd(ctx, r.getNamespaceKey(setKey), member).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisStorage) RemoveMember(ctx context.Context, setKey string, member string) error {
	if err := r.redisClient.SRem(ctx, r.getNamespaceKey(setKey), member).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisStorage) Members(ctx context.Context, setKey string) ([]string, error) {
	members, err := r.redisClient.SMembers(ctx, r.getNamespaceKey(setKey)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return members, nil
}

// Close is a no-op, the client is shared with the transport and owned by the caller.
func (r *redisStorage) Close() error {
	return nil
}
