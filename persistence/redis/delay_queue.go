package redis

import (
	"context"
	"errors"
	"strconv"

	rd "github.com/go-redis/redis/v9"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/persistence"
	"go.uber.org/zap"
)

type redisDelayQueue struct {
	*baseDao
}

var _ persistence.DelayQueue = new(redisDelayQueue)

func NewRedisDelayQueue(client rd.UniversalClient, namespace string) *redisDelayQueue {
	return &redisDelayQueue{
		baseDao: newBaseDao(client, namespace),
	}
}

func (rq *redisDelayQueue) Push(ctx context.Context, queueName string, dueAtMillis int64, message []byte) error {
	queueName = rq.getNamespaceKey(queueName)
	member := rd.Z{
		Score:  float64(dueAtMillis),
		Member: message,
	}
	err := rq.redisClient.ZAdd(ctx, queueName, member).Err()
	if err != nil {
		logger.Error("error while push to delay queue", zap.String("queue", queueName), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rq *redisDelayQueue) PopDue(ctx context.Context, queueName string, nowMillis int64) ([]string, error) {
	queueName = rq.getNamespaceKey(queueName)
	maxScore := strconv.FormatInt(nowMillis, 10)
	pipe := rq.redisClient.TxPipeline()

	opt := &rd.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}
	zr := pipe.ZRangeByScore(ctx, queueName, opt)
	pipe.ZRemRangeByScore(ctx, queueName, "-inf", maxScore)

	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, rd.Nil) {
		logger.Error("error while pop from delay queue", zap.String("queue", queueName), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}

	res, err := zr.Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return res, nil
}
