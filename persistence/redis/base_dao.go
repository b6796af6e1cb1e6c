package redis

import (
	"fmt"
	"strings"

	rd "github.com/go-redis/redis/v9"
)

// NewClient builds the client shared by storage, delay queue and pub/sub transport.
func NewClient(conf Config) rd.UniversalClient {
	return rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    conf.Addrs,
		Password: conf.Password,
		DB:       conf.DB,
		PoolSize: conf.PoolSize,
	})
}

type baseDao struct {
	redisClient rd.UniversalClient
	namespace   string
}

func newBaseDao(client rd.UniversalClient, namespace string) *baseDao {
	return &baseDao{
		redisClient: client,
		namespace:   namespace,
	}
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	if len(bs.namespace) == 0 {
		return strings.Join(args, ":")
	}
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}
