package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	rd "github.com/redis/go-redis/v9"
)

const DEFAULT_TIMEOUT = 3 * time.Second

type baseDao struct {
	redisClient rd.UniversalClient
	namespace   string
	timeout     time.Duration
}

func newBaseDao(conf Config) *baseDao {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    conf.Addrs,
		Password: conf.Password,
		PoolSize: conf.PoolSize,
	})
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return &baseDao{
		redisClient: redisClient,
		namespace:   conf.Namespace,
		timeout:     timeout,
	}
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	if bs.namespace == "" {
		return strings.Join(args, ":")
	}
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}

func (bs *baseDao) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), bs.timeout)
}

func (bs *baseDao) Close() error {
	return bs.redisClient.Close()
}
