package redis

import (
	"errors"

	"github.com/mohitkumar/flowcall/persistence"
	"github.com/mohitkumar/flowcall/util"
	rd "github.com/redis/go-redis/v9"
)

var _ persistence.Storage = new(RedisStorage)

type RedisStorage struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[any]
}

func NewRedisStorage(conf Config) *RedisStorage {
	return &RedisStorage{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[any](),
	}
}

func (r *RedisStorage) Get(key string, out any) (bool, error) {
	ctx, cancel := r.context()
	defer cancel()
	data, err := r.redisClient.Get(ctx, r.getNamespaceKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return false, nil
		}
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	if err := util.DecodeInto(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStorage) Set(key string, value any) error {
	data, err := r.encoderDecoder.Encode(value)
	if err != nil {
		return err
	}
	ctx, cancel := r.context()
	defer cancel()
	if err := r.redisClient.Set(ctx, r.getNamespaceKey(key), data, 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *RedisStorage) Remove(key string) error {
	ctx, cancel := r.context()
	defer cancel()
	if err := r.redisClient.Del(ctx, r.getNamespaceKey(key)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
