package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const HEbooks string = "ebooks"

// maxTxRetries bounds optimistic transactions retried on concurrent key changes.
const maxTxRetries = 10

var _ EbookStorage = (*redisEbookStorage)(nil) // ensure redisEbookStorage implements EbookStorage.

type redisEbookStorage struct {
	logger *zap.Logger
	client *redis.Client
	ids    UIDHandler
}

// NewRedisEbookStorage provides an instance of redis-based ebook storage.
func NewRedisEbookStorage(logger *zap.Logger, client *redis.Client, ids UIDHandler) EbookStorage {
	return &redisEbookStorage{
		logger: logger,
		client: client,
		ids:    ids,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,

		ContextTimeoutEnabled: true,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// GetAll retrieves a list of all ebooks stored in the redis database.
func (rs *redisEbookStorage) GetAll(ctx context.Context) ([]Ebook, error) {
	values, err := rs.client.HVals(ctx, HEbooks).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list ebooks: %w", err)
	}
	ebooks := make([]Ebook, 0, len(values))
	for _, value := range values {
		var ebook Ebook
		if err = json.Unmarshal([]byte(value), &ebook); err != nil {
			return nil, fmt.Errorf("redis: failed to decode ebook: %w", err)
		}
		ebooks = append(ebooks, ebook)
	}
	return ebooks, nil
}

// GetOne retrieves an ebook record based on its ID.
func (rs *redisEbookStorage) GetOne(ctx context.Context, id string) (Ebook, error) {
	var ebook Ebook
	value, err := rs.client.HGet(ctx, HEbooks, id).Result()
	if errors.Is(err, redis.Nil) {
		return ebook, ErrEbookNotFound
	}
	if err != nil {
		return ebook, fmt.Errorf("redis: failed to get ebook: %w", err)
	}
	if err = json.Unmarshal([]byte(value), &ebook); err != nil {
		return Ebook{}, fmt.Errorf("redis: failed to decode ebook: %w", err)
	}
	return ebook, nil
}

// Add inserts a new ebook record under a generated ID. HSETNX refuses
// to overwrite an existing field so a collision leads to a new ID.
func (rs *redisEbookStorage) Add(ctx context.Context, ebook Ebook) (Ebook, error) {
	for {
		ebook.ID = rs.ids.Generate(EbookIDPrefix)
		value, err := json.Marshal(ebook)
		if err != nil {
			return Ebook{}, fmt.Errorf("redis: failed to encode ebook: %w", err)
		}
		set, err := rs.client.HSetNX(ctx, HEbooks, ebook.ID, value).Result()
		if err != nil {
			return Ebook{}, fmt.Errorf("redis: failed to add ebook: %w", err)
		}
		if set {
			return ebook, nil
		}
		rs.logger.Warn("storage: generated ebook id already in use", zap.String("ebook.id", ebook.ID))
	}
}

// Replace overwrites an existing ebook. The existence check and the
// write run into a watched transaction.
func (rs *redisEbookStorage) Replace(ctx context.Context, id string, ebook Ebook) (Ebook, error) {
	ebook.ID = id
	value, err := json.Marshal(ebook)
	if err != nil {
		return Ebook{}, fmt.Errorf("redis: failed to encode ebook: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, HEbooks, id).Result()
		if err != nil {
			return err
		}
		if !exists {
			return ErrEbookNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, HEbooks, id, value)
			return nil
		})
		return err
	}

	if err = rs.watch(ctx, txf); err != nil {
		if errors.Is(err, ErrEbookNotFound) {
			return Ebook{}, err
		}
		return Ebook{}, fmt.Errorf("redis: failed to replace ebook: %w", err)
	}
	return ebook, nil
}

// Remove deletes an ebook record based on its ID and returns it.
func (rs *redisEbookStorage) Remove(ctx context.Context, id string) (Ebook, error) {
	var ebook Ebook
	txf := func(tx *redis.Tx) error {
		value, err := tx.HGet(ctx, HEbooks, id).Result()
		if errors.Is(err, redis.Nil) {
			return ErrEbookNotFound
		}
		if err != nil {
			return err
		}
		if err = json.Unmarshal([]byte(value), &ebook); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, HEbooks, id)
			return nil
		})
		return err
	}

	if err := rs.watch(ctx, txf); err != nil {
		if errors.Is(err, ErrEbookNotFound) {
			return Ebook{}, err
		}
		return Ebook{}, fmt.Errorf("redis: failed to remove ebook: %w", err)
	}
	return ebook, nil
}

// watch runs txf with the ebooks hash watched and retries it
// when another client modified the hash in between.
func (rs *redisEbookStorage) watch(ctx context.Context, txf func(tx *redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := rs.client.Watch(ctx, txf, HEbooks)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errors.New("transaction aborted after too many retries")
}

// Close is a no-op. The redis client is shared with the queues and closed by the App.
func (rs *redisEbookStorage) Close() error {
	return nil
}
