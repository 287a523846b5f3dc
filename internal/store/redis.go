package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"TaiexCache/internal/logger"
	"TaiexCache/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the keys, default "taiexcache".
	Prefix string
}

// RedisStore keeps each instrument's rows as one JSON value under
// <prefix>:index:<instrument>.
type RedisStore struct {
	client *goredis.Client
	prefix string
	Clock
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig, loc *time.Location) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "taiexcache"
	}
	logger.Info("redis store connected", logger.String("addr", cfg.Addr), logger.String("prefix", prefix))
	return &RedisStore{
		client: client,
		prefix: prefix + ":" + IndexDomain,
		Clock:  Clock{Location: loc, Now: time.Now},
	}, nil
}

func (s *RedisStore) Name() string { return "redis" }

// Ping checks that the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) key(instrument string) string {
	return s.prefix + ":" + instrument
}

func (s *RedisStore) Load(ctx context.Context, instrument string) ([]model.Row, error) {
	if err := validateInstrument(instrument); err != nil {
		return nil, err
	}
	key := s.key(instrument)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var recs []rowRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, s.quarantine(ctx, instrument, key, err)
	}
	rows, err := fromRecords(recs, s.Location)
	if err != nil {
		return nil, s.quarantine(ctx, instrument, key, err)
	}
	return rows, nil
}

func (s *RedisStore) quarantine(ctx context.Context, instrument, key string, cause error) error {
	if err := s.client.Rename(ctx, key, key+":corrupt").Err(); err != nil {
		logger.Error("quarantine cache key failed", logger.Instrument(instrument), logger.String("key", key), logger.ErrorField(err))
	} else {
		logger.Warn("cache key quarantined", logger.Instrument(instrument), logger.String("key", key), logger.ErrorField(cause))
	}
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, cause)
}

// Save replaces the value in one SET, which Redis applies atomically.
func (s *RedisStore) Save(ctx context.Context, instrument string, rows []model.Row) error {
	if err := validateInstrument(instrument); err != nil {
		return err
	}
	hist := s.historical(rows)
	if len(hist) == 0 {
		return nil
	}
	data, err := json.Marshal(toRecords(hist))
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	if err := s.client.Set(ctx, s.key(instrument), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, instrument string) error {
	if err := validateInstrument(instrument); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(instrument)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// ClearAll deletes every key under the store's namespace.
func (s *RedisStore) ClearAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
