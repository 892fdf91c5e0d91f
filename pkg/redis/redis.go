package redis

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"time"
)

const keyPrefix = "trashiq:detect:"

type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// IRedis caches encoded detection outcomes by image hash.
type IRedis interface {
	GetResult(ctx context.Context, imageHash string) ([]byte, bool, error)
	SetResult(ctx context.Context, imageHash string, payload []byte) error
	Close() error
}

type redisClient struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) (IRedis, error) {
	log.Info(fmt.Sprintf("Connecting to Redis at %s...", cfg.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Successfully connected to Redis")

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &redisClient{client: client, ttl: ttl, log: log}, nil
}

func (r *redisClient) GetResult(ctx context.Context, imageHash string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+imageHash).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.Debug(fmt.Sprintf("Cache miss for %s", imageHash))
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	r.log.Debug(fmt.Sprintf("Cache hit for %s", imageHash))
	return val, true, nil
}

func (r *redisClient) SetResult(ctx context.Context, imageHash string, payload []byte) error {
	return r.client.Set(ctx, keyPrefix+imageHash, payload, r.ttl).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
