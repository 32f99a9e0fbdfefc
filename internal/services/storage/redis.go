package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
)

const keyPrefix = "tch:"

// RedisStorage implements storage using Redis
type RedisStorage struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStorage(cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		logger: logger,
	}, nil
}

func (r *RedisStorage) getJSON(ctx context.Context, key string, out interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *RedisStorage) GetTemplates(ctx context.Context, channelID string) ([]models.Template, error) {
	var templates []models.Template
	if err := r.getJSON(ctx, keyPrefix+"templates:"+channelID, &templates); err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []models.Template{}
	}
	return templates, nil
}

func (r *RedisStorage) SaveTemplates(ctx context.Context, channelID string, templates []models.Template) error {
	return r.setJSON(ctx, keyPrefix+"templates:"+channelID, templates, 0)
}

func (r *RedisStorage) GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error) {
	var settings models.GlobalSettings
	if err := r.getJSON(ctx, keyPrefix+"settings", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *RedisStorage) SaveGlobalSettings(ctx context.Context, settings *models.GlobalSettings) error {
	return r.setJSON(ctx, keyPrefix+"settings", settings, 0) // No expiration for settings
}

func (r *RedisStorage) GetHistory(ctx context.Context, viewerID string) ([]string, error) {
	history, err := r.client.LRange(ctx, keyPrefix+"history:"+viewerID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange history: %w", err)
	}
	return history, nil
}

func (r *RedisStorage) AppendHistory(ctx context.Context, viewerID, text string, limit int) error {
	key := keyPrefix + "history:" + viewerID
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, text)
	if limit > 0 {
		pipe.LTrim(ctx, key, int64(-limit), -1)
	}
	pipe.Expire(ctx, key, 7*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append history: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetLastUsed(ctx context.Context, templateID string) (time.Time, error) {
	value, err := r.client.HGet(ctx, keyPrefix+"last_used", templateID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis hget last_used: %w", err)
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last_used %q: %w", value, err)
	}
	return time.UnixMilli(ms), nil
}

func (r *RedisStorage) SetLastUsed(ctx context.Context, templateID string, at time.Time) error {
	return r.client.HSet(ctx, keyPrefix+"last_used", templateID, at.UnixMilli()).Err()
}

func (r *RedisStorage) GetState(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, keyPrefix+"state:"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

func (r *RedisStorage) SetState(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, keyPrefix+"state:"+key, value, ttl).Err()
}

func (r *RedisStorage) DeleteState(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+"state:"+key).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
