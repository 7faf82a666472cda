package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/config"
	"github.com/MrSnakeDoc/catalogd/internal/connect"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/redis"
	"github.com/MrSnakeDoc/catalogd/internal/store"
	"github.com/MrSnakeDoc/catalogd/internal/store/file"
	"github.com/MrSnakeDoc/catalogd/internal/store/memory"
	mongostore "github.com/MrSnakeDoc/catalogd/internal/store/mongo"
	redisstore "github.com/MrSnakeDoc/catalogd/internal/store/redis"
)

// backend is the durable cache selected by CATALOG_CACHE_BACKEND.
type backend struct {
	name  string
	store store.Backend // nil for "none"
	close func(ctx context.Context) error
}

func noClose(context.Context) error { return nil }

func openBackend(cfg *config.Config, log logger.Logger) (*backend, error) {
	switch cfg.CacheBackend {
	case config.BackendNone:
		log.Warn("no durable cache configured, changes are lost on restart")
		return &backend{name: "none", close: noClose}, nil

	case config.BackendMemory:
		return &backend{name: "memory", store: memory.New(), close: noClose}, nil

	case config.BackendFile:
		b := file.New(cfg.CacheFileDir)
		if err := b.Ping(context.Background()); err != nil {
			return nil, err
		}
		log.Info("file cache ready", logger.String("dir", cfg.CacheFileDir))
		return &backend{name: "file", store: b, close: noClose}, nil

	case config.BackendRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, err
		}
		log.Info("Redis initialized successfully")
		return &backend{
			name:  "redis",
			store: redisstore.NewBackend(client, cfg.RedisTTL),
			close: func(context.Context) error { return client.Close() },
		}, nil

	case config.BackendMongo:
		client, err := mongostore.ConnectWithRetry(context.Background(), cfg.MongoURI, connect.Options{
			ConnectTimeout: cfg.MongoConnect,
			RetryInterval:  2 * time.Second,
			MaxWait:        10 * time.Second,
			PingTimeout:    cfg.MongoTimeout,
			WarnThreshold:  3,
		}, log)
		if err != nil {
			return nil, err
		}
		b, err := mongostore.NewBackend(mongostore.Options{
			Client:     client,
			Database:   cfg.MongoDB,
			Collection: cfg.MongoCollection,
			Timeout:    cfg.CacheTimeout,
		})
		if err != nil {
			return nil, err
		}
		log.Info("MongoDB initialized successfully",
			logger.String("database", cfg.MongoDB),
			logger.String("collection", cfg.MongoCollection))
		return &backend{name: "mongo", store: b, close: client.Disconnect}, nil
	}

	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}
