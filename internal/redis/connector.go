// Package redis opens the go-redis client used by the redis cache backend.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/catalogd/internal/connect"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
)

// ConnectOptions defines the Redis client and its connection retry behavior.
type ConnectOptions struct {
	Addr           string        // Redis address (ex: "localhost:6379")
	User           string        // Optional username
	Password       string        // Optional password
	RedisDB        int           // Redis DB number
	DialTimeout    time.Duration // Redis dial timeout
	ReadTimeout    time.Duration // Redis read timeout
	WriteTimeout   time.Duration // Redis write timeout
	PoolSize       int           // Redis connection pool size
	ConnectTimeout time.Duration // Total time allowed for connection attempts (ex: 30s)
	RetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	MaxWait        time.Duration // max wait between retries (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping attempt (ex: 2s)
	WarnThreshold  int           // warn after this many attempts
}

func (o ConnectOptions) retry() connect.Options {
	return connect.Options{
		ConnectTimeout: o.ConnectTimeout,
		RetryInterval:  o.RetryInterval,
		MaxWait:        o.MaxWait,
		PingTimeout:    o.PingTimeout,
		WarnThreshold:  o.WarnThreshold,
	}
}

// New creates a new Redis client and pings it with exponential backoff until
// ConnectTimeout is reached. The client is closed when no ping succeeds.
func New(opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.retry().Validate(); err != nil {
		log.Error("invalid redis connect options", logger.Error(err))
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	ping := func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	if _, err := connect.WithRetry(context.Background(), "redis", opts.Addr, opts.retry(), ping, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
