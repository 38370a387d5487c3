package loader

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/lexcache/internal/constants"
)

// ClientOption is a function type that can be used to configure the redis client.
type ClientOption func(*redis.Options)

// WithAddr sets the `Addr` field of the `redis.Options` struct.
func WithAddr(addr string) ClientOption {
	return func(opt *redis.Options) {
		opt.Addr = addr
	}
}

// WithUsername sets the `Username` field of the `redis.Options` struct.
func WithUsername(username string) ClientOption {
	return func(opt *redis.Options) {
		opt.Username = username
	}
}

// WithPassword sets the `Password` field of the `redis.Options` struct.
func WithPassword(password string) ClientOption {
	return func(opt *redis.Options) {
		opt.Password = password
	}
}

// WithDB sets the `DB` field of the `redis.Options` struct.
func WithDB(db int) ClientOption {
	return func(opt *redis.Options) {
		opt.DB = db
	}
}

// WithMaxRetries sets the `MaxRetries` field of the `redis.Options` struct.
func WithMaxRetries(maxRetries int) ClientOption {
	return func(opt *redis.Options) {
		opt.MaxRetries = maxRetries
	}
}

// WithPoolSize sets the `PoolSize` field of the `redis.Options` struct.
func WithPoolSize(poolSize int) ClientOption {
	return func(opt *redis.Options) {
		opt.PoolSize = poolSize
	}
}

// WithReadTimeout sets the `ReadTimeout` field of the `redis.Options` struct.
func WithReadTimeout(readTimeout time.Duration) ClientOption {
	return func(opt *redis.Options) {
		opt.ReadTimeout = readTimeout
	}
}

// WithTLSConfig sets the `TLSConfig` field of the `redis.Options` struct.
func WithTLSConfig(tlsConfig *tls.Config) ClientOption {
	return func(opt *redis.Options) {
		opt.TLSConfig = tlsConfig
	}
}

// clientOptions returns the redis options used by NewClient before opts are applied.
func clientOptions(opts ...ClientOption) *redis.Options {
	opt := &redis.Options{
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{
				Timeout: constants.RedisDialTimeout,
			}

			return dialer.DialContext(ctx, network, addr)
		},
		MaxRetries:   constants.RedisClientMaxRetries,
		DialTimeout:  constants.RedisDialTimeout,
		ReadTimeout:  constants.RedisClientReadTimeout,
		WriteTimeout: constants.RedisClientWriteTimeout,
		PoolSize:     constants.RedisClientPoolSize,
		MinIdleConns: constants.RedisClientMinIdleConns,
		PoolTimeout:  constants.RedisClientPoolTimeout,
	}

	for _, option := range opts {
		option(opt)
	}

	return opt
}

// NewClient creates a redis client with the lexcache defaults and the given options.
// The client connects lazily.
func NewClient(opts ...ClientOption) (*redis.Client, error) {
	opt := clientOptions(opts...)

	if strings.TrimSpace(opt.Addr) == "" {
		return nil, ewrap.New("redis address is empty")
	}

	return redis.NewClient(opt), nil
}
