package constants

import "time"

const (
	// RedisKeyPrefix is prepended to every key read or written by the redis loader.
	RedisKeyPrefix = "lexcache:"
	// RedisDialTimeout is the timeout for the Redis dialer.
	RedisDialTimeout = 10 * time.Second
	// RedisClientMaxRetries is the maximum number of retries for the Redis client.
	RedisClientMaxRetries = 3
	// RedisClientReadTimeout is the read timeout for the Redis client.
	RedisClientReadTimeout = 3 * time.Second
	// RedisClientWriteTimeout is the write timeout for the Redis client.
	RedisClientWriteTimeout = 3 * time.Second
	// RedisClientPoolTimeout is the pool timeout for the Redis client.
	RedisClientPoolTimeout = 4 * time.Second
	// RedisClientPoolSize is the pool size for the Redis client.
	RedisClientPoolSize = 20
	// RedisClientMinIdleConns is the minimum number of idle connections for the Redis client.
	RedisClientMinIdleConns = 2
	// RedisLoadTimeout bounds a single read-through load issued by a cache factory.
	RedisLoadTimeout = 2 * time.Second
)
