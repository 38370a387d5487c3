// Package constants defines default configuration values and bounds
// for the lexcache system: capacity and lifetime limits applied to every
// local cache, the production-duration weight used by eviction, and the
// defaults of the named-collection registry and management server.
package constants

import "time"

const (
	// MinCapacity is the smallest soft capacity a cache can be configured with.
	MinCapacity = 31
	// MaxCapacity is the largest soft capacity a cache can reach, including adaptive growth.
	MaxCapacity = 128 * 1024
	// DefaultCapacity is used when no capacity is configured.
	DefaultCapacity = 128

	// MinTimeToLive is the lower bound for both the absolute and the sliding expiration.
	MinTimeToLive = time.Second
	// MaxTimeToLive is the upper bound for both the absolute and the sliding expiration.
	MaxTimeToLive = 24 * time.Hour
	// DefaultTimeToLive is the absolute entry lifetime used when none is configured.
	// The sliding expiration defaults to the same value.
	DefaultTimeToLive = 5 * time.Minute

	// ProductionWeight multiplies the time a factory took to produce a value.
	// The result is added to the entry touch time when ranking entries for eviction.
	ProductionWeight = 4

	// ConcurrencyPerCPU is multiplied by the processor count to get the default concurrency level.
	ConcurrencyPerCPU = 4
	// MaxShards caps the number of shards of the backing store.
	MaxShards = 256

	// DefaultCollectionTTL is how long the registry keeps a resolved collection.
	DefaultCollectionTTL = 30 * time.Minute
	// DefaultCollectionCapacity is the soft number of collections the registry keeps alive.
	DefaultCollectionCapacity = MinCapacity
	// DefaultCollectionGrowFactor lets the registry double its capacity until it reaches MaxCapacity
	// before evicting collections.
	DefaultCollectionGrowFactor = 13

	// DefaultManagementAddr is the listen address of the management HTTP server.
	DefaultManagementAddr = "127.0.0.1:9280"

	// EnvPrefix is the prefix of the environment variables overriding the configuration.
	EnvPrefix = "LEXCACHE"
)
