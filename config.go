package lexcache

import (
	"io"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/hyp3rd/lexcache/internal/constants"
	"github.com/hyp3rd/lexcache/internal/libs/serializer"
	"github.com/hyp3rd/lexcache/internal/sentinel"
	"github.com/hyp3rd/lexcache/pkg/cache"
	"github.com/hyp3rd/lexcache/pkg/loader"
	"github.com/hyp3rd/lexcache/pkg/registry"
)

// Config is the configuration of a lexcache process: the collections it
// serves and the surfaces around them.
type Config struct {
	Management    ManagementConfig            `mapstructure:"management"`
	Log           LogConfig                   `mapstructure:"log"`
	Redis         RedisConfig                 `mapstructure:"redis"`
	CollectionTTL time.Duration               `mapstructure:"collection_ttl"`
	Collections   map[string]CollectionConfig `mapstructure:"collections"`
}

// ManagementConfig configures the management HTTP server.
type ManagementConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RedisConfig configures the redis server read-through collections load from.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Serializer string `mapstructure:"serializer"`
}

// CollectionConfig is the policy of a named collection. Out of range values
// are clamped when the collection is built.
type CollectionConfig struct {
	cache.Policy `mapstructure:",squash"`

	// ReadThrough makes the collection load missing keys from redis, under
	// the "<name>:" prefix.
	ReadThrough bool `mapstructure:"read_through"`
}

// LoadConfig reads the YAML file at path, when not empty, and applies the
// LEXCACHE_ environment overrides (LEXCACHE_MANAGEMENT_ADDR, LEXCACHE_LOG_LEVEL, ...).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, ewrap.Wrapf(err, "reading config file %s", path)
		}
	}

	return decodeConfig(v)
}

// ReadConfig is LoadConfig for a YAML document held in memory.
func ReadConfig(r io.Reader) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadConfig(r); err != nil {
		return nil, ewrap.Wrap(err, "reading config")
	}

	return decodeConfig(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("management.addr", constants.DefaultManagementAddr)
	v.SetDefault("management.read_timeout", defaultReadTimeout)
	v.SetDefault("management.write_timeout", defaultWriteTimeout)
	v.SetDefault("log.level", zerolog.LevelInfoValue)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.serializer", serializer.Msgpack)
	v.SetDefault("collection_ttl", constants.DefaultCollectionTTL)
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, ewrap.Wrap(err, "decoding config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports the first problem found in the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Management.Addr) == "" {
		return ewrap.Wrap(sentinel.ErrInvalidConfig, "management.addr is empty")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "log.level %q", c.Log.Level)
	}

	for name, collection := range c.Collections {
		if strings.TrimSpace(name) == "" {
			return ewrap.Wrap(sentinel.ErrInvalidConfig, "collection name is empty")
		}

		if collection.ReadThrough && c.Redis.Addr == "" {
			return ewrap.Wrapf(sentinel.ErrInvalidConfig, "collection %q reads through but redis.addr is empty", name)
		}
	}

	return nil
}

// Logger returns a zerolog logger writing to w at the configured level.
func (c LogConfig) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// DefineCollections defines every configured collection in r with string keys
// and values of any type. Read-through collections load from client, which may
// be nil when none is configured.
func (c *Config) DefineCollections(r *registry.Registry, client loader.Client) error {
	for name, collection := range c.Collections {
		var options []cache.Option[string, any]

		if collection.ReadThrough {
			if client == nil {
				return ewrap.Wrap(sentinel.ErrNilClient, name)
			}

			source, err := loader.NewRedis[any](client,
				loader.WithPrefix(name+":"),
				loader.WithSerializer(c.Redis.Serializer),
			)
			if err != nil {
				return ewrap.Wrap(err, name)
			}

			options = append(options, cache.WithFactory(source.Load))
		}

		if err := registry.Define(r, name, collection.Policy, options...); err != nil {
			return err
		}
	}

	return nil
}

// ReadThrough reports whether any collection loads from redis.
func (c *Config) ReadThrough() bool {
	for _, collection := range c.Collections {
		if collection.ReadThrough {
			return true
		}
	}

	return false
}
