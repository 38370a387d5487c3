package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/lexcache/internal/constants"
	"github.com/hyp3rd/lexcache/internal/sentinel"
	"github.com/hyp3rd/lexcache/pkg/cache"
)

type user struct {
	ID   int    `json:"id"   msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

// fakeRedis keeps values in memory and answers like a redis client.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	gets int
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++

	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}

	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, _ := value.([]byte)
	f.data[key] = string(data)
	f.ttls[key] = expiration

	return redis.NewStatusResult("OK", nil)
}

func TestNewRedisErrors(t *testing.T) {
	_, err := NewRedis[user](nil)
	assert.True(t, errors.Is(err, sentinel.ErrNilClient))

	_, err = NewRedis[user](newFakeRedis(), WithSerializer("yaml"))
	assert.True(t, errors.Is(err, sentinel.ErrSerializerNotFound))
}

func TestStoreAndLoad(t *testing.T) {
	for _, codec := range []string{"msgpack", "json", "cbor"} {
		t.Run(codec, func(t *testing.T) {
			fake := newFakeRedis()

			users, err := NewRedis[user](fake, WithSerializer(codec), WithPrefix("users:"))
			assert.NoError(t, err)

			err = users.Store(context.Background(), "1", user{ID: 1, Name: "ada"}, time.Minute)
			assert.NoError(t, err)
			assert.Equal(t, time.Minute, fake.ttls["users:1"])

			got, err := users.Load("1")
			assert.NoError(t, err)
			assert.Equal(t, user{ID: 1, Name: "ada"}, got)
		})
	}
}

func TestLoadMissingAndFailing(t *testing.T) {
	fake := newFakeRedis()

	users, err := NewRedis[user](fake)
	assert.NoError(t, err)

	_, err = users.Load("missing")
	assert.True(t, errors.Is(err, sentinel.ErrKeyNotFound))

	fake.err = errors.New("connection refused")

	_, err = users.Load("any")
	assert.True(t, err != nil)
	assert.False(t, errors.Is(err, sentinel.ErrKeyNotFound))
}

func TestLoadGarbage(t *testing.T) {
	fake := newFakeRedis()
	fake.data[constants.RedisKeyPrefix+"bad"] = "{not msgpack"

	users, err := NewRedis[user](fake, WithSerializer("json"))
	assert.NoError(t, err)

	_, err = users.Load("bad")
	assert.True(t, err != nil)
}

func TestReadThroughCache(t *testing.T) {
	fake := newFakeRedis()

	users, err := NewRedis[user](fake)
	assert.NoError(t, err)
	assert.NoError(t, users.Store(context.Background(), "7", user{ID: 7, Name: "grace"}, 0))

	local, err := cache.New(cache.WithFactory(users.Load))
	assert.NoError(t, err)

	for range 3 {
		got, err := local.Get("7", nil)
		assert.NoError(t, err)
		assert.Equal(t, "grace", got.Name)
	}

	assert.Equal(t, 1, fake.gets)

	_, err = local.Get("8", nil)
	assert.True(t, errors.Is(err, sentinel.ErrKeyNotFound))
	assert.False(t, local.Contains("8"))
}

func TestWarm(t *testing.T) {
	fake := newFakeRedis()

	users, err := NewRedis[user](fake)
	assert.NoError(t, err)

	for i, name := range []string{"a", "b"} {
		assert.NoError(t, users.Store(context.Background(), name, user{ID: i, Name: name}, 0))
	}

	local, err := cache.New[string, user]()
	assert.NoError(t, err)

	loaded, err := users.Warm(local, 2, "a", "b", "c")
	assert.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 2, local.Len())
	assert.Equal(t, "b", local.Value("b").Name)

	fake.err = errors.New("down")

	loaded, err = users.Warm(local, 0, "a")
	assert.True(t, err != nil)
	assert.Equal(t, 0, loaded)
}

func TestClientOptions(t *testing.T) {
	opt := clientOptions(WithAddr("localhost:6379"), WithDB(2), WithPoolSize(5), WithPassword("secret"))

	assert.Equal(t, "localhost:6379", opt.Addr)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, 5, opt.PoolSize)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, constants.RedisClientMaxRetries, opt.MaxRetries)
	assert.Equal(t, constants.RedisClientMinIdleConns, opt.MinIdleConns)

	_, err := NewClient()
	assert.True(t, err != nil)

	client, err := NewClient(WithAddr("localhost:6379"))
	assert.NoError(t, err)
	assert.NoError(t, client.Close())
}
