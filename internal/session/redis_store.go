package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKey = "wgdashctl:session"

// RedisStore keeps the session as a JSON blob in Redis, for setups where the
// session should follow the user across machines.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	mu        sync.Mutex
	observers []func(*Session)
}

// NewRedisStore connects to host:port and verifies the connection with a
// ping before returning.
func NewRedisStore(host, port, username, password string, log *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Username: username,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := client.Ping(ctx).Err(); err != nil {
		cancel()
		return nil, err
	}

	return &RedisStore{client: client, ctx: ctx, cancel: cancel, log: log}, nil
}

func (st *RedisStore) Load() (*Session, error) {
	data, err := st.client.Get(st.ctx, redisKey).Result()
	if err == redis.Nil {
		return &Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	var p persisted
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return fromPersisted(p)
}

func (st *RedisStore) Save(s *Session) error {
	data, err := json.Marshal(s.toPersisted())
	if err != nil {
		return err
	}
	if err := st.client.Set(st.ctx, redisKey, data, 0).Err(); err != nil {
		return err
	}
	st.log.Debug("session saved to redis", zap.String("key", redisKey))
	st.notify(s.Clone())
	return nil
}

func (st *RedisStore) Reset() error {
	if err := st.client.Del(st.ctx, redisKey).Err(); err != nil {
		return err
	}
	st.log.Info("session forgotten", zap.String("key", redisKey))
	st.notify(nil)
	return nil
}

func (st *RedisStore) Subscribe(fn func(*Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.observers = append(st.observers, fn)
}

func (st *RedisStore) notify(s *Session) {
	st.mu.Lock()
	obs := make([]func(*Session), len(st.observers))
	copy(obs, st.observers)
	st.mu.Unlock()
	for _, fn := range obs {
		fn(s)
	}
}

// Close releases the Redis connection.
func (st *RedisStore) Close() error {
	st.cancel()
	return st.client.Close()
}
