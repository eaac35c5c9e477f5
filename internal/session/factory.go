package session

import (
	"os"

	"go.uber.org/zap"
)

const (
	EnvRedisHost     = "REDIS_HOST"
	EnvRedisPort     = "REDIS_PORT"
	EnvRedisUser     = "REDIS_USERNAME"
	EnvRedisPassword = "REDIS_PASSWORD"
)

// NewStore picks a backend from the environment: Redis when REDIS_HOST is
// set and reachable, otherwise the per-user file store. A Redis connection
// failure falls back to the file store rather than failing startup.
func NewStore(log *zap.Logger) (Store, error) {
	if host := os.Getenv(EnvRedisHost); host != "" {
		port := getenv(EnvRedisPort, "6379")
		store, err := NewRedisStore(host, port, os.Getenv(EnvRedisUser), os.Getenv(EnvRedisPassword), log)
		if err == nil {
			log.Info("using redis session store", zap.String("addr", host+":"+port))
			return store, nil
		}
		log.Warn("redis unavailable, falling back to file store", zap.Error(err))
	}

	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	log.Info("using file session store", zap.String("path", path))
	return NewFileStore(path, log), nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
