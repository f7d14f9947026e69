package config

import (
	"fmt"

	"github.com/advisorhq/stateflow/graph/store"
)

// OpenStore constructs the checkpoint store the configuration selects.
// Callers own the returned store's lifecycle; sqlite, mysql and redis stores
// hold connections that should be closed on shutdown.
func (c Config) OpenStore() (store.Store, error) {
	switch c.Backend {
	case "memory":
		return store.NewMemStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(c.SQLite.Path)
	case "mysql":
		return store.NewMySQLStore(c.MySQL.DSN)
	case "redis":
		return store.NewRedisStore(store.RedisOptions{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
	}
	return nil, fmt.Errorf("config: unknown backend %q", c.Backend)
}
