package repository

import (
	"fmt"

	"streamchat/internal/config"
	"streamchat/internal/logger"
	"streamchat/internal/repository/db"
	"streamchat/internal/repository/memory"
	"streamchat/internal/repository/postgres"
	"streamchat/internal/repository/sqlite"
)

// Open returns the store selected by the configured driver
func Open(dbConfig config.DatabaseConfig) (db.Database, error) {
	switch dbConfig.Driver {
	case "postgres":
		store, err := postgres.NewPostgresDB(dbConfig)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite":
		store, err := sqlite.New(dbConfig.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		logger.Log.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbConfig.Driver)
	}
}
