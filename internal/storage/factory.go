// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/internal/logging"
	"github.com/OCAP2/geoanchor/internal/storage/memory"
	postgresstorage "github.com/OCAP2/geoanchor/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/geoanchor/internal/storage/sqlite"
)

// Storage types accepted in storage.type.
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// NewBackend creates a journal backend based on configuration
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case TypePostgres:
		return postgresstorage.New(cfg.Postgres, logManager), nil
	case TypeSQLite:
		return sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     cfg.SQLite.DumpPath,
			DumpInterval: cfg.SQLite.DumpInterval,
		}, logManager), nil
	case TypeMemory, "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
