// Package postgresstorage implements the storage.Backend interface on
// PostgreSQL/PostGIS by wrapping the GORM backend.
package postgresstorage

import (
	"fmt"

	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/internal/database"
	"github.com/OCAP2/geoanchor/internal/logging"
	gormstorage "github.com/OCAP2/geoanchor/internal/storage/gorm"
)

const maxOpenConns = 10

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg config.PostgresConfig
	log *logging.SlogManager
}

// New creates a new Postgres storage backend. The connection is opened in Init.
func New(cfg config.PostgresConfig, logManager *logging.SlogManager) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{LogManager: logManager}),
		cfg:     cfg,
		log:     logManager,
	}
}

// Init connects, validates the connection and initializes the GORM backend.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := database.Ping(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}
	b.log.WriteLog("postgres:init", fmt.Sprintf("Connected to %s:%s/%s", b.cfg.Host, b.cfg.Port, b.cfg.Database), "INFO")

	b.SetDB(db)
	return b.Backend.Init()
}
