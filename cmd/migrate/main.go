package main

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/config"
	"github.com/looprhq/analytics-server/internal/logger"
)

func main() {
	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config", zap.Error(err))
	}

	pg := conf.Postgres()
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		pg.Username(), pg.Password(), pg.Host(), pg.Database())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.Fatal("failed to init migration driver", zap.Error(err))
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Fatal("failed to init migrations", zap.Error(err))
	}

	err = m.Up()
	if err == migrate.ErrNoChange {
		logger.Info("schema already up to date")
		return
	}
	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	version, _, _ := m.Version()
	logger.Info("schema migrated", zap.Uint("version", version))
}
