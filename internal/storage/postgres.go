package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mohamedkhairy/ad-autoscaler/internal/config"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// OpenDatabase opens a pooled PostgreSQL connection and verifies it with a ping
func OpenDatabase(dbConfig config.DatabaseConfig) (*sql.DB, error) {
	// Open database connection
	db, err := sql.Open("postgres", dbConfig.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection initialized",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return db, nil
}

// dateParam formats a day for a DATE column
func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}
