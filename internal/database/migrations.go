package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// Migrate creates the tables and indexes if they do not exist
func (db *DB) Migrate(ctx context.Context, logger *logrus.Logger) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	logger.Info("Database schema is up to date")
	return nil
}
