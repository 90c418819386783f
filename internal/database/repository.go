package database

import (
	"context"

	"cryptobot/internal/model"
)

// Repository defines the standard interface for archive operations.
type Repository interface {
	Migrate(ctx context.Context) error
	ArchiveSnapshot(ctx context.Context, quotes []model.ArchivedQuote) error
}
