package db

import (
	"context"
	"ms-events/internal/models"

	"github.com/uptrace/bun"
)

// EnsureSchema creates the events table when it does not exist yet.
func EnsureSchema(ctx context.Context, bunDB *bun.DB) error {
	_, err := bunDB.NewCreateTable().
		Model((*models.Event)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}
