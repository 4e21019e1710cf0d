package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ms-events/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateEvent inserts the event; the store-assigned id is written back into event.ID.
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().
		Model(event).
		Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents returns every event ordered by id.
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := d.Bun.NewSelect().
		Model(&events).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateEvent writes the mutable columns. id and image_path are never touched.
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := d.Bun.NewUpdate().
		Model(event).
		Column("name", "description", "location", "date").
		Where("id = ?", event.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrEventNotFound
	}
	return nil
}
