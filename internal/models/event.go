package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ErrEventNotFound is returned when no Event matches the requested id.
var ErrEventNotFound = errors.New("event not found")

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull"`
	Location    string    `bun:"location,notnull"`
	Date        time.Time `bun:"date,notnull"`
	ImagePath   string    `bun:"image_path,nullzero"`
}
