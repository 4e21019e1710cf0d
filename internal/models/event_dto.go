package models

import (
	"mime/multipart"
	"strings"
	"time"
)

// CreateEventRequestDto is bound from the multipart body of POST /events.
type CreateEventRequestDto struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"required,max=2000"`
	Location    string    `json:"location" validate:"required,max=200"`
	Date        time.Time `json:"date" validate:"required"`

	// File is optional; when present it is written to the image store.
	File *multipart.FileHeader `json:"-" validate:"-"`
}

// UpdateEventRequestDto is the JSON body of PUT /events/{id}. The image cannot be changed.
type UpdateEventRequestDto struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"required,max=2000"`
	Location    string    `json:"location" validate:"required,max=200"`
	Date        time.Time `json:"date" validate:"required"`
}

type EventDto struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	ImagePath   string    `json:"imagePath,omitempty"`
}

// Normalize trims surrounding whitespace so blank values fail validation.
func (r *CreateEventRequestDto) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
}

func (r *UpdateEventRequestDto) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
}

// ToEventDto maps the persisted entity to its API shape.
func ToEventDto(e Event) EventDto {
	return EventDto{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Location:    e.Location,
		Date:        e.Date,
		ImagePath:   e.ImagePath,
	}
}

func ToEventDtos(events []Event) []EventDto {
	dtos := make([]EventDto, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, ToEventDto(e))
	}
	return dtos
}
