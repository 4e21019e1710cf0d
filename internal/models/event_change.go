package models

import (
	"fmt"
	"time"
)

type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// EventChange describes a committed mutation of an Event. It is published to Kafka
// and streamed to SSE subscribers. Event is nil for deletions.
type EventChange struct {
	Type       ChangeType `json:"type"`
	EventID    int64      `json:"event_id"`
	Event      *EventDto  `json:"event,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func NewEventChange(changeType ChangeType, eventID int64, dto *EventDto) EventChange {
	return EventChange{
		Type:       changeType,
		EventID:    eventID,
		Event:      dto,
		OccurredAt: time.Now().UTC(),
	}
}

// Key is the partition key used when the change is published.
func (c EventChange) Key() string {
	return fmt.Sprintf("event-%d", c.EventID)
}
