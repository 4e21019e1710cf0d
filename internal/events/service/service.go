package events

import (
	"context"
	"errors"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
	"ms-events/internal/storage"
	"sync"

	"github.com/go-playground/validator/v10"
)

// EventDBLayer is the repository capability set the service relies on.
type EventDBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
}

// EventCache is a versioned read cache: Set with the version read before
// loading the row must not store anything once the id has been invalidated.
type EventCache interface {
	Get(ctx context.Context, id int64) (*models.EventDto, bool, error)
	Version(ctx context.Context, id int64) (int64, error)
	Set(ctx context.Context, dto models.EventDto, version int64) error
	Invalidate(ctx context.Context, id int64) error
}

type ChangePublisher interface {
	PublishEventChange(ctx context.Context, change models.EventChange) error
}

type ChangeEmitter interface {
	Emit(change models.EventChange)
}

// EventService holds no per-request state. Cache, Publisher and Emitter are optional.
type EventService struct {
	DB        EventDBLayer
	Images    storage.ImageStore
	Cache     EventCache
	Publisher ChangePublisher
	Emitter   ChangeEmitter
	Logger    *logger.Logger

	validate *validator.Validate

	// ids whose last invalidation failed; the cache is bypassed for them until
	// an invalidation succeeds
	staleMu sync.Mutex
	stale   map[int64]struct{}
}

func NewEventService(db EventDBLayer, images storage.ImageStore, log *logger.Logger) *EventService {
	return &EventService{
		DB:       db,
		Images:   images,
		Logger:   log,
		validate: newValidator(),
		stale:    make(map[int64]struct{}),
	}
}

// CreateEvent stores the optional image first, then inserts the event. The two
// writes are not atomic: a failed insert leaves the image file behind.
func (s *EventService) CreateEvent(ctx context.Context, req models.CreateEventRequestDto) (*models.EventDto, error) {
	req.Normalize()
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	event := models.Event{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date.UTC(),
	}

	if req.File != nil {
		imagePath, err := s.saveImage(ctx, req)
		if err != nil {
			return nil, err
		}
		event.ImagePath = imagePath
	}

	if err := s.DB.CreateEvent(ctx, &event); err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("❌ Failed to create event %q: %v", event.Name, err))
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	dto := models.ToEventDto(event)
	s.Logger.LogEvent("CREATE", dto.ID, "✅ Event created")
	s.notify(ctx, models.NewEventChange(models.ChangeCreated, dto.ID, &dto))
	return &dto, nil
}

func (s *EventService) saveImage(ctx context.Context, req models.CreateEventRequestDto) (string, error) {
	f, err := req.File.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	imagePath, err := s.Images.Save(ctx, req.File.Filename, f)
	if errors.Is(err, storage.ErrUnsupportedImage) {
		return "", &ValidationError{Problems: []string{err.Error()}}
	}
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return imagePath, nil
}

func (s *EventService) ListEvents(ctx context.Context) ([]models.EventDto, error) {
	events, err := s.DB.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return models.ToEventDtos(events), nil
}

// GetEvent reads through the cache when one is configured. Cache failures are
// logged and fall back to the store.
func (s *EventService) GetEvent(ctx context.Context, id int64) (*models.EventDto, error) {
	useCache := s.Cache != nil && s.cacheUsable(ctx, id)

	var version int64
	if useCache {
		dto, found, err := s.Cache.Get(ctx, id)
		switch {
		case err != nil:
			s.Logger.Warn("CACHE", fmt.Sprintf("Cache read for event %d failed: %v", id, err))
			useCache = false
		case found:
			return dto, nil
		default:
			if version, err = s.Cache.Version(ctx, id); err != nil {
				s.Logger.Warn("CACHE", fmt.Sprintf("Cache version for event %d failed: %v", id, err))
				useCache = false
			}
		}
	}

	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", id, err)
	}

	dto := models.ToEventDto(*event)
	if useCache {
		if err := s.Cache.Set(ctx, dto, version); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Cache write for event %d failed: %v", id, err))
		}
	}
	return &dto, nil
}

// UpdateEvent overwrites the mutable fields of an existing event. Id and ImagePath
// are preserved.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, req models.UpdateEventRequestDto) (*models.EventDto, error) {
	req.Normalize()
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", id, err)
	}

	event.Name = req.Name
	event.Description = req.Description
	event.Location = req.Location
	event.Date = req.Date.UTC()

	if err := s.DB.UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event %d: %w", id, err)
	}
	s.invalidate(ctx, id)

	dto := models.ToEventDto(*event)
	s.Logger.LogEvent("UPDATE", id, "✅ Event updated")
	s.notify(ctx, models.NewEventChange(models.ChangeUpdated, id, &dto))
	return &dto, nil
}

// DeleteEvent hard-deletes the event. The stored image, if any, is kept.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("event %d: %w", id, err)
	}
	s.invalidate(ctx, id)

	s.Logger.LogEvent("DELETE", id, "✅ Event deleted")
	s.notify(ctx, models.NewEventChange(models.ChangeDeleted, id, nil))
	return nil
}

// invalidate drops the cached entry. On failure the id is marked stale so reads
// skip the cache until a later invalidation succeeds.
func (s *EventService) invalidate(ctx context.Context, id int64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, id); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("Cache invalidation for event %d failed, bypassing cache for it: %v", id, err))
		s.setStale(id, true)
		return
	}
	s.setStale(id, false)
}

// cacheUsable retries a pending invalidation for id.
func (s *EventService) cacheUsable(ctx context.Context, id int64) bool {
	s.staleMu.Lock()
	_, pending := s.stale[id]
	s.staleMu.Unlock()
	if !pending {
		return true
	}

	if err := s.Cache.Invalidate(ctx, id); err != nil {
		s.Logger.Debug("CACHE", fmt.Sprintf("Event %d still stale in cache: %v", id, err))
		return false
	}
	s.setStale(id, false)
	return true
}

func (s *EventService) setStale(id int64, stale bool) {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	if !stale {
		delete(s.stale, id)
		return
	}
	if s.stale == nil {
		s.stale = make(map[int64]struct{})
	}
	s.stale[id] = struct{}{}
}

// notify is best-effort; the mutation is already committed.
func (s *EventService) notify(ctx context.Context, change models.EventChange) {
	metrics.EventChangesTotal.WithLabelValues(string(change.Type)).Inc()
	if s.Emitter != nil {
		s.Emitter.Emit(change)
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishEventChange(ctx, change); err != nil {
			metrics.PublishFailuresTotal.Inc()
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s change for event %d: %v", change.Type, change.EventID, err))
		}
	}
}
