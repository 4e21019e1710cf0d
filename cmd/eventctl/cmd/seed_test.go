package cmd

import (
	"context"
	"database/sql"
	"io"
	"ms-events/internal/events/db"
	events "ms-events/internal/events/service"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupService(t *testing.T) (*events.EventService, *db.DB) {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })
	require.NoError(t, db.EnsureSchema(context.Background(), bunDB))

	eventDB := &db.DB{Bun: bunDB}
	return events.NewEventService(eventDB, nil, logger.NewConsoleLogger(io.Discard)), eventDB
}

func TestSampleEventsAreUpcomingAndValid(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	samples := sampleEvents(now)

	require.NotEmpty(t, samples)
	for _, s := range samples {
		assert.NotEmpty(t, s.Name)
		assert.True(t, s.Date.After(now), s.Name)
		assert.Nil(t, s.File)
	}
}

func TestSeedEventsInsertsAll(t *testing.T) {
	svc, eventDB := setupService(t)
	samples := sampleEvents(time.Now().UTC())

	created, err := seedEvents(context.Background(), svc, samples)

	require.NoError(t, err)
	assert.Len(t, created, len(samples))
	stored, err := eventDB.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, len(samples))
}

func TestSeedEventsStopsOnInvalidSample(t *testing.T) {
	svc, _ := setupService(t)
	samples := []models.CreateEventRequestDto{
		sampleEvents(time.Now().UTC())[0],
		{Name: "Broken"},
	}

	created, err := seedEvents(context.Background(), svc, samples)

	assert.ErrorIs(t, err, events.ErrInvalidEvent)
	assert.Len(t, created, 1)
}

func TestMatchesEvent(t *testing.T) {
	change := models.NewEventChange(models.ChangeUpdated, 42, nil)

	assert.True(t, matchesEvent(change, 0))
	assert.True(t, matchesEvent(change, 42))
	assert.False(t, matchesEvent(change, 7))
}

func TestRootRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["seed"])
	assert.True(t, names["tail"])
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []int64
}

func (c *recordingCache) Get(ctx context.Context, id int64) (*models.EventDto, bool, error) {
	return nil, false, nil
}

func (c *recordingCache) Version(ctx context.Context, id int64) (int64, error) {
	return 0, nil
}

func (c *recordingCache) Set(ctx context.Context, dto models.EventDto, version int64) error {
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.EventChange
}

func (p *recordingPublisher) PublishEventChange(ctx context.Context, change models.EventChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

func (p *recordingPublisher) ofType(changeType models.ChangeType) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []int64
	for _, c := range p.changes {
		if c.Type == changeType {
			ids = append(ids, c.EventID)
		}
	}
	return ids
}

func TestSeedEventsPublishesCreates(t *testing.T) {
	svc, _ := setupService(t)
	pub := &recordingPublisher{}
	svc.Publisher = pub

	created, err := seedEvents(context.Background(), svc, sampleEvents(time.Now().UTC()))

	require.NoError(t, err)
	assert.Len(t, pub.ofType(models.ChangeCreated), len(created))
}

func TestResetEventsInvalidatesAndPublishesEachDelete(t *testing.T) {
	ctx := context.Background()
	svc, eventDB := setupService(t)
	created, err := seedEvents(ctx, svc, sampleEvents(time.Now().UTC())[:3])
	require.NoError(t, err)

	c := &recordingCache{}
	pub := &recordingPublisher{}
	svc.Cache = c
	svc.Publisher = pub

	n, err := resetEvents(ctx, svc)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	ids := make([]int64, 0, len(created))
	for _, e := range created {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, ids, c.invalidated)
	assert.ElementsMatch(t, ids, pub.ofType(models.ChangeDeleted))

	stored, err := eventDB.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestResetEventsOnEmptyStore(t *testing.T) {
	svc, _ := setupService(t)

	n, err := resetEvents(context.Background(), svc)

	require.NoError(t, err)
	assert.Zero(t, n)
}
