package cmd

import (
	"context"
	"errors"
	"fmt"
	"ms-events/internal/cache"
	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/events/db"
	events "ms-events/internal/events/service"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"time"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample events",
	Long: `Insert a fixed set of sample events through the event service, so they are
validated exactly like API input. Images are not seeded.

The service is wired to the same Redis cache and Kafka topic as the running
event service, so --reset invalidates cached entries and every create and
delete is published to live subscribers.`,
	RunE: runSeed,
}

var (
	seedReset bool
	seedCount int
)

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "Delete all existing events first")
	seedCmd.Flags().IntVar(&seedCount, "count", 0, "Number of sample events to insert (default: all)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig(cmd)
	ctx := cmd.Context()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if err := db.EnsureSchema(ctx, bunDB); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	svc := events.NewEventService(&db.DB{Bun: bunDB}, nil, log)
	closeDeps, err := wireService(ctx, svc, cfg, log)
	if err != nil {
		return err
	}
	defer closeDeps()

	if seedReset {
		n, err := resetEvents(ctx, svc)
		if err != nil {
			return fmt.Errorf("reset events: %w", err)
		}
		log.LogDatabase("DELETE", "events", fmt.Sprintf("Removed %d existing events", n))
	}

	samples := sampleEvents(time.Now().UTC())
	if seedCount > 0 && seedCount < len(samples) {
		samples = samples[:seedCount]
	}

	created, err := seedEvents(ctx, svc, samples)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d events\n", len(created))
	return nil
}

// wireService attaches the cache and publisher the way the event service does.
// An enabled but unreachable Redis is an error here: seeding around it would
// leave the running service with stale entries.
func wireService(ctx context.Context, svc *events.EventService, cfg *config.Config, log *logger.Logger) (func(), error) {
	var closers []func() error

	if cfg.Redis.Enabled {
		client, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, client.Close)
		svc.Cache = cache.NewEventCache(client, cfg.Redis.CacheTTL, log)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, log)
		closers = append(closers, producer.Close)
		svc.Publisher = producer
	}

	return func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("SEED", fmt.Sprintf("Close failed: %v", err))
			}
		}
	}, nil
}

// resetEvents deletes every event through the service so each removal is
// invalidated and published like an API delete.
func resetEvents(ctx context.Context, svc *events.EventService) (int, error) {
	existing, err := svc.ListEvents(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range existing {
		err := svc.DeleteEvent(ctx, e.ID)
		if errors.Is(err, models.ErrEventNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("delete event %d: %w", e.ID, err)
		}
		removed++
	}
	return removed, nil
}

func seedEvents(ctx context.Context, svc *events.EventService, samples []models.CreateEventRequestDto) ([]models.EventDto, error) {
	created := make([]models.EventDto, 0, len(samples))
	for _, req := range samples {
		dto, err := svc.CreateEvent(ctx, req)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", req.Name, err)
		}
		created = append(created, *dto)
	}
	return created, nil
}

// sampleEvents dates every sample relative to now so they stay upcoming.
func sampleEvents(now time.Time) []models.CreateEventRequestDto {
	day := now.Truncate(24 * time.Hour)
	return []models.CreateEventRequestDto{
		{
			Name:        "Open Air Jazz Night",
			Description: "Local quartets and a late jam session by the river.",
			Location:    "Riverside Park Amphitheatre",
			Date:        day.AddDate(0, 0, 7).Add(19 * time.Hour),
		},
		{
			Name:        "Go Meetup: Building Services",
			Description: "Talks on HTTP routing, ORMs and observability in Go.",
			Location:    "Innovation Hub, Room 2",
			Date:        day.AddDate(0, 0, 14).Add(18*time.Hour + 30*time.Minute),
		},
		{
			Name:        "Farmers Market",
			Description: "Seasonal produce, bread and coffee from regional growers.",
			Location:    "Old Town Square",
			Date:        day.AddDate(0, 0, 3).Add(8 * time.Hour),
		},
		{
			Name:        "Charity 10K Run",
			Description: "A flat city course in support of the children's hospital.",
			Location:    "Central Stadium",
			Date:        day.AddDate(0, 1, 0).Add(7 * time.Hour),
		},
		{
			Name:        "Indie Film Festival",
			Description: "Three days of short films followed by director Q&As.",
			Location:    "Lumiere Cinema",
			Date:        day.AddDate(0, 0, 21).Add(17 * time.Hour),
		},
	}
}
