package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/tourai-backend/internal/core/ports"
)

// Seed writes entries through the tour writer. Agents are upserted once per
// username. A failing tour is logged and skipped; the joined failures are
// returned alongside the number of tours created.
func Seed(ctx context.Context, writer ports.TourWriter, entries []Entry) (int, error) {
	agentIDs := make(map[string]int64)
	created := 0
	var failures []error

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		agentID, ok := agentIDs[entry.Agent.Username]
		if !ok {
			id, err := writer.UpsertAgent(ctx, entry.Agent)
			if err != nil {
				return created, fmt.Errorf("seed agent %s: %w", entry.Agent.Username, err)
			}
			agentIDs[entry.Agent.Username] = id
			agentID = id
		}

		tour := entry.Tour
		tour.Agent = entry.Agent
		tour.Agent.ID = agentID
		id, err := writer.CreateTour(ctx, tour)
		if err != nil {
			slog.Error("tour_seed_failed", "title", tour.Title, "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", tour.Title, err))
			continue
		}
		created++
		slog.Info("tour_seeded", "tour_id", id, "title", tour.Title, "destination", tour.Destination, "price", tour.Price.Float64())
	}
	return created, errors.Join(failures...)
}
