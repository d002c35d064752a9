package room

import (
	"context"
	"time"

	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/logging"
)

// SweepDissolved evicts dissolved rooms older than the retention from the
// registry history and the store. A failed store delete is logged and left
// for the next sweep to retry on restart.
func (e *lifecycleEngine) SweepDissolved(ctx context.Context) int {
	now := e.opts.Clock()
	evicted := e.registry.EvictDissolved(ctx, now.Add(-e.opts.DissolvedRetention))

	for _, id := range evicted {
		if err := e.store.Delete(ctx, id); err != nil {
			e.logger.Error(logging.Room, logging.Janitor, "failed to delete expired room", map[logging.ExtraKey]any{
				logging.RoomID:       id,
				logging.ErrorMessage: err,
			})
		}
		e.publish(ctx, domain.NewRoomExpiredLog(id, now))
	}

	if len(evicted) > 0 {
		e.metrics.AddRoomsExpired(len(evicted))
		e.logger.Info(logging.Room, logging.Janitor, "expired dissolved rooms", map[logging.ExtraKey]any{
			logging.Count: len(evicted),
		})
	}
	return len(evicted)
}

func (e *lifecycleEngine) RunJanitor(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.SweepDissolved(ctx)
		}
	}
}
