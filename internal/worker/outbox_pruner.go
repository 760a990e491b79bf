package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/logger"
)

// OutboxPruner deletes processed outbox rows past the retention window.
type OutboxPruner struct {
	outbox        repository.OutboxRepository
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
}

func NewOutboxPruner(outbox repository.OutboxRepository, retentionDays int, interval time.Duration, l *logger.Logger) *OutboxPruner {
	return &OutboxPruner{
		outbox:        outbox,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        l,
	}
}

func (w *OutboxPruner) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.prune(ctx); err != nil {
				w.logger.Error(err, "Failed to prune outbox")
			}
		}
	}
}

func (w *OutboxPruner) prune(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.outbox.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune outbox events: %w", err)
	}

	if rows > 0 {
		w.logger.WithFields(map[string]interface{}{
			"rows":   rows,
			"cutoff": cutoff,
		}).Info("Pruned processed outbox events")
	}
	return nil
}
