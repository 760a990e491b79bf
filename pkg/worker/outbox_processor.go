package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/logger"
	"github.com/clinicdesk/booking-api/pkg/messaging"
	"github.com/clinicdesk/booking-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Notifier receives appointment lifecycle events after they are
// published. Failures are logged, never retried.
type Notifier interface {
	NotifyBooked(ctx context.Context, event *model.AppointmentEvent) error
	NotifyConfirmed(ctx context.Context, event *model.AppointmentEvent) error
	NotifyCancelled(ctx context.Context, event *model.AppointmentEvent) error
	NotifyReminder(ctx context.Context, event *model.AppointmentEvent) error
}

// OutboxProcessor drains pending outbox rows, publishes them to the
// broker and triggers email notifications.
type OutboxProcessor struct {
	repo     repository.OutboxRepository
	broker   messaging.Broker
	notifier Notifier
	config   OutboxProcessorConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	notifier Notifier,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:     repo,
		broker:   broker,
		notifier: notifier,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingWithLock(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.WithFields(map[string]interface{}{
				"event_id":   event.ID.String(),
				"event_type": event.EventType,
			}).Error(err, "Failed to process event")
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, event.EventType, event.Payload)
	})

	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		errStr := err.Error()
		if updateErr := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status")
		}
		return err
	}

	p.notify(ctx, event)

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil); err != nil {
		p.logger.WithFields(map[string]interface{}{
			"event_id": event.ID.String(),
		}).Error(err, "Failed to update event status")
		return err
	}

	return nil
}

func (p *OutboxProcessor) notify(ctx context.Context, event *model.OutboxEvent) {
	if p.notifier == nil {
		return
	}

	var apt model.AppointmentEvent
	if err := json.Unmarshal(event.Payload, &apt); err != nil {
		p.logger.WithFields(map[string]interface{}{
			"event_id": event.ID.String(),
		}).Error(err, "Failed to decode event payload")
		return
	}

	var err error
	switch event.EventType {
	case model.EventAppointmentBooked:
		err = p.notifier.NotifyBooked(ctx, &apt)
	case model.EventAppointmentConfirmed:
		err = p.notifier.NotifyConfirmed(ctx, &apt)
	case model.EventAppointmentCancelled:
		err = p.notifier.NotifyCancelled(ctx, &apt)
	case model.EventAppointmentReminder:
		err = p.notifier.NotifyReminder(ctx, &apt)
	default:
		return
	}
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"event_id":   event.ID.String(),
			"event_type": event.EventType,
		}).Error(err, "Failed to send notification")
	}
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
