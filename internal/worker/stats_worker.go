// Package worker folds comparison events from the broker into popularity counters.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"schoolcompare/internal/amqp"
	"schoolcompare/internal/log"
	"schoolcompare/internal/provider"
)

// Consumer delivers comparison events until ctx ends or the connection drops.
type Consumer interface {
	ConsumeComparisonEvents(ctx context.Context, handler func(context.Context, *amqp.ComparisonEventMessage) error) error
}

// StatsWorker records each comparison event into the popularity store.
type StatsWorker struct {
	recorder   provider.EventRecorder
	logger     *log.Logger
	retryDelay time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

func NewStatsWorker(recorder provider.EventRecorder, logger *log.Logger) *StatsWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &StatsWorker{
		recorder:   recorder,
		logger:     logger.WithComponent(log.ComponentWorker),
		retryDelay: 5 * time.Second,
	}
}

// HandleComparisonEvent processes a single event from AMQP. A returned error
// makes the consumer requeue the message.
func (w *StatsWorker) HandleComparisonEvent(ctx context.Context, msg *amqp.ComparisonEventMessage) error {
	if err := w.recorder.RecordComparisonEvent(ctx, msg.ComparisonEvent); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("record %s event: %w", msg.Action, err)
	}
	w.processed.Add(1)
	w.logger.DebugContext(ctx, "Recorded comparison event",
		log.FieldAction, msg.Action,
		log.FieldSchoolID, msg.SchoolID,
		log.FieldSessionID, msg.SessionID)
	return nil
}

// Run consumes until ctx is cancelled, resubscribing after a dropped
// connection.
func (w *StatsWorker) Run(ctx context.Context, c Consumer) error {
	for {
		err := c.ConsumeComparisonEvents(ctx, w.HandleComparisonEvent)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil
		}
		w.logger.ErrorContext(ctx, "Message consumption stopped, retrying",
			log.FieldError, err, "retry_in", w.retryDelay.String())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}

// Stats returns how many events were recorded and how many failed.
func (w *StatsWorker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}
