package adapters

import (
	"context"

	"schoolcompare/internal/amqp"
	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"
)

// Publisher is the part of the AMQP client the web process needs.
type Publisher interface {
	PublishComparisonEvent(ctx context.Context, msg *amqp.ComparisonEventMessage) error
}

// EventPublisher adapts an AMQP publisher to provider.EventRecorder so the
// comparison service can emit to a broker instead of recording in-process.
type EventPublisher struct {
	pub Publisher
}

func NewEventPublisher(pub Publisher) *EventPublisher {
	return &EventPublisher{pub: pub}
}

// RecordComparisonEvent implements provider.EventRecorder
func (p *EventPublisher) RecordComparisonEvent(ctx context.Context, ev core.ComparisonEvent) error {
	return p.pub.PublishComparisonEvent(ctx, amqp.NewComparisonEventMessage(ev))
}

var _ provider.EventRecorder = (*EventPublisher)(nil)
