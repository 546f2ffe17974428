package adapters

import (
	"context"
	"errors"
	"testing"

	"schoolcompare/internal/amqp"
	"schoolcompare/internal/core"
)

type fakePublisher struct {
	got []*amqp.ComparisonEventMessage
	err error
}

func (f *fakePublisher) PublishComparisonEvent(_ context.Context, msg *amqp.ComparisonEventMessage) error {
	f.got = append(f.got, msg)
	return f.err
}

func TestEventPublisherWrapsEvent(t *testing.T) {
	pub := &fakePublisher{}
	p := NewEventPublisher(pub)

	ev := core.ComparisonEvent{SessionID: "s1", Action: core.ActionAdded, SchoolID: "390467601001"}
	if err := p.RecordComparisonEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(pub.got) != 1 {
		t.Fatalf("published %d messages", len(pub.got))
	}
	msg := pub.got[0]
	if msg.Version != amqp.MessageVersion || msg.SchoolID != ev.SchoolID || msg.Timestamp.IsZero() {
		t.Fatalf("message = %+v", msg)
	}
}

func TestEventPublisherPassesErrors(t *testing.T) {
	boom := errors.New("circuit breaker is open")
	p := NewEventPublisher(&fakePublisher{err: boom})
	err := p.RecordComparisonEvent(context.Background(), core.ComparisonEvent{Action: core.ActionCleared})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}
