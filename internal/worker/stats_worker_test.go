package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"schoolcompare/internal/amqp"
	"schoolcompare/internal/core"
	"schoolcompare/internal/provider/memory"
)

type scriptedConsumer struct {
	msgs  []*amqp.ComparisonEventMessage
	calls int
	fail  int
}

// ConsumeComparisonEvents fails the first fail calls, then delivers msgs and
// blocks until ctx ends.
func (s *scriptedConsumer) ConsumeComparisonEvents(ctx context.Context, h func(context.Context, *amqp.ComparisonEventMessage) error) error {
	s.calls++
	if s.calls <= s.fail {
		return errors.New("connection closed")
	}
	for _, m := range s.msgs {
		_ = h(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestStatsWorkerRecordsEvents(t *testing.T) {
	store, err := memory.NewSample()
	if err != nil {
		t.Fatal(err)
	}
	w := NewStatsWorker(store, nil)
	w.retryDelay = time.Millisecond

	c := &scriptedConsumer{
		fail: 2,
		msgs: []*amqp.ComparisonEventMessage{
			amqp.NewComparisonEventMessage(core.ComparisonEvent{Action: core.ActionAdded, SchoolID: "390470201001"}),
			amqp.NewComparisonEventMessage(core.ComparisonEvent{Action: core.ActionAdded, SchoolID: "390470201001"}),
			amqp.NewComparisonEventMessage(core.ComparisonEvent{Action: "poked"}),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx, c); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if c.calls != 3 {
		t.Fatalf("consumer called %d times, want 3", c.calls)
	}
	processed, failed := w.Stats()
	if processed != 2 || failed != 1 {
		t.Fatalf("processed=%d failed=%d", processed, failed)
	}
	top, _ := store.TopCompared(context.Background(), 1)
	if len(top) != 1 || top[0].Added != 2 {
		t.Fatalf("top = %+v", top)
	}
}
