package conversation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSequencerSerializesSameKey(t *testing.T) {
	seq := NewSequencer()
	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := seq.Acquire(context.Background(), "t1")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := active.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			release()
		}()
	}
	wg.Wait()
	if maxSeen.Load() != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxSeen.Load())
	}
	if seq.Len() != 0 {
		t.Fatalf("idle keys retained: %d", seq.Len())
	}
}

func TestSequencerDistinctKeysRunInParallel(t *testing.T) {
	seq := NewSequencer()
	releaseA, err := seq.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := seq.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("Acquire b blocked by a: %v", err)
	}
	releaseB()
}

func TestSequencerAcquireHonorsContext(t *testing.T) {
	seq := NewSequencer()
	release, err := seq.Acquire(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := seq.Acquire(ctx, "t1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	release()
	release()
	if seq.Len() != 0 {
		t.Fatalf("keys retained after release: %d", seq.Len())
	}
}

func TestEventBrokerFanOut(t *testing.T) {
	b := NewEventBroker()
	ch1, cancel1 := b.Subscribe("t1", 1)
	ch2, cancel2 := b.Subscribe("t1", 1)
	other, cancelOther := b.Subscribe("t2", 1)
	defer cancel2()
	defer cancelOther()

	b.Publish(Event{Type: EventTurnCommitted, ThreadID: "t1", MessageID: 7})
	for _, ch := range []<-chan Event{ch1, ch2} {
		ev := <-ch
		if ev.MessageID != 7 || ev.At.IsZero() {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
	select {
	case ev := <-other:
		t.Fatalf("event leaked to other thread: %+v", ev)
	default:
	}

	cancel1()
	cancel1()
	if _, ok := <-ch1; ok {
		t.Fatalf("channel not closed after cancel")
	}
	// full buffers drop instead of blocking
	b.Publish(Event{ThreadID: "t1"})
	b.Publish(Event{ThreadID: "t1"})
}
