package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/tallybot/internal/domain/model"
)

func inbound(id int64) model.Inbound {
	return model.Inbound{ID: id, Kind: model.KindPrivate, SenderID: 7, Content: "sp23", Timestamp: time.Unix(id, 0)}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, inbound(1)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != 1 {
		t.Errorf("expected message 1, got %d", got.ID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for id := range int64(2) {
		if err := q.Enqueue(ctx, inbound(id+1)); err != nil {
			t.Fatalf("enqueue %d: %v", id+1, err)
		}
	}
	if err := q.Enqueue(ctx, inbound(3)); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Len() != 2 || q.Cap() != 2 {
		t.Errorf("expected len 2 cap 2, got %d/%d", q.Len(), q.Cap())
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for id := int64(1); id <= 5; id++ {
		if err := q.Enqueue(ctx, inbound(id)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	out := q.Dequeue(ctx)
	for want := int64(1); want <= 5; want++ {
		if got := <-out; got.ID != want {
			t.Fatalf("expected %d, got %d", want, got.ID)
		}
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers, perProducer = 10, 100
	q := NewInMemoryQueue(WithCapacity(50))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var consumed sync.WaitGroup
	consumed.Add(producers * perProducer)
	for range 4 {
		go func() {
			for range q.Dequeue(ctx) {
				consumed.Done()
			}
		}()
	}

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range perProducer {
				for q.Enqueue(ctx, inbound(int64(p*perProducer+j))) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()

	done := make(chan struct{})
	go func() { consumed.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not every message was consumed")
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	_ = q.Enqueue(ctx, inbound(1))
	_ = q.Enqueue(ctx, inbound(2))
	if q.IsClosed() {
		t.Fatal("expected queue to be open")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Enqueue(ctx, inbound(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var drained []int64
	timeout := time.After(time.Second)
	out := q.Dequeue(ctx)
	for {
		select {
		case in, ok := <-out:
			if !ok {
				if len(drained) != 2 {
					t.Errorf("expected backlog of 2, got %v", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("second close: %v", err)
				}
				return
			}
			drained = append(drained, in.ID)
		case <-timeout:
			t.Fatal("dequeue channel was not closed")
		}
	}
}
