package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/tempo/internal/adapters/mq/queue"
	"github.com/okian/tempo/internal/adapters/mq/worker"
	. "github.com/smartystreets/goconvey/convey"
)

// recorder counts processed games and fails the ids it is told to.
type recorder struct {
	mu        sync.Mutex
	processed []string
	failing   map[string]bool
}

func (r *recorder) Process(_ context.Context, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, gameID)
	if r.failing[gameID] {
		return errors.New("corrupt game")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processed)
}

func TestPoolDrainsQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a closed queue of jobs and a pool of workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		for _, id := range []string{"g1", "g2", "g3", "g4", "g5"} {
			So(q.Enqueue(ctx, queue.Job{GameID: id}), ShouldBeTrue)
		}
		So(q.Close(), ShouldBeNil)

		rec := &recorder{}
		pool := worker.NewPool(3, q, rec)
		pool.Start(ctx)

		Convey("Every job is processed exactly once", func() {
			So(pool.Wait(ctx), ShouldBeNil)
			So(rec.count(), ShouldEqual, 5)

			seen := map[string]bool{}
			for _, id := range rec.processed {
				So(seen[id], ShouldBeFalse)
				seen[id] = true
			}
		})
	})
}

func TestPoolIsolatesFailures(t *testing.T) {
	ctx := context.Background()

	Convey("Given one failing game among healthy ones", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		for _, id := range []string{"g1", "bad", "g3"} {
			q.Enqueue(ctx, queue.Job{GameID: id})
		}
		q.Close()

		rec := &recorder{failing: map[string]bool{"bad": true}}
		pool := worker.NewPool(1, q, rec)
		pool.Start(ctx)

		Convey("The failure does not stop the batch", func() {
			So(pool.Wait(ctx), ShouldBeNil)
			So(rec.count(), ShouldEqual, 3)
		})
	})
}

func TestPoolHonorsContext(t *testing.T) {
	Convey("Given a queue that never closes", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		rec := &recorder{}
		pool := worker.NewPool(2, q, rec)

		ctx, cancel := context.WithCancel(context.Background())
		pool.Start(ctx)
		cancel()

		Convey("Canceling the context stops the workers", func() {
			waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
			defer waitCancel()
			So(pool.Wait(waitCtx), ShouldBeNil)
		})
	})
}
