package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/correlate/internal/adapters/mq/queue"
	"github.com/okian/correlate/internal/adapters/mq/worker"
	"github.com/okian/correlate/internal/domain/model"
	logging "github.com/okian/correlate/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu   sync.Mutex
	ids  []string
	fail map[string]error
	wg   sync.WaitGroup
}

func newRecorder(expected int) *recorder {
	r := &recorder{fail: map[string]error{}}
	r.wg.Add(expected)
	return r
}

func (r *recorder) Process(_ context.Context, job model.Job) error {
	defer r.wg.Done()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, job.ID)
	return r.fail[job.ID]
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func waitFor(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func TestInMemoryWorker(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	convey.Convey("Given a worker reading a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.Convey("When jobs are queued", func() {
			rec := newRecorder(2)
			rec.fail["job-2"] = errors.New("source unavailable")
			w := worker.NewInMemoryWorker(q, rec, worker.WithName("w-test"))
			go w.Run(ctx)

			q.Enqueue(ctx, model.Job{ID: "job-1"})
			q.Enqueue(ctx, model.Job{ID: "job-2"})

			convey.Convey("Then each job is processed in order, failures included", func() {
				convey.So(waitFor(&rec.wg, 2*time.Second), convey.ShouldBeTrue)
				convey.So(rec.seen(), convey.ShouldResemble, []string{"job-1", "job-2"})
			})

			convey.Convey("Then shutdown returns once the loop exits", func() {
				convey.So(waitFor(&rec.wg, 2*time.Second), convey.ShouldBeTrue)
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			w := worker.NewInMemoryWorker(q, worker.ProcessorFunc(func(context.Context, model.Job) error { return nil }))
			stopped := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(stopped)
			}()
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-stopped:
					convey.So(true, convey.ShouldBeTrue)
				case <-time.After(2 * time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	convey.Convey("Given a worker pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		ctx := context.Background()

		convey.Convey("When created with a non-positive count", func() {
			p := worker.NewPool(0, q, worker.ProcessorFunc(func(context.Context, model.Job) error { return nil }))

			convey.Convey("Then it uses at least one worker", func() {
				convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When many jobs are queued", func() {
			const jobs = 40
			rec := newRecorder(jobs)
			p := worker.NewPool(4, q, rec)
			p.Start(ctx)
			for i := 0; i < jobs; i++ {
				q.Enqueue(ctx, model.Job{ID: fmt.Sprintf("job-%d", i)})
			}

			convey.Convey("Then shutdown drains every queued job", func() {
				convey.So(p.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(waitFor(&rec.wg, 2*time.Second), convey.ShouldBeTrue)
				convey.So(len(rec.seen()), convey.ShouldEqual, jobs)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a job blocks past the deadline", func() {
			release := make(chan struct{})
			p := worker.NewPool(1, q, worker.ProcessorFunc(func(context.Context, model.Job) error {
				<-release
				return nil
			}))
			p.Start(ctx)
			q.Enqueue(ctx, model.Job{ID: "slow"})
			time.Sleep(50 * time.Millisecond)

			sctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			err := p.Shutdown(sctx)
			close(release)

			convey.Convey("Then shutdown reports the timeout", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}
