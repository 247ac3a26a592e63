package service_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/correlate/internal/adapters/report"
	"github.com/okian/correlate/internal/adapters/source"
	service "github.com/okian/correlate/internal/app"
	"github.com/okian/correlate/internal/config"
	"github.com/okian/correlate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const stormFile = `
- id: e0
  title: disk space low on host1
  text: host1 /var disk at 90%
  tags: [host:host1, service:disk]
- id: e1
  title: disk space low on host2
  text: host2 /var disk at 92%
  tags: [host:host2, service:disk]
- id: e2
  title: cpu usage high
  text: host1 cpu at 90%
  tags: [host:host1, service:cpu]
- id: e3
  title: disk space warning host1
  text: disk at 85% on host1
  tags: [host:host1, service:disk]
`

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service built from a file-source config", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "events.yaml")
		So(os.WriteFile(path, []byte(stormFile), 0o600), ShouldBeNil)

		cfg := config.New()
		cfg.Source = config.SourceFile
		cfg.EventsFile = path
		cfg.Threshold = 0.5
		cfg.WorkerCount = 2
		So(cfg.Validate(), ShouldBeNil)

		src, err := source.NewFromConfig(cfg)
		So(err, ShouldBeNil)
		var out bytes.Buffer
		rep, err := report.NewFromConfig(cfg, &out)
		So(err, ShouldBeNil)

		svc := newService(service.WithConfig(cfg), service.WithSource(src), service.WithReporter(rep))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When executing the trailing window", func() {
			run, err := svc.Execute(ctx, model.LastWindow(time.Now(), cfg.Window(), cfg.Query))
			So(err, ShouldBeNil)

			Convey("Then the text report lists each group", func() {
				So(sizes(run.Groups), ShouldResemble, []int{3, 1})
				So(out.String(), ShouldContainSubstring, "Group 1 (3 events):")
				So(out.String(), ShouldContainSubstring, " - cpu usage high")
			})

			Convey("Then stats reflect the completed run", func() {
				stats := svc.GetStats()
				So(stats["runsCompleted"], ShouldEqual, int64(1))
				So(stats["lastRun"], ShouldEqual, run.ID)
				So(stats["source"], ShouldEqual, source.FileName)
			})
		})

		Convey("When polling", func() {
			pollCtx, stop := context.WithTimeout(ctx, 150*time.Millisecond)
			defer stop()
			err := svc.Poll(pollCtx, 40*time.Millisecond)

			Convey("Then runs are produced until the context ends", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				runs, err := svc.Runs(0)
				So(err, ShouldBeNil)
				So(len(runs), ShouldBeGreaterThanOrEqualTo, 2)
				So(sizes(runs[len(runs)-1].Groups), ShouldResemble, []int{3, 1})
				So(runs[len(runs)-2].DuplicateCount, ShouldEqual, 4)
			})
		})

		Convey("When polling with no interval", func() {
			Convey("Then it refuses to start", func() {
				So(svc.Poll(ctx, 0), ShouldNotBeNil)
			})
		})

		Convey("When watching the events file", func() {
			watchCtx, stop := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- svc.Watch(watchCtx, path) }()

			deadline := time.Now().Add(5 * time.Second)
			for svc.GetStats()["historyEntries"] == 0 && time.Now().Before(deadline) {
				So(os.WriteFile(path, []byte(stormFile), 0o600), ShouldBeNil)
				for i := 0; i < 10 && svc.GetStats()["historyEntries"] == 0; i++ {
					time.Sleep(50 * time.Millisecond)
				}
			}
			stop()

			Convey("Then each change triggers a run", func() {
				So(<-done, ShouldBeNil)
				So(svc.GetStats()["historyEntries"], ShouldBeGreaterThan, 0)
				So(out.String(), ShouldContainSubstring, "Group 1")
			})
		})
	})

	Convey("Given events spread over three hours", t, func() {
		src := &stubSource{events: alertStorm(), windowed: true}
		rep := &captureReporter{}
		svc := newService(service.WithThreshold(0.5), service.WithSource(src), service.WithReporter(rep), service.WithWorkerCount(3))
		ctx := context.Background()

		Convey("When backfilling hour by hour", func() {
			runs, err := svc.Backfill(ctx, base, base.Add(3*time.Hour), time.Hour)
			So(err, ShouldBeNil)

			Convey("Then runs come back in window order", func() {
				So(len(runs), ShouldEqual, 3)
				for i, r := range runs {
					So(r.Query.From, ShouldEqual, base.Add(time.Duration(i)*time.Hour))
				}
				So(runs[0].Groups[0].IDs(), ShouldResemble, []string{"e0"})
				So(runs[1].Groups[0].IDs(), ShouldResemble, []string{"e1"})
				So(runs[1].Groups[1].IDs(), ShouldResemble, []string{"e2"})
				So(runs[2].Groups[0].IDs(), ShouldResemble, []string{"e3"})
			})

			Convey("Then reports are published in window order", func() {
				published := rep.Runs()
				So(len(published), ShouldEqual, 3)
				for i := range published {
					So(published[i].ID, ShouldEqual, runs[i].ID)
				}
			})
		})

		Convey("When one window fails", func() {
			src.failFrom = base.Add(time.Hour)
			_, err := svc.Backfill(ctx, base, base.Add(3*time.Hour), time.Hour)

			Convey("Then the backfill fails and nothing is reported", func() {
				So(err, ShouldNotBeNil)
				So(strings.Contains(err.Error(), "window unavailable"), ShouldBeTrue)
				So(rep.Runs(), ShouldBeEmpty)
			})
		})

		Convey("When the reporter fails during a backfill", func() {
			rep.err = errors.New("report sink down")
			failed, err := svc.Backfill(ctx, base, base.Add(3*time.Hour), time.Hour)

			Convey("Then every window is recorded as failed", func() {
				So(err, ShouldNotBeNil)
				So(len(failed), ShouldEqual, 3)
				for _, r := range failed {
					So(r.Failed(), ShouldBeTrue)
				}
				So(failed[1].Err, ShouldContainSubstring, service.ErrBackfillAborted.Error())
				So(svc.GetStats()["runsCompleted"], ShouldEqual, int64(0))
			})

			Convey("Then a retried backfill reports every event", func() {
				rep.err = nil
				runs, err := svc.Backfill(ctx, base, base.Add(3*time.Hour), time.Hour)
				So(err, ShouldBeNil)

				reported, dups := 0, 0
				for _, r := range runs {
					reported += r.EventCount
					dups += r.DuplicateCount
				}
				So(reported, ShouldEqual, len(alertStorm()))
				So(dups, ShouldEqual, 0)
				So(len(rep.Runs()), ShouldEqual, 3)
			})
		})

		Convey("When the range is inverted", func() {
			_, err := svc.Backfill(ctx, base, base.Add(-time.Hour), time.Hour)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrInvalidWindow), ShouldBeTrue)
			})
		})
	})
}

func TestBackfill_OverlappingWindows(t *testing.T) {
	Convey("Given a source that returns every event for every window", t, func() {
		ctx := context.Background()

		Convey("When backfilling repeatedly with concurrent fetches", func() {
			for i := 0; i < 20; i++ {
				src := &stubSource{events: alertStorm()}
				svc := newService(service.WithThreshold(0.5), service.WithSource(src), service.WithWorkerCount(3))
				runs, err := svc.Backfill(ctx, base, base.Add(3*time.Hour), time.Hour)
				So(err, ShouldBeNil)

				// Then the earliest window always keeps the shared events
				So(runs[0].EventCount, ShouldEqual, 4)
				So(sizes(runs[0].Groups), ShouldResemble, []int{3, 1})
				for _, r := range runs[1:] {
					So(r.EventCount, ShouldEqual, 0)
					So(r.DuplicateCount, ShouldEqual, 4)
				}
			}
		})
	})
}
