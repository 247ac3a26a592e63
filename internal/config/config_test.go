package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/correlate/internal/config"
	"github.com/okian/correlate/internal/domain/similarity"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Threshold, convey.ShouldEqual, 0.6)
			convey.So(cfg.Weights, convey.ShouldResemble, map[string]float64(similarity.DefaultWeights()))
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Source, convey.ShouldEqual, config.SourceDatadog)
			convey.So(cfg.ReportFormat, convey.ShouldEqual, config.ReportText)
			convey.So(cfg.Window(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.PollInterval(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.Datadog.PageLimit, convey.ShouldEqual, 100)
			convey.So(cfg.Datadog.Timeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When a field is out of range", func() {
			cases := []func(*config.Config){
				func(c *config.Config) { c.Addr = "" },
				func(c *config.Config) { c.Source = "kafka" },
				func(c *config.Config) { c.Source = config.SourceFile },
				func(c *config.Config) { c.ReportFormat = "xml" },
				func(c *config.Config) { c.LogFormat = "logfmt" },
				func(c *config.Config) { c.WindowSeconds = 0 },
				func(c *config.Config) { c.PollIntervalSeconds = -1 },
				func(c *config.Config) { c.WorkerCount = 0 },
				func(c *config.Config) { c.MetricsRefreshSeconds = -5 },
				func(c *config.Config) { c.MetricsLatencyBuckets = []float64{5, 1, 10} },
			}

			convey.Convey("Then validation fails with ErrInvalidConfig", func() {
				for _, mutate := range cases {
					c := config.New()
					mutate(c)
					convey.So(errors.Is(c.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When permissive values are set without strict mode", func() {
			cfg.Threshold = 1.5
			cfg.Weights = map[string]float64{"title": -1, "severity": 2}

			convey.Convey("Then they are accepted", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})

			convey.Convey("Then strict mode rejects them", func() {
				cfg.Strict = true
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)

				cfg.Threshold = 0.5
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, similarity.ErrUnknownLabel), convey.ShouldBeTrue)
			})
		})
	})
}
