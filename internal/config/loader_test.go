package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/correlate/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Threshold, convey.ShouldEqual, 0.6)
				convey.So(cfg.Weights["title"], convey.ShouldEqual, 0.4)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CORRELATE_ADDR", ":8080")
			_ = os.Setenv("CORRELATE_THRESHOLD", "0.5")
			_ = os.Setenv("CORRELATE_QUEUE_SIZE", "64")
			_ = os.Setenv("CORRELATE_WEIGHTS__TITLE", "0.7")
			_ = os.Setenv("CORRELATE_DATADOG__API_KEY", "dd-key")
			_ = os.Setenv("CORRELATE_DATADOG__PAGE_LIMIT", "25")
			_ = os.Setenv("CORRELATE_STRICT", "true")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Threshold, convey.ShouldEqual, 0.5)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.Strict, convey.ShouldBeTrue)
			})

			convey.Convey("Then nested keys are split on double underscores", func() {
				convey.So(cfg.Weights["title"], convey.ShouldEqual, 0.7)
				convey.So(cfg.Weights["text"], convey.ShouldEqual, 0.3)
				convey.So(cfg.Datadog.APIKey, convey.ShouldEqual, "dd-key")
				convey.So(cfg.Datadog.PageLimit, convey.ShouldEqual, 25)
				convey.So(cfg.Datadog.TimeoutSeconds, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
threshold: 0.45
source: file
events_file: /tmp/events.yaml
report_format: json
weights:
  title: 0.5
  text: 0.25
  tags: 0.25
datadog:
  base_url: https://api.datadoghq.eu
metrics_namespace: alerts
metrics_labels:
  env: prod
metrics_latency_buckets: [1, 5, 25]
metrics_refresh_seconds: 30
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CORRELATE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Threshold, convey.ShouldEqual, 0.45)
				convey.So(cfg.Source, convey.ShouldEqual, config.SourceFile)
				convey.So(cfg.EventsFile, convey.ShouldEqual, "/tmp/events.yaml")
				convey.So(cfg.ReportFormat, convey.ShouldEqual, config.ReportJSON)
				convey.So(cfg.Weights["text"], convey.ShouldEqual, 0.25)
				convey.So(cfg.Datadog.BaseURL, convey.ShouldEqual, "https://api.datadoghq.eu")
				convey.So(cfg.Datadog.PageLimit, convey.ShouldEqual, 100)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "alerts")
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"env": "prod"})
				convey.So(cfg.MetricsLatencyBuckets, convey.ShouldResemble, []float64{1, 5, 25})
				convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 30*time.Second)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nqueue_size: 300\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CORRELATE_CONFIG", tmpFile)
			_ = os.Setenv("CORRELATE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
			})
		})

		convey.Convey("When loading an explicit file path", func() {
			clearConfigEnvVars()
			tmpFile := createTempConfigFile("window_seconds: 600\n")
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.LoadFile(ctx, tmpFile)

			convey.Convey("Then the file is used without the env var", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WindowSeconds, convey.ShouldEqual, 600)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CORRELATE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CORRELATE_CONFIG", "/non/existent/correlate.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CORRELATE_ADDR", "")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CORRELATE_QUEUE_SIZE", "lots")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"CORRELATE_CONFIG",
		"CORRELATE_ADDR",
		"CORRELATE_THRESHOLD",
		"CORRELATE_QUEUE_SIZE",
		"CORRELATE_WEIGHTS__TITLE",
		"CORRELATE_DATADOG__API_KEY",
		"CORRELATE_DATADOG__PAGE_LIMIT",
		"CORRELATE_STRICT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "correlate-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
