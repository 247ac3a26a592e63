package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/correlate/internal/adapters/source"
	"github.com/okian/correlate/pkg/metrics"
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

// execute runs the command tree with args and returns stdout and the error.
func execute(args ...string) (string, error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeStorm(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.yaml")
	if err := os.WriteFile(path, []byte(stormFile), 0o600); err != nil {
		t.Fatalf("write storm: %v", err)
	}
	return path
}

func TestGroupCommand(t *testing.T) {
	Convey("Given an events file", t, func() {
		path := writeStorm(t)

		Convey("When grouping with a threshold of 0.5", func() {
			out, err := execute("group", "--threshold", "0.5", path)

			Convey("Then the disk alerts share a group", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Group 1 (3 events):")
				So(out, ShouldContainSubstring, "Group 2 (1 events):")
				So(out, ShouldNotContainSubstring, "Group 3")
			})
		})

		Convey("When grouping with a threshold above every score", func() {
			out, err := execute("group", "--threshold", "0.76", path)

			Convey("Then every event stands alone", func() {
				So(err, ShouldBeNil)
				So(strings.Count(out, "(1 events):"), ShouldEqual, 4)
			})
		})

		Convey("When the file is missing", func() {
			_, err := execute("group", filepath.Join(t.TempDir(), "missing.yaml"))

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When no file is given", func() {
			_, err := execute("group")

			Convey("Then the arguments are rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestRunCommand(t *testing.T) {
	Convey("Given a config using the file source", t, func() {
		events := writeStorm(t)
		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		cfg := fmt.Sprintf("source: file\nevents_file: %s\nthreshold: 0.5\nreport_format: json\n", events)
		So(os.WriteFile(cfgPath, []byte(cfg), 0o600), ShouldBeNil)

		Convey("When running once", func() {
			out, err := execute("run", "--config", cfgPath)

			Convey("Then the run is reported as JSON", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, `"event_count": 4`)
				So(out, ShouldContainSubstring, `"threshold": 0.5`)
			})
		})

		Convey("When the config sets a metrics namespace", func() {
			cfg += "metrics_namespace: alerts\nmetrics_labels:\n  env: test\n"
			So(os.WriteFile(cfgPath, []byte(cfg), 0o600), ShouldBeNil)
			_, err := execute("run", "--config", cfgPath)

			Convey("Then the run is counted under that namespace", func() {
				So(err, ShouldBeNil)
				families, err := metrics.GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make(map[string]bool)
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["alerts_runs_total"], ShouldBeTrue)
			})
		})

		Convey("When the config file does not exist", func() {
			_, err := execute("run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestBackfillCommand(t *testing.T) {
	Convey("Given the backfill command", t, func() {
		events := writeStorm(t)
		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(cfgPath, []byte("source: file\nworker_count: 1\nevents_file: "+events+"\n"), 0o600), ShouldBeNil)

		Convey("When the range is missing", func() {
			_, err := execute("backfill", "--config", cfgPath)

			Convey("Then the required flags are reported", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the range is malformed", func() {
			_, err := execute("backfill", "--config", cfgPath, "--from", "yesterday", "--to", "2024-05-01T12:00:00Z")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "--from")
			})
		})

		Convey("When backfilling two hours of undated events", func() {
			out, err := execute("backfill", "--config", cfgPath, "--threshold", "0.5",
				"--from", "2024-05-01T10:00:00Z", "--to", "2024-05-01T12:00:00Z", "--step", "1h")

			Convey("Then the events are reported once", func() {
				So(err, ShouldBeNil)
				So(strings.Count(out, "Group 1 (3 events):"), ShouldEqual, 1)
			})
		})
	})
}

func TestGenerateCommand(t *testing.T) {
	Convey("Given the generate command", t, func() {
		Convey("When writing a storm to a file", func() {
			path := filepath.Join(t.TempDir(), "storm.json")
			out, err := execute("generate", "--hosts", "2", "--repeats", "1", "--seed", "9",
				"--incident", "disk_space_low", "--incident", "http_5xx", "-o", path)

			Convey("Then the storm can be loaded back", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "events:    4")
				events, err := source.LoadEvents(path)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 4)
			})
		})

		Convey("When neither output nor URL is set", func() {
			_, err := execute("generate")

			Convey("Then there is nothing to do", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the start time is malformed", func() {
			_, err := execute("generate", "-o", filepath.Join(t.TempDir(), "x.json"), "--start", "soon")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
