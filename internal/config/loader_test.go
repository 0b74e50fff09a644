package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/tallybot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	config.EnvConfigPath,
	"TALLY_ADDR",
	"TALLY_QUEUE_SIZE",
	"TALLY_WORKER_COUNT",
	"TALLY_HISTORY_BACKEND",
	"TALLY_EXCLUDED_SENDERS",
	"TALLY_LOG_LEVEL",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tally.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const streamsYAML = `
addr: ":9090"
worker_count: 4
report_noun: "Response"
streams:
  - stream_name: "CS 35L Spring 2023"
    stream_specifier: "sp23"
    invalid_emoji: "cross_mark"
    labeling_scheme: "standard"
    labeler_config:
      start_date: "2023-04-03"
      due_time: 10
      max_week: 10
      due_days: [mon, wed]
      gaps: [6]
`

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Streams, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading from a YAML file", func() {
			_ = os.Setenv(config.EnvConfigPath, writeConfigFile(t, streamsYAML))
			cfg, err := config.Load(ctx)

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.ReportNoun, convey.ShouldEqual, "Response")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			})

			convey.Convey("Then streams carry their opaque scheme parameters", func() {
				convey.So(cfg.Streams, convey.ShouldHaveLength, 1)
				s := cfg.Streams[0]
				convey.So(s.StreamSpecifier, convey.ShouldEqual, "sp23")
				convey.So(s.LabelingScheme, convey.ShouldEqual, "standard")
				convey.So(s.LabelerConfig["start_date"], convey.ShouldEqual, "2023-04-03")
				convey.So(s.LabelerConfig["max_week"], convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When env and file are both set", func() {
			_ = os.Setenv(config.EnvConfigPath, writeConfigFile(t, streamsYAML))
			_ = os.Setenv("TALLY_ADDR", ":8080")
			_ = os.Setenv("TALLY_EXCLUDED_SENDERS", "Notification Bot, Welcome Bot")
			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.ExcludedSenders, convey.ShouldResemble, []string{"Notification Bot", "Welcome Bot"})
			})
		})

		convey.Convey("When the file is not valid YAML", func() {
			_ = os.Setenv(config.EnvConfigPath, writeConfigFile(t, "invalid: yaml: content: ["))
			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv(config.EnvConfigPath, "/non/existent/tally.yaml")
			cfg, err := config.Load(ctx)

			convey.So(cfg, convey.ShouldBeNil)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a numeric env var is not a number", func() {
			_ = os.Setenv("TALLY_QUEUE_SIZE", "invalid")
			cfg, err := config.Load(ctx)

			convey.So(cfg, convey.ShouldBeNil)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("TALLY_HISTORY_BACKEND", "disk")
			cfg, err := config.Load(ctx)

			convey.Convey("Then an invalid config error names the field", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "HistoryBackend")
			})
		})
	})
}
