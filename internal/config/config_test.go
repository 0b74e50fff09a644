package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/okian/tallybot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.HistoryBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.MessageBackend, convey.ShouldEqual, "snapshot")
			convey.So(cfg.ReviewerRule, convey.ShouldEqual, "user.role <= 300")
			convey.So(cfg.ExcludedSenders, convey.ShouldResemble, []string{"Notification Bot"})
			convey.So(cfg.ResponseMaxLines, convey.ShouldEqual, 150)
			convey.So(cfg.ReportNoun, convey.ShouldEqual, "RQ")
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with streams", t, func() {
		cfg := config.New(context.Background())
		cfg.Streams = []config.Stream{
			{StreamName: "CS 35L", StreamSpecifier: "sp23", InvalidEmoji: "x", LabelingScheme: "standard"},
			{StreamName: "CS 97", StreamSpecifier: "fa23", InvalidEmoji: "x", LabelingScheme: "table"},
		}

		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("A duplicate stream name is rejected", func() {
			cfg.Streams[1].StreamName = "CS 35L"
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "duplicate stream")
		})

		convey.Convey("A duplicate specifier is rejected", func() {
			cfg.Streams[1].StreamSpecifier = "sp23"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A stream without a scheme is rejected", func() {
			cfg.Streams[0].LabelingScheme = ""
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "Streams[0].LabelingScheme")
		})

		convey.Convey("Redis history requires an address", func() {
			cfg.HistoryBackend = "redis"
			cfg.RedisAddr = ""
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("Postgres messages require a DSN", func() {
			cfg.MessageBackend = "postgres"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			cfg.PostgresDSN = "postgres://localhost/tally"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("StreamByName finds configured streams", func() {
			s, ok := cfg.StreamByName("CS 97")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(s.StreamSpecifier, convey.ShouldEqual, "fa23")
			_, ok = cfg.StreamByName("CS 1")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}
