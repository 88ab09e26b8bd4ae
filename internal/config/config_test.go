package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/rice/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StorageDriver, convey.ShouldEqual, config.StorageMemory)
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.SubscriberBuffer, convey.ShouldEqual, 64)
			convey.So(cfg.ThresholdHigh, convey.ShouldEqual, 3.0)
			convey.So(cfg.ThresholdMedium, convey.ShouldEqual, 1.5)
			convey.So(cfg.ThresholdMinHistory, convey.ShouldEqual, 3)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given an otherwise valid config", t, func() {
		cfg := config.New()

		convey.Convey("When the storage driver is unknown", func() {
			cfg.StorageDriver = "postgres"
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When sqlite is selected without a path", func() {
			cfg.StorageDriver = config.StorageSQLite
			cfg.SQLitePath = " "
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the medium threshold exceeds the high threshold", func() {
			cfg.ThresholdMedium = 5
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
