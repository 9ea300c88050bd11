package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/codevoice/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaxQuestions, convey.ShouldEqual, 5)
			convey.So(cfg.MaxFollowUps, convey.ShouldEqual, 2)
			convey.So(cfg.DefaultDifficulty, convey.ShouldEqual, "MEDIUM")
			convey.So(cfg.LLMModel, convey.ShouldEqual, "gpt-oss-120b")
			convey.So(cfg.LLMMaxTokens, convey.ShouldEqual, 800)
			convey.So(cfg.EvaluationTemperature, convey.ShouldEqual, 0.3)
			convey.So(cfg.ResponseTemperature, convey.ShouldEqual, 0.7)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.LLMTimeout().Seconds(), convey.ShouldEqual, 30)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with a credential", t, func() {
		cfg := config.New()
		cfg.LLMAPIKey = "k"

		convey.Convey("When nothing else changes", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When max_questions is zero", func() {
			cfg.MaxQuestions = 0
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "max_questions")
		})

		convey.Convey("When the difficulty is unknown", func() {
			cfg.DefaultDifficulty = "EXTREME"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When mysql is selected without a DSN", func() {
			cfg.StoreDriver = config.DriverMySQL
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "db_dsn")
		})

		convey.Convey("When the driver is unknown", func() {
			cfg.StoreDriver = "postgres"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given a config without a credential", t, func() {
		cfg := config.New()

		convey.Convey("Then validation fails unless the model is disabled", func() {
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			cfg.LLMDisabled = true
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
