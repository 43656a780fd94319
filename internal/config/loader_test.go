package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/drishtilabs/drishti/internal/config"
	"github.com/drishtilabs/drishti/internal/domain/kpi"
)

func TestDefaults(t *testing.T) {
	convey.Convey("New returns the documented defaults", t, func() {
		cfg := config.New()
		convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
		convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
		convey.So(cfg.SQLitePath, convey.ShouldEqual, "drishti.db")
		convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 300)
		convey.So(cfg.CacheTTL(), convey.ShouldEqual, 5*time.Minute)
		convey.So(cfg.CacheMaxEntries, convey.ShouldEqual, 4096)
		convey.So(cfg.MaxCompareIDs, convey.ShouldEqual, 10)
		convey.So(cfg.MaxTopN, convey.ShouldEqual, 50)
		convey.So(cfg.ForecastHorizon, convey.ShouldEqual, 3)
		convey.So(cfg.JWTSecret, convey.ShouldEqual, "")

		convey.Convey("with every canonical metric weighted equally", func() {
			for _, key := range kpi.Keys {
				convey.So(cfg.DefaultWeights[key], convey.ShouldEqual, 1.0)
			}
		})
	})
}

func TestLoadWithoutOverrides(t *testing.T) {
	t.Setenv("DRISHTI_CONFIG", "")

	convey.Convey("Load without file or env overrides keeps the defaults", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
		convey.So(cfg.MaxCompareIDs, convey.ShouldEqual, 10)
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DRISHTI_CONFIG", "")
	t.Setenv("DRISHTI_ADDR", ":7070")
	t.Setenv("DRISHTI_LOG_LEVEL", "debug")
	t.Setenv("DRISHTI_MAX_TOP_N", "25")
	t.Setenv("DRISHTI_SQLITE_PATH", "")

	convey.Convey("Environment variables override the defaults", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
		convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
		convey.So(cfg.MaxTopN, convey.ShouldEqual, 25)
		convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 300)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drishti.yaml")
	body := "addr: \":6060\"\nforecast_horizon: 5\ncache_ttl_seconds: 60\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("DRISHTI_CONFIG", path)

	convey.Convey("A YAML file layers over the defaults", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
		convey.So(cfg.ForecastHorizon, convey.ShouldEqual, 5)
		convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
		convey.So(cfg.MaxTopN, convey.ShouldEqual, 50)
	})
}

func TestLoadFileBeatenByEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drishti.yaml")
	if err := os.WriteFile(path, []byte("addr: \":6060\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("DRISHTI_CONFIG", path)
	t.Setenv("DRISHTI_ADDR", ":7070")

	convey.Convey("Environment variables take precedence over the file", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("DRISHTI_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	convey.Convey("A missing config file fails with ErrLoadConfig", t, func() {
		_, err := config.Load(context.Background())
		convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
	})
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("DRISHTI_CONFIG", "")
	t.Setenv("DRISHTI_MAX_TOP_N", "0")

	convey.Convey("Out-of-range values fail with ErrInvalidConfig", t, func() {
		_, err := config.Load(context.Background())
		convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
	})
}
