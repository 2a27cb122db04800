package config

import (
	"testing"
	"time"

	"github.com/patrickwarner/admediator/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8788", cfg.Port)
	assert.Equal(t, "mock", cfg.Backend)
	assert.Equal(t, models.LogLevelInfo, cfg.SdkLogLevel)
	assert.Equal(t, 50, cfg.MockBannerHeight)
	assert.Equal(t, []models.Reward{{Label: "coins", Amount: 10}}, cfg.MockRewards)
	assert.Equal(t, time.Duration(0), cfg.PumpInterval)
	assert.Empty(t, cfg.AdUnits())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND", "Android")
	t.Setenv("SDK_AD_UNIT_ID", "init-unit")
	t.Setenv("SDK_LOG_LEVEL", "debug")
	t.Setenv("BANNER_AD_UNITS", " b1, b2 ,,")
	t.Setenv("REWARDED_AD_UNITS", "r1")
	t.Setenv("MOCK_REWARDS", "coins:10,gems:x,coins:50,:3")
	t.Setenv("PUMP_INTERVAL", "2")

	cfg := Load()

	assert.Equal(t, "android", cfg.Backend)
	assert.Equal(t, models.LogLevelDebug, cfg.SdkLogLevel)
	assert.Equal(t, []string{"b1", "b2"}, cfg.BannerAdUnits)
	assert.Equal(t, []models.Reward{{Label: "coins", Amount: 10}, {Label: "coins", Amount: 50}}, cfg.MockRewards)
	assert.Equal(t, 2*time.Second, cfg.PumpInterval)

	units := cfg.AdUnits()
	assert.Equal(t, []models.AdUnitID{"b1", "b2"}, units[models.FormatBanner])
	assert.Equal(t, []models.AdUnitID{"r1"}, units[models.FormatRewardedVideo])
	assert.NotContains(t, units, models.FormatInterstitial)

	sdk := cfg.SdkConfiguration()
	assert.Equal(t, models.AdUnitID("init-unit"), sdk.AdUnitID)
}

func TestEnvLogLevelInvalid(t *testing.T) {
	t.Setenv("SDK_LOG_LEVEL", "verbose")
	assert.Equal(t, models.LogLevelNone, envLogLevel("SDK_LOG_LEVEL", models.LogLevelNone))
}
