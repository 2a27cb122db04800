package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/patrickwarner/admediator/internal/models"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string

	// Backend selects the ad backend implementation: mock, android or ios.
	Backend string
	// Bridge backends exchange commands and callbacks over Redis pub/sub.
	RedisAddr           string
	BridgeChannelPrefix string

	// SDK initialization
	SdkAdUnitID             string
	SdkLogLevel             models.LogLevel
	LocationEnabled         bool
	AllowLegitimateInterest bool

	// Ad units registered at startup, per format
	BannerAdUnits       []string
	InterstitialAdUnits []string
	RewardedAdUnits     []string
	NativeAdUnits       []string

	// Mock backend behaviour
	MockBannerHeight int
	MockRewards      []models.Reward

	// PumpInterval is how often the server drains callbacks when it is not
	// running the blocking consumer. Zero selects the blocking consumer.
	PumpInterval time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8788")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "admediator")

	cfg.Backend = strings.ToLower(getenv("BACKEND", "mock"))
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.BridgeChannelPrefix = getenv("BRIDGE_CHANNEL_PREFIX", "mediation")

	cfg.SdkAdUnitID = getenv("SDK_AD_UNIT_ID", "")
	cfg.SdkLogLevel = envLogLevel("SDK_LOG_LEVEL", models.LogLevelInfo)
	cfg.LocationEnabled = envBool("LOCATION_ENABLED", false)
	cfg.AllowLegitimateInterest = envBool("ALLOW_LEGITIMATE_INTEREST", false)

	cfg.BannerAdUnits = envList("BANNER_AD_UNITS")
	cfg.InterstitialAdUnits = envList("INTERSTITIAL_AD_UNITS")
	cfg.RewardedAdUnits = envList("REWARDED_AD_UNITS")
	cfg.NativeAdUnits = envList("NATIVE_AD_UNITS")

	cfg.MockBannerHeight = envInt("MOCK_BANNER_HEIGHT", 50)
	cfg.MockRewards = envRewards("MOCK_REWARDS", []models.Reward{{Label: "coins", Amount: 10}})

	cfg.PumpInterval = envDuration("PUMP_INTERVAL", 0)

	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// SdkConfiguration builds the InitializeSdk argument from the loaded values.
func (c Config) SdkConfiguration() models.SdkConfiguration {
	return models.SdkConfiguration{
		AdUnitID:                models.AdUnitID(c.SdkAdUnitID),
		LogLevel:                c.SdkLogLevel,
		AllowLegitimateInterest: c.AllowLegitimateInterest,
		LocationEnabled:         c.LocationEnabled,
	}
}

// AdUnits returns the startup ad units keyed by format. Formats without ids
// are omitted.
func (c Config) AdUnits() map[models.AdFormat][]models.AdUnitID {
	out := make(map[models.AdFormat][]models.AdUnitID)
	add := func(f models.AdFormat, ids []string) {
		for _, id := range ids {
			out[f] = append(out[f], models.AdUnitID(id))
		}
	}
	add(models.FormatBanner, c.BannerAdUnits)
	add(models.FormatInterstitial, c.InterstitialAdUnits)
	add(models.FormatRewardedVideo, c.RewardedAdUnits)
	add(models.FormatNative, c.NativeAdUnits)
	return out
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

// envList splits a comma separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envLogLevel parses an SDK log level name. When unset or invalid, def is returned.
func envLogLevel(key string, def models.LogLevel) models.LogLevel {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if l, err := models.ParseLogLevel(v); err == nil {
		return l
	}
	return def
}

// envRewards parses "label:amount" pairs separated by commas. Invalid pairs
// are skipped; when nothing valid remains, def is returned.
func envRewards(key string, def []models.Reward) []models.Reward {
	var out []models.Reward
	for _, pair := range envList(key) {
		label, amount, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(amount))
		if err != nil {
			continue
		}
		r := models.Reward{Label: strings.TrimSpace(label), Amount: n}
		if r.IsValid() {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
