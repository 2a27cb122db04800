package backend

import (
	"context"
	"errors"

	"github.com/patrickwarner/admediator/internal/config"
	"github.com/patrickwarner/admediator/internal/events"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"go.uber.org/zap"
)

var (
	// ErrPluginNotReady is returned when the SDK was never initialized or an
	// ad unit is used before it was requested or loaded.
	ErrPluginNotReady = errors.New("plugin not ready")
	// ErrUnknownBackend is returned by New for names with no registered factory.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrUnsupportedFormat is returned when a backend cannot serve a format.
	ErrUnsupportedFormat = errors.New("unsupported ad format")
)

// Backend abstracts the runtime that actually serves ads. It owns SDK level
// configuration only; per ad unit state lives in the Unit handles it creates.
//
// Load and show operations complete asynchronously: the outcome arrives later
// as a native callback posted to the Sink the backend was built with.
type Backend interface {
	Name() string

	InitializeSdk(ctx context.Context, cfg models.SdkConfiguration) error
	IsSdkInitialized() bool

	// NewUnit returns a fresh handle for one ad unit. Handles for
	// interstitials and rewarded videos cannot be reused after they are
	// destroyed; callers ask for a new one.
	NewUnit(id models.AdUnitID, format models.AdFormat) (Unit, error)

	EnableLocationSupport(enabled bool)
	SetLogLevel(level models.LogLevel)
	LogLevel() models.LogLevel

	CanCollectPersonalInfo() bool
	CurrentConsentStatus() models.ConsentStatus
	// GDPRApplies reports whether GDPR applies; known is false until the
	// SDK has determined it.
	GDPRApplies() (applies bool, known bool)
	GrantConsent()
	RevokeConsent()

	Close() error
}

// Unit is the backend side of one ad unit. Every method may reject the call
// with ErrPluginNotReady.
type Unit interface {
	AdUnitID() models.AdUnitID
	Format() models.AdFormat

	RequestBanner(req models.AdRequest) error
	ShowBanner(show bool) error
	RefreshBanner(keywords, userDataKeywords string) error
	DestroyBanner() error

	RequestInterstitial(req models.AdRequest) error
	IsInterstitialReady() bool
	ShowInterstitial() error
	DestroyInterstitial() error

	RequestRewardedVideo(req models.AdRequest) error
	HasRewardedVideo() bool
	AvailableRewards() []models.Reward
	SelectReward(reward models.Reward) error
	ShowRewardedVideo(customData string) error
}

// Deps groups what a backend factory needs.
type Deps struct {
	Sink    events.Sink
	Logger  *zap.Logger
	Metrics observability.MetricsRegistry
	Config  config.Config
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewNoOpRegistry()
	}
	return d
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPluginNotReady):
		return "not_ready"
	default:
		return "error"
	}
}
