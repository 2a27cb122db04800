package backend

import (
	"context"
	"strconv"
	"sync"

	"github.com/patrickwarner/admediator/internal/callbacks"
	"github.com/patrickwarner/admediator/internal/events"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"go.uber.org/zap"
)

const mockName = "mock"

// Call is one primitive operation received by the MockBackend.
type Call struct {
	Op       string
	AdUnitID models.AdUnitID
}

// MockBackend simulates an ad SDK. Every operation completes by posting its
// callbacks to the sink, so they are observed on the consumer's next drain.
// Behaviour is deterministic and scriptable.
type MockBackend struct {
	mu      sync.Mutex
	sink    events.Sink
	logger  *zap.Logger
	metrics observability.MetricsRegistry

	initialized bool
	logLevel    models.LogLevel
	location    bool
	consent     models.ConsentStatus

	bannerHeight   int
	defaultRewards []models.Reward
	rewards        map[models.AdUnitID][]models.Reward
	failNext       map[models.AdUnitID]string
	calls          []Call
}

var _ Backend = (*MockBackend)(nil)

// NewMockBackend creates a mock backend using deps.Config for the banner
// height and default reward list.
func NewMockBackend(deps Deps) *MockBackend {
	deps = deps.withDefaults()
	height := deps.Config.MockBannerHeight
	if height <= 0 {
		height = 50
	}
	return &MockBackend{
		sink:           deps.Sink,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
		logLevel:       models.LogLevelInfo,
		bannerHeight:   height,
		defaultRewards: append([]models.Reward(nil), deps.Config.MockRewards...),
		rewards:        make(map[models.AdUnitID][]models.Reward),
		failNext:       make(map[models.AdUnitID]string),
	}
}

func (b *MockBackend) Name() string { return mockName }

// SetRewards overrides the rewards offered by one rewarded ad unit.
func (b *MockBackend) SetRewards(id models.AdUnitID, rewards []models.Reward) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rewards[id] = append([]models.Reward(nil), rewards...)
}

// SetBannerHeight changes the height reported by banner loads.
func (b *MockBackend) SetBannerHeight(height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bannerHeight = height
}

// FailNextRequest makes the next request for id fail with reason.
func (b *MockBackend) FailNextRequest(id models.AdUnitID, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[id] = reason
}

// Calls returns a copy of every primitive operation received so far.
func (b *MockBackend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CountCalls returns how many times op was received for id.
func (b *MockBackend) CountCalls(op string, id models.AdUnitID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Op == op && c.AdUnitID == id {
			n++
		}
	}
	return n
}

func (b *MockBackend) record(op string, id models.AdUnitID, err error) error {
	b.mu.Lock()
	b.calls = append(b.calls, Call{Op: op, AdUnitID: id})
	b.mu.Unlock()
	b.metrics.IncrementBackendCalls(mockName, op, result(err))
	if err != nil {
		b.logger.Error("mock backend rejected call",
			zap.String("op", op),
			zap.String("ad_unit_id", string(id)),
			zap.Error(err))
	}
	return err
}

func (b *MockBackend) post(name string, args ...string) {
	if b.sink == nil {
		return
	}
	b.sink.Post(callbacks.NewMessage(name, args...))
}

func (b *MockBackend) InitializeSdk(_ context.Context, cfg models.SdkConfiguration) error {
	b.mu.Lock()
	b.initialized = true
	b.logLevel = cfg.LogLevel
	b.location = cfg.LocationEnabled
	b.mu.Unlock()

	b.record("initialize", cfg.AdUnitID, nil)
	b.post(callbacks.OnSdkInitialized, string(cfg.AdUnitID))
	return nil
}

func (b *MockBackend) IsSdkInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

func (b *MockBackend) NewUnit(id models.AdUnitID, format models.AdFormat) (Unit, error) {
	return &mockUnit{b: b, id: id, format: format}, nil
}

func (b *MockBackend) EnableLocationSupport(enabled bool) {
	b.mu.Lock()
	b.location = enabled
	b.mu.Unlock()
	b.record("enable_location", "", nil)
}

// LocationEnabled reports the last location flag received.
func (b *MockBackend) LocationEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.location
}

func (b *MockBackend) SetLogLevel(level models.LogLevel) {
	b.mu.Lock()
	b.logLevel = level
	b.mu.Unlock()
	b.record("set_log_level", "", nil)
}

func (b *MockBackend) LogLevel() models.LogLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logLevel
}

func (b *MockBackend) CanCollectPersonalInfo() bool {
	return b.CurrentConsentStatus() == models.ConsentConsented
}

func (b *MockBackend) CurrentConsentStatus() models.ConsentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consent
}

// GDPRApplies is always known to be false in the simulation.
func (b *MockBackend) GDPRApplies() (bool, bool) {
	return false, true
}

func (b *MockBackend) GrantConsent() {
	b.setConsent("grant_consent", models.ConsentConsented)
}

func (b *MockBackend) RevokeConsent() {
	b.setConsent("revoke_consent", models.ConsentDenied)
}

func (b *MockBackend) setConsent(op string, status models.ConsentStatus) {
	b.mu.Lock()
	old := b.consent
	b.consent = status
	b.mu.Unlock()

	b.record(op, "", nil)
	if old != status {
		b.post(callbacks.OnConsentStatusChanged, old.String(), status.String(),
			strconv.FormatBool(status == models.ConsentConsented))
	}
}

func (b *MockBackend) Close() error { return nil }

func (b *MockBackend) takeFailure(id models.AdUnitID) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	reason, ok := b.failNext[id]
	if ok {
		delete(b.failNext, id)
	}
	return reason, ok
}

func (b *MockBackend) rewardsFor(id models.AdUnitID) []models.Reward {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.rewards[id]; ok {
		return append([]models.Reward(nil), r...)
	}
	return append([]models.Reward(nil), b.defaultRewards...)
}

// mockUnit is the per ad unit handle of the MockBackend.
type mockUnit struct {
	b      *MockBackend
	id     models.AdUnitID
	format models.AdFormat

	mu        sync.Mutex
	requested bool
	loaded    bool
	destroyed bool
	loadID    string
	selected  models.Reward
}

func (u *mockUnit) AdUnitID() models.AdUnitID { return u.id }
func (u *mockUnit) Format() models.AdFormat    { return u.format }

// request validates and starts a load, posting loaded or failed.
func (u *mockUnit) request(op string, req models.AdRequest, loaded func(loadID string) []string, failedName string) error {
	if !u.b.IsSdkInitialized() {
		return u.b.record(op, u.id, ErrPluginNotReady)
	}
	u.mu.Lock()
	u.requested = true
	u.loaded = false
	u.destroyed = false
	u.loadID = req.LoadID
	u.selected = models.Reward{}
	u.mu.Unlock()

	u.b.record(op, u.id, nil)
	if reason, fail := u.b.takeFailure(u.id); fail {
		u.b.post(failedName, string(u.id), reason, req.LoadID)
		return nil
	}

	u.mu.Lock()
	u.loaded = true
	u.mu.Unlock()
	args := loaded(req.LoadID)
	u.b.post(args[0], args[1:]...)
	return nil
}

func (u *mockUnit) isRequested() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.requested && !u.destroyed
}

func (u *mockUnit) isLoaded() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.loaded && !u.destroyed
}

func (u *mockUnit) RequestBanner(req models.AdRequest) error {
	return u.request("request_banner", req, func(loadID string) []string {
		u.b.mu.Lock()
		height := u.b.bannerHeight
		u.b.mu.Unlock()
		return []string{callbacks.OnAdLoaded, string(u.id), strconv.Itoa(height), loadID}
	}, callbacks.OnAdFailed)
}

func (u *mockUnit) ShowBanner(show bool) error {
	if !u.isRequested() {
		return u.b.record("show_banner", u.id, ErrPluginNotReady)
	}
	return u.b.record("show_banner", u.id, nil)
}

func (u *mockUnit) RefreshBanner(keywords, userDataKeywords string) error {
	if !u.isRequested() {
		return u.b.record("refresh_banner", u.id, ErrPluginNotReady)
	}
	u.b.record("refresh_banner", u.id, nil)
	u.mu.Lock()
	loadID := u.loadID
	u.mu.Unlock()
	u.b.mu.Lock()
	height := u.b.bannerHeight
	u.b.mu.Unlock()
	u.b.post(callbacks.OnAdLoaded, string(u.id), strconv.Itoa(height), loadID)
	return nil
}

func (u *mockUnit) DestroyBanner() error {
	return u.destroy("destroy_banner")
}

func (u *mockUnit) destroy(op string) error {
	u.mu.Lock()
	u.requested = false
	u.loaded = false
	u.destroyed = true
	u.mu.Unlock()
	return u.b.record(op, u.id, nil)
}

func (u *mockUnit) RequestInterstitial(req models.AdRequest) error {
	return u.request("request_interstitial", req, func(loadID string) []string {
		return []string{callbacks.OnInterstitialLoaded, string(u.id), loadID}
	}, callbacks.OnInterstitialFailed)
}

func (u *mockUnit) IsInterstitialReady() bool {
	return u.isLoaded()
}

func (u *mockUnit) ShowInterstitial() error {
	if !u.isLoaded() {
		return u.b.record("show_interstitial", u.id, ErrPluginNotReady)
	}
	u.mu.Lock()
	u.loaded = false
	u.mu.Unlock()
	u.b.record("show_interstitial", u.id, nil)
	u.b.post(callbacks.OnInterstitialShown, string(u.id))
	u.b.post(callbacks.OnInterstitialDismissed, string(u.id))
	return nil
}

func (u *mockUnit) DestroyInterstitial() error {
	return u.destroy("destroy_interstitial")
}

func (u *mockUnit) RequestRewardedVideo(req models.AdRequest) error {
	return u.request("request_rewarded_video", req, func(loadID string) []string {
		return []string{callbacks.OnRewardedVideoLoaded, string(u.id), loadID}
	}, callbacks.OnRewardedVideoFailed)
}

func (u *mockUnit) HasRewardedVideo() bool {
	return u.isLoaded()
}

func (u *mockUnit) AvailableRewards() []models.Reward {
	if !u.isLoaded() {
		return nil
	}
	return u.b.rewardsFor(u.id)
}

func (u *mockUnit) SelectReward(reward models.Reward) error {
	if !u.isLoaded() {
		return u.b.record("select_reward", u.id, ErrPluginNotReady)
	}
	u.mu.Lock()
	u.selected = reward
	u.mu.Unlock()
	return u.b.record("select_reward", u.id, nil)
}

// ShowRewardedVideo plays the video to completion: shown, the selected (or
// first available) reward, then closed.
func (u *mockUnit) ShowRewardedVideo(customData string) error {
	if !u.isLoaded() {
		return u.b.record("show_rewarded_video", u.id, ErrPluginNotReady)
	}
	u.mu.Lock()
	u.loaded = false
	reward := u.selected
	u.mu.Unlock()
	if !reward.IsValid() {
		if available := u.b.rewardsFor(u.id); len(available) > 0 {
			reward = available[0]
		}
	}

	u.b.record("show_rewarded_video", u.id, nil)
	u.b.post(callbacks.OnRewardedVideoShown, string(u.id))
	if reward.IsValid() {
		u.b.post(callbacks.OnRewardedVideoReceivedReward, string(u.id), reward.Label, strconv.Itoa(reward.Amount))
	}
	u.b.post(callbacks.OnRewardedVideoClosed, string(u.id))
	return nil
}
