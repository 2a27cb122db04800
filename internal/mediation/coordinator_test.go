package mediation

import (
	"context"
	"testing"

	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/callbacks"
	"github.com/patrickwarner/admediator/internal/events"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bannerID       models.AdUnitID = "banner-1"
	interstitialID models.AdUnitID = "interstitial-1"
	rewardedID     models.AdUnitID = "rewarded-1"
)

type harness struct {
	c       *Coordinator
	mock    *backend.MockBackend
	queue   *events.Queue
	metrics *observability.MockMetricsRegistry
	events  []models.Event
}

// newHarness returns an initialized coordinator with one unit per format.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := newUninitializedHarness(t)
	require.NoError(t, h.c.InitializeSdk(context.Background(), models.SdkConfiguration{AdUnitID: bannerID}))
	h.c.LoadPlugins(models.FormatBanner, bannerID)
	h.c.LoadPlugins(models.FormatInterstitial, interstitialID)
	h.c.LoadPlugins(models.FormatRewardedVideo, rewardedID)
	h.c.Pump()
	require.True(t, h.c.IsSdkInitialized())
	h.events = nil
	return h
}

func newUninitializedHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		queue:   events.NewQueue(),
		metrics: observability.NewMockMetricsRegistry(),
	}
	h.mock = backend.NewMockBackend(backend.Deps{Sink: h.queue, Metrics: h.metrics})
	h.c = New(Deps{Backend: h.mock, Queue: h.queue, Metrics: h.metrics})
	h.c.SubscribeAll(func(ev models.Event) { h.events = append(h.events, ev) })
	return h
}

func (h *harness) state(t *testing.T, id models.AdUnitID) models.State {
	t.Helper()
	snap, ok := h.c.Unit(id)
	require.True(t, ok, "unit %s not registered", id)
	return snap.State
}

func (h *harness) kinds() []models.EventKind {
	out := make([]models.EventKind, 0, len(h.events))
	for _, ev := range h.events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestBannerShowAndHide(t *testing.T) {
	h := newHarness(t)

	h.c.RequestBanner(bannerID, models.NewAdRequest())
	assert.Equal(t, models.StateRequested, h.state(t, bannerID))

	h.c.Pump()
	snap, _ := h.c.Unit(bannerID)
	assert.Equal(t, models.StateLoaded, snap.State)
	assert.Equal(t, 50, snap.Height)
	require.Len(t, h.events, 1)
	assert.Equal(t, models.EventLoaded, h.events[0].Kind)
	assert.Equal(t, 50, h.events[0].Height)

	h.c.ShowBanner(bannerID, true)
	snap, _ = h.c.Unit(bannerID)
	assert.Equal(t, models.StateShown, snap.State)
	assert.True(t, snap.Visible)

	h.c.ShowBanner(bannerID, false)
	snap, _ = h.c.Unit(bannerID)
	assert.Equal(t, models.StateLoaded, snap.State)
	assert.False(t, snap.Visible)
}

func TestRewardSelectionAndGrant(t *testing.T) {
	h := newHarness(t)
	offered := []models.Reward{{Label: "coins", Amount: 10}, {Label: "coins", Amount: 50}}
	h.mock.SetRewards(rewardedID, offered)

	h.c.RequestRewardedVideo(rewardedID, models.NewAdRequest())
	h.c.Pump()
	require.Equal(t, models.StateLoaded, h.state(t, rewardedID))
	assert.True(t, h.c.HasRewardedVideo(rewardedID))
	assert.Equal(t, offered, h.c.GetAvailableRewards(rewardedID))

	h.c.SelectReward(rewardedID, offered[1])
	h.c.ShowRewardedVideo(rewardedID, "")
	assert.Equal(t, models.StateShown, h.state(t, rewardedID))

	h.events = nil
	h.c.Pump()
	assert.Equal(t, []models.EventKind{models.EventShown, models.EventRewardReceived, models.EventDismissed}, h.kinds())
	assert.Equal(t, models.Reward{Label: "coins", Amount: 50}, h.events[1].Reward)
	assert.Equal(t, models.StateDestroyed, h.state(t, rewardedID))
}

func TestFailedLoadCanBeRetried(t *testing.T) {
	h := newHarness(t)
	h.mock.FailNextRequest(bannerID, "timeout")

	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()
	snap, _ := h.c.Unit(bannerID)
	assert.Equal(t, models.StateFailed, snap.State)
	assert.Equal(t, "timeout", snap.LastError)
	require.Len(t, h.events, 1)
	assert.Equal(t, models.EventFailed, h.events[0].Kind)
	assert.Equal(t, "timeout", h.events[0].Error)

	h.events = nil
	h.c.ShowBanner(bannerID, true)
	h.c.Pump()
	assert.Empty(t, h.events)
	assert.Equal(t, models.StateFailed, h.state(t, bannerID))
	assert.Equal(t, 1, h.metrics.Count("rejected_ops", "show_banner", "not_ready"))
	assert.Equal(t, 0, h.mock.CountCalls("show_banner", bannerID))

	h.c.RequestBanner(bannerID, models.NewAdRequest())
	assert.Equal(t, models.StateRequested, h.state(t, bannerID))
	h.c.Pump()
	assert.Equal(t, models.StateLoaded, h.state(t, bannerID))
}

func TestInterstitialLifecycle(t *testing.T) {
	h := newHarness(t)

	assert.False(t, h.c.IsInterstitialReady(interstitialID))
	h.c.RequestInterstitial(interstitialID, models.NewAdRequest())
	h.c.Pump()
	assert.True(t, h.c.IsInterstitialReady(interstitialID))

	h.c.ShowInterstitial(interstitialID)
	assert.Equal(t, models.StateShown, h.state(t, interstitialID))
	h.c.Pump()
	assert.Equal(t, models.StateDestroyed, h.state(t, interstitialID))
	assert.Equal(t, []models.EventKind{models.EventLoaded, models.EventShown, models.EventDismissed}, h.kinds())

	// one-shot: needs a new request before it can show again
	h.c.ShowInterstitial(interstitialID)
	assert.Equal(t, 1, h.mock.CountCalls("show_interstitial", interstitialID))

	h.c.RequestInterstitial(interstitialID, models.NewAdRequest())
	h.c.Pump()
	assert.Equal(t, models.StateLoaded, h.state(t, interstitialID))
}

func TestRequestWhileLoadedIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()
	before, _ := h.c.Unit(bannerID)

	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()

	after, _ := h.c.Unit(bannerID)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, h.mock.CountCalls("request_banner", bannerID))
	assert.Equal(t, 1, h.metrics.Count("rejected_ops", "request_banner", "already_requested"))
}

func TestUnknownAdUnitIsNoOp(t *testing.T) {
	h := newHarness(t)
	const ghost models.AdUnitID = "missing"

	h.c.RequestBanner(ghost, models.NewAdRequest())
	h.c.ShowBanner(ghost, true)
	h.c.Destroy(ghost)
	assert.False(t, h.c.IsInterstitialReady(ghost))
	assert.Empty(t, h.c.GetAvailableRewards(ghost))
	h.c.Pump()

	_, ok := h.c.Unit(ghost)
	assert.False(t, ok)
	assert.Empty(t, h.events)
	assert.Equal(t, 5, h.metrics.Count("rejected_ops", "get", "not_found"))
	assert.Len(t, h.mock.Calls(), 1, "only the SDK initialization reaches the backend")
}

func TestDestroyIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()

	h.c.DestroyBanner(bannerID)
	h.c.DestroyBanner(bannerID)
	h.c.Destroy(bannerID)

	assert.Equal(t, models.StateUninitialized, h.state(t, bannerID))
	assert.Equal(t, 1, h.mock.CountCalls("destroy_banner", bannerID))
}

func TestStaleLoadIsDropped(t *testing.T) {
	h := newHarness(t)

	// the first load completes on the backend but is destroyed before delivery
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.DestroyBanner(bannerID)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	current, _ := h.c.Unit(bannerID)

	h.c.Pump()
	snap, _ := h.c.Unit(bannerID)
	assert.Equal(t, models.StateLoaded, snap.State)
	assert.Equal(t, current.LoadID, snap.LoadID)
	assert.Len(t, h.events, 1)
	assert.Equal(t, 1, h.metrics.Count("callbacks", callbacks.OnAdLoaded, "stale"))
	assert.Equal(t, 1, h.metrics.Count("callbacks", callbacks.OnAdLoaded, "accepted"))
}

func TestStaleMalformedLoadIsDropped(t *testing.T) {
	h := newHarness(t)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	old, _ := h.c.Unit(bannerID)
	h.c.DestroyBanner(bannerID)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.queue.Drain(func(callbacks.Message) {})

	h.queue.Post(callbacks.NewMessage(callbacks.OnAdLoaded, string(bannerID), "abc", old.LoadID))
	h.c.Pump()

	snap, _ := h.c.Unit(bannerID)
	assert.Equal(t, models.StateRequested, snap.State)
	assert.NotEqual(t, old.LoadID, snap.LoadID)
	assert.Empty(t, snap.LastError)
	assert.Empty(t, h.events)
	assert.Equal(t, 1, h.metrics.Count("callbacks", callbacks.OnAdLoaded, "malformed"))
	assert.Equal(t, 1, h.metrics.Count("callbacks", callbacks.OnAdLoaded, "stale"))
}

func TestLateCallbackAfterDestroy(t *testing.T) {
	h := newHarness(t)
	h.c.RequestInterstitial(interstitialID, models.NewAdRequest())
	h.c.DestroyInterstitial(interstitialID)

	h.c.Pump()
	assert.Equal(t, models.StateDestroyed, h.state(t, interstitialID))
	assert.Empty(t, h.events)
}

func TestMalformedHeightRaisesSyntheticFailure(t *testing.T) {
	h := newHarness(t)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	snap, _ := h.c.Unit(bannerID)
	// drop the well-formed load so only the malformed one is delivered
	h.queue.Drain(func(callbacks.Message) {})

	h.queue.Post(callbacks.NewMessage(callbacks.OnAdLoaded, string(bannerID), "tall", snap.LoadID))
	h.c.Pump()

	snap, _ = h.c.Unit(bannerID)
	assert.Equal(t, models.StateFailed, snap.State)
	assert.Contains(t, snap.LastError, "banner height")
	require.Len(t, h.events, 1)
	assert.Equal(t, models.EventFailed, h.events[0].Kind)
	assert.True(t, h.events[0].Synthetic)
	assert.Equal(t, 1, h.metrics.Count("callbacks", callbacks.OnAdLoaded, "malformed"))
}

func TestShortPayloadIsPadded(t *testing.T) {
	h := newHarness(t)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()
	h.c.ShowBanner(bannerID, true)
	h.events = nil

	h.queue.Post(callbacks.Message{Name: callbacks.OnAdFailed, Payload: `["banner-1"]`})
	h.queue.Post(callbacks.Message{Name: callbacks.OnAdClicked, Payload: `[]`})
	assert.NotPanics(t, func() { h.c.Pump() })

	// a failure while shown is not expected, the empty click has no unit
	assert.Empty(t, h.events)
	assert.Equal(t, models.StateShown, h.state(t, bannerID))
	assert.Equal(t, 1, h.metrics.Count("callbacks", callbacks.OnAdClicked, "malformed"))
	assert.Equal(t, 1, h.metrics.Count("callbacks", callbacks.OnAdClicked, "unknown_unit"))
}

func TestUnknownCallbackIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.queue.Post(callbacks.NewMessage("onSomethingNew", "x"))
	assert.Equal(t, 1, h.c.Pump())
	assert.Empty(t, h.events)
	assert.Equal(t, 1, h.metrics.Count("callbacks", "onSomethingNew", "unknown_event"))
}

func TestSelectInvalidRewardIsRefused(t *testing.T) {
	h := newHarness(t)
	h.mock.SetRewards(rewardedID, []models.Reward{{Label: "coins", Amount: 10}})
	h.c.RequestRewardedVideo(rewardedID, models.NewAdRequest())
	h.c.Pump()

	h.c.SelectReward(rewardedID, models.Reward{Label: "coins", Amount: 0})
	snap, _ := h.c.Unit(rewardedID)
	assert.Equal(t, models.Reward{}, snap.SelectedReward)
	assert.Equal(t, 0, h.mock.CountCalls("select_reward", rewardedID))
	assert.Equal(t, 1, h.metrics.Count("rejected_ops", "select_reward", "invalid_reward"))

	// valid but not offered is forwarded
	h.c.SelectReward(rewardedID, models.Reward{Label: "gems", Amount: 1})
	snap, _ = h.c.Unit(rewardedID)
	assert.Equal(t, models.Reward{Label: "gems", Amount: 1}, snap.SelectedReward)
}

func TestRewardsEmptyBeforeLoad(t *testing.T) {
	h := newHarness(t)
	rewards := h.c.GetAvailableRewards(rewardedID)
	assert.NotNil(t, rewards)
	assert.Empty(t, rewards)
}

func TestWrongFormatOperationIsRejected(t *testing.T) {
	h := newHarness(t)
	h.c.RequestInterstitial(bannerID, models.NewAdRequest())
	assert.Equal(t, models.StateUninitialized, h.state(t, bannerID))
	assert.Equal(t, 1, h.metrics.Count("rejected_ops", "request_interstitial", "wrong_format"))
}

func TestGenericOperationsDispatchByFormat(t *testing.T) {
	h := newHarness(t)

	h.c.Request(bannerID, models.NewAdRequest())
	h.c.Request(interstitialID, models.NewAdRequest())
	h.c.Pump()
	assert.Equal(t, models.StateLoaded, h.state(t, bannerID))
	assert.Equal(t, models.StateLoaded, h.state(t, interstitialID))

	h.c.Show(bannerID, true)
	assert.Equal(t, models.StateShown, h.state(t, bannerID))
	h.c.Show(interstitialID, false)
	assert.Equal(t, models.StateLoaded, h.state(t, interstitialID))

	h.c.Destroy(bannerID)
	h.c.Destroy(interstitialID)
	assert.Equal(t, models.StateUninitialized, h.state(t, bannerID))
	assert.Equal(t, models.StateDestroyed, h.state(t, interstitialID))
}

func TestOperationBeforeInitializationIsFatal(t *testing.T) {
	h := newUninitializedHarness(t)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		fe, ok := r.(*FatalError)
		require.True(t, ok)
		assert.ErrorIs(t, fe, ErrSdkNotInitialized)
		assert.Contains(t, fe.Error(), "0xDEADDEAD")
	}()
	h.c.RequestBanner(bannerID, models.NewAdRequest())
}

func TestOperationBeforeInitializedCallbackIsFatal(t *testing.T) {
	h := newUninitializedHarness(t)
	require.NoError(t, h.c.InitializeSdk(context.Background(), models.SdkConfiguration{AdUnitID: bannerID}))
	h.c.LoadPlugins(models.FormatBanner, bannerID)

	assert.PanicsWithError(t, (&FatalError{Op: "show_banner", Err: ErrSdkNotInitialized}).Error(), func() {
		h.c.ShowBanner(bannerID, true)
	})

	h.c.Pump()
	assert.NotPanics(t, func() { h.c.ShowBanner(bannerID, true) })
}

func TestLoadPluginsBeforeInitializeIsFatal(t *testing.T) {
	h := newUninitializedHarness(t)
	assert.Panics(t, func() { h.c.LoadPlugins(models.FormatBanner, bannerID) })
}

func TestInitializeWithoutAdUnitIsFatal(t *testing.T) {
	h := newUninitializedHarness(t)
	assert.Panics(t, func() {
		_ = h.c.InitializeSdk(context.Background(), models.SdkConfiguration{})
	})
}

func TestFatalErrorCarriesCode(t *testing.T) {
	err := &FatalError{Op: "request_banner", Err: ErrSdkNotInitialized}
	assert.Equal(t, "fatal 0xDEADDEAD during request_banner: SDK is not initialized", err.Error())
	assert.ErrorIs(t, err, ErrSdkNotInitialized)
	assert.Equal(t, uint32(0xDEADDEAD), FatalCode)
}

func TestLoadPluginsReplacesLiveUnit(t *testing.T) {
	h := newHarness(t)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()

	ids := h.c.LoadPlugins(models.FormatBanner, bannerID, "banner-2")
	assert.Equal(t, []models.AdUnitID{bannerID, "banner-2"}, ids)
	assert.Equal(t, models.StateUninitialized, h.state(t, bannerID))
	assert.Equal(t, 1, h.mock.CountCalls("destroy_banner", bannerID))
	assert.Equal(t, 2, h.metrics.Gauge("ad_units", "banner"))
	assert.Len(t, h.c.Units(), 4)
}

func TestListenersRunInSubscriptionOrder(t *testing.T) {
	h := newHarness(t)
	var order []string
	h.c.Subscribe(models.EventLoaded, func(models.Event) { order = append(order, "first") })
	second := h.c.Subscribe(models.EventLoaded, func(models.Event) { order = append(order, "second") })
	h.c.Subscribe(models.EventLoaded, func(models.Event) { order = append(order, "third") })

	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()
	assert.Equal(t, []string{"first", "second", "third"}, order)

	order = nil
	h.c.Unsubscribe(second)
	h.c.DestroyBanner(bannerID)
	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestListenerMayCallBackIntoCoordinator(t *testing.T) {
	h := newHarness(t)
	h.c.Subscribe(models.EventLoaded, func(ev models.Event) {
		if ev.AdUnitID == bannerID {
			h.c.ShowBanner(bannerID, true)
		}
	})

	h.c.RequestBanner(bannerID, models.NewAdRequest())
	h.c.Pump()
	assert.Equal(t, models.StateShown, h.state(t, bannerID))
}

func TestConsentChangeIsPublished(t *testing.T) {
	h := newHarness(t)
	h.c.GrantConsent()
	h.c.Pump()

	require.Len(t, h.events, 1)
	ev := h.events[0]
	assert.Equal(t, models.EventConsentChanged, ev.Kind)
	assert.Equal(t, models.ConsentUnknown, ev.OldConsent)
	assert.Equal(t, models.ConsentConsented, ev.NewConsent)
	assert.True(t, ev.CanCollectPersonalInfo)
	assert.True(t, h.c.CanCollectPersonalInfo())
	assert.Equal(t, models.ConsentConsented, h.c.CurrentConsentStatus())
}

func TestSdkSettingsPassThrough(t *testing.T) {
	h := newHarness(t)
	h.c.SetLogLevel(models.LogLevelDebug)
	assert.Equal(t, models.LogLevelDebug, h.c.LogLevel())

	h.c.EnableLocationSupport(true)
	assert.True(t, h.mock.LocationEnabled())

	applies, known := h.c.GDPRApplies()
	assert.False(t, applies)
	assert.True(t, known)
	assert.Equal(t, bannerID, h.c.SdkConfiguration().AdUnitID)
}

func TestRunDeliversCallbacks(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	loaded := make(chan struct{})
	h.c.Subscribe(models.EventLoaded, func(models.Event) { close(loaded) })

	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx) }()

	h.c.RequestBanner(bannerID, models.NewAdRequest())
	<-loaded
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, models.StateLoaded, h.state(t, bannerID))
}
