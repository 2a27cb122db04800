package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/patrickwarner/admediator/internal/callbacks"
	"github.com/patrickwarner/admediator/internal/db"
	"github.com/patrickwarner/admediator/internal/events"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Command is the envelope published to a native bridge.
type Command struct {
	Op       string         `json:"op"`
	AdUnitID string         `json:"ad_unit_id,omitempty"`
	Format   string         `json:"format,omitempty"`
	LoadID   string         `json:"load_id,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

// BridgeBackend drives a native SDK host over Redis pub/sub. Commands are
// published on "<prefix>:<platform>:commands"; the host answers with
// callbacks.Message envelopes on "<prefix>:<platform>:events", which are
// forwarded unchanged to the sink. Readiness and reward lists are cached from
// the callbacks as they pass through.
type BridgeBackend struct {
	platform string
	client   *redis.Client
	ctx      context.Context
	cancel   context.CancelFunc
	pubsub   *redis.PubSub
	done     chan struct{}

	commandsChannel string
	eventsChannel   string

	sink    events.Sink
	logger  *zap.Logger
	metrics observability.MetricsRegistry
	tracer  trace.Tracer

	mu          sync.Mutex
	initialized bool
	logLevel    models.LogLevel
	location    bool
	consent     models.ConsentStatus
	canCollect  bool
	ready       map[models.AdUnitID]bool
	requested   map[models.AdUnitID]bool
	loadIDs     map[models.AdUnitID]string
	rewards     map[models.AdUnitID][]models.Reward
}

var _ Backend = (*BridgeBackend)(nil)

// NewBridgeBackend connects to Redis at deps.Config.RedisAddr and starts
// listening for callbacks of the given platform.
func NewBridgeBackend(platform string, deps Deps) (*BridgeBackend, error) {
	deps = deps.withDefaults()
	store, err := db.InitRedis(deps.Config.RedisAddr, deps.Logger.With(zap.String("platform", platform)))
	if err != nil {
		return nil, err
	}
	return NewBridgeBackendWithClient(platform, store.Client, deps)
}

// NewBridgeBackendWithClient builds a bridge on an existing client. The
// callback subscription is confirmed before it returns.
func NewBridgeBackendWithClient(platform string, client *redis.Client, deps Deps) (*BridgeBackend, error) {
	deps = deps.withDefaults()
	prefix := deps.Config.BridgeChannelPrefix
	if prefix == "" {
		prefix = "mediation"
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &BridgeBackend{
		platform:        platform,
		client:          client,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		commandsChannel: fmt.Sprintf("%s:%s:commands", prefix, platform),
		eventsChannel:   fmt.Sprintf("%s:%s:events", prefix, platform),
		sink:            deps.Sink,
		logger:          deps.Logger.With(zap.String("backend", platform)),
		metrics:         deps.Metrics,
		tracer:          observability.GetTracer("mediation.bridge"),
		logLevel:        models.LogLevelInfo,
		ready:           make(map[models.AdUnitID]bool),
		requested:       make(map[models.AdUnitID]bool),
		loadIDs:         make(map[models.AdUnitID]string),
		rewards:         make(map[models.AdUnitID][]models.Reward),
	}

	b.pubsub = client.Subscribe(ctx, b.eventsChannel)
	if _, err := b.pubsub.Receive(ctx); err != nil {
		cancel()
		_ = b.pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.eventsChannel, err)
	}
	go b.listen()
	return b, nil
}

func (b *BridgeBackend) Name() string { return b.platform }

// CommandsChannel is the channel commands are published on.
func (b *BridgeBackend) CommandsChannel() string { return b.commandsChannel }

// EventsChannel is the channel callbacks are read from.
func (b *BridgeBackend) EventsChannel() string { return b.eventsChannel }

func (b *BridgeBackend) listen() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		var cb callbacks.Message
		if err := json.Unmarshal([]byte(msg.Payload), &cb); err != nil {
			b.logger.Error("malformed callback envelope", zap.String("payload", msg.Payload), zap.Error(err))
			b.metrics.IncrementCallbacks("envelope", "malformed")
			continue
		}
		if b.observe(cb) {
			continue
		}
		if b.sink != nil {
			b.sink.Post(cb)
		}
	}
}

// observe updates the local caches from a callback. It reports true when the
// callback is bridge-internal and must not be forwarded.
func (b *BridgeBackend) observe(cb callbacks.Message) bool {
	if cb.Name == callbacks.OnRewardedVideoRewardsAvailable {
		args, err := callbacks.DecodeArgs(cb.Payload, 2)
		if err != nil {
			b.logger.Error("short rewards payload", zap.String("payload", cb.Payload), zap.Error(err))
		}
		rewards, err := callbacks.DecodeRewards(args[1])
		if err != nil {
			b.logger.Error("malformed rewards payload", zap.String("ad_unit_id", args[0]), zap.Error(err))
			return true
		}
		b.mu.Lock()
		b.rewards[models.AdUnitID(args[0])] = rewards
		b.mu.Unlock()
		return true
	}

	// decode problems are reported by the consumer, not here
	ev, err := callbacks.Translate(cb)
	if errors.Is(err, callbacks.ErrUnknownEvent) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if ev.LoadID != "" && ev.LoadID != b.loadIDs[ev.AdUnitID] {
		// a previous load; the consumer drops it as stale
		return false
	}
	switch ev.Kind {
	case models.EventSdkInitialized:
		b.initialized = true
	case models.EventConsentChanged:
		b.consent = ev.NewConsent
		b.canCollect = ev.CanCollectPersonalInfo
	case models.EventLoaded:
		b.ready[ev.AdUnitID] = true
	case models.EventFailed, models.EventExpired, models.EventDismissed, models.EventFailedToPlay:
		b.ready[ev.AdUnitID] = false
	}
	return false
}

func (b *BridgeBackend) publish(op string, id models.AdUnitID, format models.AdFormat, loadID string, params map[string]any) error {
	ctx, span := b.tracer.Start(b.ctx, "bridge."+op, trace.WithAttributes(
		attribute.String("mediation.platform", b.platform),
		attribute.String("mediation.ad_unit_id", string(id)),
	))
	defer span.End()

	cmd := Command{Op: op, AdUnitID: string(id), LoadID: loadID, Params: params}
	if id != "" {
		cmd.Format = format.String()
	}
	payload, err := json.Marshal(cmd)
	if err == nil {
		err = b.client.Publish(ctx, b.commandsChannel, payload).Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Error("failed to publish bridge command",
			zap.String("op", op),
			zap.String("ad_unit_id", string(id)),
			zap.Error(err))
	}
	b.metrics.IncrementBackendCalls(b.platform, op, result(err))
	return err
}

func (b *BridgeBackend) reject(op string, id models.AdUnitID) error {
	b.metrics.IncrementBackendCalls(b.platform, op, result(ErrPluginNotReady))
	b.logger.Error("bridge rejected call",
		zap.String("op", op),
		zap.String("ad_unit_id", string(id)),
		zap.Error(ErrPluginNotReady))
	return ErrPluginNotReady
}

func (b *BridgeBackend) InitializeSdk(ctx context.Context, cfg models.SdkConfiguration) error {
	b.mu.Lock()
	b.logLevel = cfg.LogLevel
	b.location = cfg.LocationEnabled
	b.mu.Unlock()

	networks := make([]any, 0, len(cfg.AdditionalNetworks))
	for _, n := range cfg.AdditionalNetworks {
		networks = append(networks, n)
	}
	return b.publish("initialize", cfg.AdUnitID, models.FormatBanner, "", map[string]any{
		"log_level":                 int(cfg.LogLevel),
		"allow_legitimate_interest": cfg.AllowLegitimateInterest,
		"location_enabled":          cfg.LocationEnabled,
		"additional_networks":       networks,
		"mediation_settings":        cfg.MediationSettings,
	})
}

// IsSdkInitialized reports whether the native host confirmed initialization.
func (b *BridgeBackend) IsSdkInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

func (b *BridgeBackend) NewUnit(id models.AdUnitID, format models.AdFormat) (Unit, error) {
	if format == models.FormatNative {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedFormat, format, b.platform)
	}
	return &bridgeUnit{b: b, id: id, format: format}, nil
}

func (b *BridgeBackend) EnableLocationSupport(enabled bool) {
	b.mu.Lock()
	b.location = enabled
	b.mu.Unlock()
	_ = b.publish("enable_location", "", 0, "", map[string]any{"enabled": enabled})
}

func (b *BridgeBackend) SetLogLevel(level models.LogLevel) {
	b.mu.Lock()
	b.logLevel = level
	b.mu.Unlock()
	_ = b.publish("set_log_level", "", 0, "", map[string]any{"level": int(level)})
}

func (b *BridgeBackend) LogLevel() models.LogLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logLevel
}

func (b *BridgeBackend) CanCollectPersonalInfo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canCollect
}

func (b *BridgeBackend) CurrentConsentStatus() models.ConsentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consent
}

// GDPRApplies is unknown until the host reports a consent status.
func (b *BridgeBackend) GDPRApplies() (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consent == models.ConsentUnknown {
		return false, false
	}
	return true, true
}

func (b *BridgeBackend) GrantConsent() {
	_ = b.publish("grant_consent", "", 0, "", nil)
}

func (b *BridgeBackend) RevokeConsent() {
	_ = b.publish("revoke_consent", "", 0, "", nil)
}

// Close stops the callback listener and closes the Redis client.
func (b *BridgeBackend) Close() error {
	b.cancel()
	err := b.pubsub.Close()
	<-b.done
	if cerr := b.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func (b *BridgeBackend) isReady(id models.AdUnitID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready[id]
}

func (b *BridgeBackend) isRequested(id models.AdUnitID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requested[id]
}

// markRequested records the tag of the load in flight for id. An empty
// loadID with requested false forgets the unit.
func (b *BridgeBackend) markRequested(id models.AdUnitID, requested bool, loadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requested[id] = requested
	b.ready[id] = false
	b.loadIDs[id] = loadID
	if !requested {
		delete(b.rewards, id)
		delete(b.loadIDs, id)
	}
}

// bridgeUnit forwards ad unit operations to the native host.
type bridgeUnit struct {
	b      *BridgeBackend
	id     models.AdUnitID
	format models.AdFormat
}

func (u *bridgeUnit) AdUnitID() models.AdUnitID { return u.id }
func (u *bridgeUnit) Format() models.AdFormat    { return u.format }

func requestParams(req models.AdRequest) map[string]any {
	params := map[string]any{
		"keywords":           req.Keywords,
		"user_data_keywords": req.UserDataKeywords,
		"latitude":           strconv.FormatFloat(req.Latitude, 'f', -1, 64),
		"longitude":          strconv.FormatFloat(req.Longitude, 'f', -1, 64),
		"customer_id":        req.CustomerID,
	}
	if len(req.MediationSettings) > 0 {
		params["mediation_settings"] = req.MediationSettings
	}
	return params
}

func (u *bridgeUnit) request(op string, req models.AdRequest, params map[string]any) error {
	if !u.b.IsSdkInitialized() {
		return u.b.reject(op, u.id)
	}
	u.b.markRequested(u.id, true, req.LoadID)
	return u.b.publish(op, u.id, u.format, req.LoadID, params)
}

func (u *bridgeUnit) RequestBanner(req models.AdRequest) error {
	params := requestParams(req)
	params["width"] = req.Banner.Width
	params["height"] = req.Banner.Height
	params["position"] = req.Banner.Position.String()
	return u.request("request_banner", req, params)
}

func (u *bridgeUnit) ShowBanner(show bool) error {
	if !u.b.isRequested(u.id) {
		return u.b.reject("show_banner", u.id)
	}
	return u.b.publish("show_banner", u.id, u.format, "", map[string]any{"show": show})
}

func (u *bridgeUnit) RefreshBanner(keywords, userDataKeywords string) error {
	if !u.b.isRequested(u.id) {
		return u.b.reject("refresh_banner", u.id)
	}
	return u.b.publish("refresh_banner", u.id, u.format, "", map[string]any{
		"keywords":           keywords,
		"user_data_keywords": userDataKeywords,
	})
}

func (u *bridgeUnit) DestroyBanner() error {
	u.b.markRequested(u.id, false, "")
	return u.b.publish("destroy_banner", u.id, u.format, "", nil)
}

func (u *bridgeUnit) RequestInterstitial(req models.AdRequest) error {
	return u.request("request_interstitial", req, requestParams(req))
}

func (u *bridgeUnit) IsInterstitialReady() bool {
	return u.b.isReady(u.id)
}

func (u *bridgeUnit) ShowInterstitial() error {
	if !u.b.isReady(u.id) {
		return u.b.reject("show_interstitial", u.id)
	}
	return u.b.publish("show_interstitial", u.id, u.format, "", nil)
}

func (u *bridgeUnit) DestroyInterstitial() error {
	u.b.markRequested(u.id, false, "")
	return u.b.publish("destroy_interstitial", u.id, u.format, "", nil)
}

func (u *bridgeUnit) RequestRewardedVideo(req models.AdRequest) error {
	return u.request("request_rewarded_video", req, requestParams(req))
}

func (u *bridgeUnit) HasRewardedVideo() bool {
	return u.b.isReady(u.id)
}

func (u *bridgeUnit) AvailableRewards() []models.Reward {
	if !u.b.isReady(u.id) {
		return nil
	}
	u.b.mu.Lock()
	defer u.b.mu.Unlock()
	return append([]models.Reward(nil), u.b.rewards[u.id]...)
}

func (u *bridgeUnit) SelectReward(reward models.Reward) error {
	if !u.b.isReady(u.id) {
		return u.b.reject("select_reward", u.id)
	}
	return u.b.publish("select_reward", u.id, u.format, "", map[string]any{
		"label":  reward.Label,
		"amount": reward.Amount,
	})
}

func (u *bridgeUnit) ShowRewardedVideo(customData string) error {
	if !u.b.isReady(u.id) {
		return u.b.reject("show_rewarded_video", u.id)
	}
	return u.b.publish("show_rewarded_video", u.id, u.format, "", map[string]any{"custom_data": customData})
}
