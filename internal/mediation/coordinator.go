package mediation

import (
	"context"
	"sync"

	"github.com/patrickwarner/admediator/internal/adunit"
	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/events"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"go.uber.org/zap"
)

// Deps groups the collaborators of a Coordinator. Queue must be the sink the
// backend was built with.
type Deps struct {
	Backend backend.Backend
	Queue   *events.Queue
	Bus     *events.Bus
	Logger  *zap.Logger
	Metrics observability.MetricsRegistry
}

// Coordinator is the single entry point the application uses for ads. It
// checks SDK initialization, resolves ad units through the registry and
// forwards to their records. Backend callbacks are redelivered through the
// queue and applied by Pump or Run.
//
// One mutex serialises facade calls and callback application, so the
// coordinator may be shared by several goroutines. Listeners run without the
// lock held and may call back into the coordinator, but must not call Pump.
type Coordinator struct {
	mu       sync.Mutex
	backend  backend.Backend
	registry *adunit.Registry
	queue    *events.Queue
	bus      *events.Bus
	logger   *zap.Logger
	metrics  observability.MetricsRegistry

	initRequested bool
	initialized   bool
	sdkConfig     models.SdkConfiguration
}

// New wires a coordinator. Missing queue, bus, logger or metrics are
// replaced with fresh or no-op instances.
func New(deps Deps) *Coordinator {
	if deps.Queue == nil {
		deps.Queue = events.NewQueue()
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewNoOpRegistry()
	}
	return &Coordinator{
		backend:  deps.Backend,
		registry: adunit.NewRegistry(deps.Backend, deps.Logger, deps.Metrics),
		queue:    deps.Queue,
		bus:      deps.Bus,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// InitializeSdk starts SDK initialization. Completion is reported by the
// backend's initialized callback; ad unit operations are accepted only after
// it has been applied. An empty ad unit id is fatal.
func (c *Coordinator) InitializeSdk(ctx context.Context, cfg models.SdkConfiguration) error {
	if cfg.AdUnitID == "" {
		fatal("initialize_sdk", ErrMissingAdUnitID)
	}

	c.mu.Lock()
	c.initRequested = true
	c.sdkConfig = cfg
	c.mu.Unlock()

	c.logger.Info("initializing SDK",
		zap.String("ad_unit_id", string(cfg.AdUnitID)),
		zap.Stringer("log_level", cfg.LogLevel),
		zap.Bool("location_enabled", cfg.LocationEnabled),
		zap.String("backend", c.backend.Name()))
	return c.backend.InitializeSdk(ctx, cfg)
}

// IsSdkInitialized reports whether the SDK finished initializing.
func (c *Coordinator) IsSdkInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// LoadPlugins registers ad units of one format, resetting any existing
// records with the same ids. It may be called as soon as InitializeSdk has
// been called; calling it earlier is fatal.
func (c *Coordinator) LoadPlugins(format models.AdFormat, ids ...models.AdUnitID) []models.AdUnitID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initRequested {
		fatal("load_plugins", ErrSdkNotInitialized)
	}
	return c.registry.InitUnits(format, ids...)
}

// withUnit runs fn on the record for id after the initialization check.
// Unknown ids get the null record.
func (c *Coordinator) withUnit(op string, id models.AdUnitID, fn func(u *adunit.AdUnit)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		fatal(op, ErrSdkNotInitialized)
	}
	fn(c.registry.Get(id))
}

// Request loads an ad for id using the format it was registered with.
func (c *Coordinator) Request(id models.AdUnitID, req models.AdRequest) {
	c.withUnit("request", id, func(u *adunit.AdUnit) { u.Request(req) })
}

// Show shows the ad for id, or hides it when show is false (banners only).
func (c *Coordinator) Show(id models.AdUnitID, show bool) {
	c.withUnit("show", id, func(u *adunit.AdUnit) { u.Show(show, "") })
}

// Destroy tears down the ad for id. Calling it again is harmless.
func (c *Coordinator) Destroy(id models.AdUnitID) {
	c.withUnit("destroy", id, func(u *adunit.AdUnit) { u.Destroy() })
}

// Unit returns a snapshot of one record.
func (c *Coordinator) Unit(id models.AdUnitID) (models.AdUnitSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.registry.Lookup(id)
	if !ok {
		return models.AdUnitSnapshot{}, false
	}
	return u.Snapshot(), true
}

// Units returns snapshots of every registered record.
func (c *Coordinator) Units() []models.AdUnitSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Snapshots()
}

// Subscribe registers an application listener for one event kind.
func (c *Coordinator) Subscribe(kind models.EventKind, fn events.Listener) events.Subscription {
	return c.bus.Subscribe(kind, fn)
}

// SubscribeAll registers an application listener for every event.
func (c *Coordinator) SubscribeAll(fn events.Listener) events.Subscription {
	return c.bus.SubscribeAll(fn)
}

// Unsubscribe removes a listener.
func (c *Coordinator) Unsubscribe(sub events.Subscription) {
	c.bus.Unsubscribe(sub)
}

// Pump applies every pending callback on the calling goroutine and returns
// how many were processed. Game-loop style hosts call it once per frame.
func (c *Coordinator) Pump() int {
	n := c.queue.Drain(c.handle)
	c.metrics.SetQueueDepth(c.queue.Len())
	return n
}

// Run applies callbacks as they arrive until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	return c.queue.Run(ctx, c.handle)
}

// Close releases the backend.
func (c *Coordinator) Close() error {
	return c.backend.Close()
}
