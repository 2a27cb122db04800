package adunit

import (
	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdUnit is the lifecycle record of one ad unit. It validates every
// operation against its state before forwarding to the backend handle, and
// applies backend callbacks to move between states.
//
// The null AdUnit returned for unknown ids accepts every call and does
// nothing, so callers never need a nil check.
//
// AdUnit is not safe for concurrent use; the coordinator serialises access.
type AdUnit struct {
	id      models.AdUnitID
	format  models.AdFormat
	null    bool
	backend backend.Backend
	unit    backend.Unit
	logger  *zap.Logger
	metrics observability.MetricsRegistry

	state    models.State
	visible  bool
	height   int
	loadID   string
	rewards  []models.Reward
	selected models.Reward
	lastErr  string
}

func newAdUnit(id models.AdUnitID, format models.AdFormat, b backend.Backend, unit backend.Unit, logger *zap.Logger, metrics observability.MetricsRegistry) *AdUnit {
	return &AdUnit{
		id:      id,
		format:  format,
		backend: b,
		unit:    unit,
		logger:  logger.With(zap.String("ad_unit_id", string(id)), zap.Stringer("format", format)),
		metrics: metrics,
		state:   models.StateUninitialized,
	}
}

func newNullAdUnit(id models.AdUnitID) *AdUnit {
	return &AdUnit{id: id, null: true, logger: zap.NewNop(), metrics: observability.NewNoOpRegistry()}
}

func (a *AdUnit) ID() models.AdUnitID           { return a.id }
func (a *AdUnit) Format() models.AdFormat       { return a.format }
func (a *AdUnit) State() models.State           { return a.state }
func (a *AdUnit) Visible() bool                 { return a.visible }
func (a *AdUnit) LoadID() string                { return a.loadID }
func (a *AdUnit) SelectedReward() models.Reward { return a.selected }

// IsNull reports whether this is the stand-in for an unknown ad unit.
func (a *AdUnit) IsNull() bool { return a.null }

// Snapshot copies the record's observable state.
func (a *AdUnit) Snapshot() models.AdUnitSnapshot {
	return models.AdUnitSnapshot{
		ID:             a.id,
		Format:         a.format,
		State:          a.state,
		Visible:        a.visible,
		Height:         a.height,
		LoadID:         a.loadID,
		Rewards:        append([]models.Reward(nil), a.rewards...),
		SelectedReward: a.selected,
		LastError:      a.lastErr,
	}
}

func (a *AdUnit) transition(to models.State) {
	if a.state == to {
		return
	}
	a.logger.Debug("ad unit transition",
		zap.Stringer("from", a.state),
		zap.Stringer("to", to))
	a.metrics.IncrementTransitions(a.format.String(), a.state.String(), to.String())
	a.state = to
}

// usable reports whether op may proceed on this record: the null record and
// records of another format reject everything.
func (a *AdUnit) usable(op string, want models.AdFormat) bool {
	if a.null {
		return false
	}
	if a.format != want {
		a.logger.Error("operation does not match ad unit format",
			zap.String("op", op),
			zap.Stringer("want", want))
		a.metrics.IncrementRejectedOps(op, "wrong_format")
		return false
	}
	return true
}

func (a *AdUnit) notReady(op string) {
	a.logger.Error("ad unit not ready",
		zap.String("op", op),
		zap.Stringer("state", a.state))
	a.metrics.IncrementRejectedOps(op, "not_ready")
}

func (a *AdUnit) backendError(op string, err error) {
	a.logger.Error("backend call failed", zap.String("op", op), zap.Error(err))
}

func (a *AdUnit) ensureUnit() error {
	if a.unit != nil {
		return nil
	}
	u, err := a.backend.NewUnit(a.id, a.format)
	if err != nil {
		return err
	}
	a.unit = u
	return nil
}

func (a *AdUnit) resetLoad() {
	a.visible = false
	a.height = 0
	a.loadID = ""
	a.rewards = nil
	a.selected = models.Reward{}
}

func (a *AdUnit) request(op string, want models.AdFormat, req models.AdRequest, call func(backend.Unit, models.AdRequest) error) {
	if !a.usable(op, want) {
		return
	}
	if !a.state.CanRequest() {
		a.logger.Warn("ad unit already requested",
			zap.String("op", op),
			zap.Stringer("state", a.state))
		a.metrics.IncrementRejectedOps(op, "already_requested")
		return
	}
	if err := a.ensureUnit(); err != nil {
		a.backendError(op, err)
		a.metrics.IncrementRejectedOps(op, "no_handle")
		return
	}

	a.resetLoad()
	a.lastErr = ""
	a.loadID = uuid.NewString()
	req.LoadID = a.loadID
	a.transition(models.StateRequested)

	if err := call(a.unit, req); err != nil {
		a.backendError(op, err)
		a.lastErr = err.Error()
		a.transition(models.StateFailed)
	}
}

// Request issues a load for whatever format the record was created with.
func (a *AdUnit) Request(req models.AdRequest) {
	switch a.format {
	case models.FormatBanner:
		a.RequestBanner(req)
	case models.FormatInterstitial:
		a.RequestInterstitial(req)
	case models.FormatRewardedVideo:
		a.RequestRewardedVideo(req)
	default:
		if !a.null {
			a.logger.Error("format cannot be requested")
			a.metrics.IncrementRejectedOps("request", "wrong_format")
		}
	}
}

// Show shows or hides the ad. Only banners can be hidden; hiding any other
// format is ignored.
func (a *AdUnit) Show(show bool, customData string) {
	switch a.format {
	case models.FormatBanner:
		a.ShowBanner(show)
	case models.FormatInterstitial:
		if show {
			a.ShowInterstitial()
		}
	case models.FormatRewardedVideo:
		if show {
			a.ShowRewardedVideo(customData)
		}
	}
}

// Destroy tears the ad unit down whatever its format.
func (a *AdUnit) Destroy() {
	switch a.format {
	case models.FormatBanner:
		a.DestroyBanner()
	case models.FormatInterstitial:
		a.DestroyInterstitial()
	case models.FormatRewardedVideo:
		a.DestroyRewardedVideo()
	case models.FormatNative:
		if a.null || a.state == models.StateUninitialized {
			return
		}
		a.resetLoad()
		a.transition(models.StateUninitialized)
	}
}

// destroy issues the backend teardown once. Repeated calls on an already
// torn down record change nothing.
func (a *AdUnit) destroy(op string, want models.AdFormat, teardown func(backend.Unit) error, terminal models.State) {
	if !a.usable(op, want) {
		return
	}
	if a.state == models.StateUninitialized || a.state == models.StateDestroyed {
		a.logger.Debug("ad unit already torn down", zap.String("op", op))
		return
	}
	if a.unit != nil {
		if err := teardown(a.unit); err != nil {
			a.backendError(op, err)
		}
	}
	a.resetLoad()
	a.transition(terminal)
}
