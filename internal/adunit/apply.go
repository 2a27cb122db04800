package adunit

import (
	"github.com/patrickwarner/admediator/internal/models"

	"go.uber.org/zap"
)

// Outcomes reported by Apply.
const (
	OutcomeAccepted       = "accepted"
	OutcomeStale          = "stale"
	OutcomeUnknownUnit    = "unknown_unit"
	OutcomeFormatMismatch = "format_mismatch"
)

// Apply moves the record according to a backend callback and reports whether
// the callback was accepted. Callbacks tagged with a load id other than the
// current one, or whose kind the current state does not expect, are stale
// and change nothing.
func (a *AdUnit) Apply(ev models.Event) string {
	if a.null {
		return OutcomeUnknownUnit
	}
	if ev.Kind != models.EventImpressionTracked && ev.Format != a.format {
		return OutcomeFormatMismatch
	}
	if ev.LoadID != "" && ev.LoadID != a.loadID {
		return OutcomeStale
	}

	switch ev.Kind {
	case models.EventLoaded:
		return a.applyLoaded(ev)

	case models.EventFailed:
		switch {
		case a.state == models.StateRequested || a.state == models.StateLoaded:
			a.fail(ev.Error)
		case a.state == models.StateShown && ev.Synthetic:
			// a malformed callback while the ad is on screen is reported
			// without interrupting it
		default:
			return OutcomeStale
		}

	case models.EventExpired:
		if a.state != models.StateLoaded {
			return OutcomeStale
		}
		a.fail("expired")

	case models.EventFailedToPlay:
		if a.state != models.StateLoaded && a.state != models.StateShown {
			return OutcomeStale
		}
		a.fail(ev.Error)

	case models.EventShown:
		switch a.state {
		case models.StateLoaded:
			a.transition(models.StateShown)
		case models.StateShown:
		default:
			return OutcomeStale
		}

	case models.EventDismissed:
		if a.state != models.StateShown {
			return OutcomeStale
		}
		a.resetLoad()
		a.transition(models.StateDestroyed)

	case models.EventRewardReceived:
		if a.state != models.StateLoaded && a.state != models.StateShown {
			return OutcomeStale
		}

	default:
		if !a.state.IsLive() {
			return OutcomeStale
		}
	}
	return OutcomeAccepted
}

func (a *AdUnit) applyLoaded(ev models.Event) string {
	switch a.state {
	case models.StateRequested:
		a.height = ev.Height
		if a.format == models.FormatRewardedVideo && a.unit != nil {
			a.rewards = a.unit.AvailableRewards()
		}
		a.transition(models.StateLoaded)
		a.logger.Info("ad unit loaded",
			zap.Int("height", a.height),
			zap.Int("rewards", len(a.rewards)))
	case models.StateLoaded, models.StateShown:
		if a.format != models.FormatBanner {
			return OutcomeStale
		}
		// banner auto refresh
		a.height = ev.Height
	default:
		return OutcomeStale
	}
	return OutcomeAccepted
}

func (a *AdUnit) fail(reason string) {
	a.logger.Warn("ad unit failed", zap.String("error", reason), zap.Stringer("state", a.state))
	a.resetLoadKeepTag()
	a.lastErr = reason
	a.transition(models.StateFailed)
}

// resetLoadKeepTag clears the loaded content but keeps the load id so late
// callbacks of the failed load are still recognised as stale.
func (a *AdUnit) resetLoadKeepTag() {
	tag := a.loadID
	a.resetLoad()
	a.loadID = tag
}
