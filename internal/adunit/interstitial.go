package adunit

import (
	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/models"
)

func (a *AdUnit) RequestInterstitial(req models.AdRequest) {
	a.request("request_interstitial", models.FormatInterstitial, req, backend.Unit.RequestInterstitial)
}

func (a *AdUnit) IsInterstitialReady() bool {
	if a.null || a.format != models.FormatInterstitial || a.state != models.StateLoaded {
		return false
	}
	return a.unit.IsInterstitialReady()
}

// ShowInterstitial shows a loaded interstitial. The show is one-shot: after
// dismissal the unit has to be requested again.
func (a *AdUnit) ShowInterstitial() {
	const op = "show_interstitial"
	if !a.usable(op, models.FormatInterstitial) {
		return
	}
	if a.state != models.StateLoaded {
		a.notReady(op)
		return
	}
	if err := a.unit.ShowInterstitial(); err != nil {
		a.backendError(op, err)
		return
	}
	a.transition(models.StateShown)
}

// DestroyInterstitial destroys the backend object; a later request gets a
// fresh handle.
func (a *AdUnit) DestroyInterstitial() {
	a.destroy("destroy_interstitial", models.FormatInterstitial, func(u backend.Unit) error {
		err := u.DestroyInterstitial()
		a.unit = nil
		return err
	}, models.StateDestroyed)
}
