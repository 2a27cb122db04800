package adunit

import (
	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/models"
)

// RequestBanner loads a banner with the given layout.
func (a *AdUnit) RequestBanner(req models.AdRequest) {
	a.request("request_banner", models.FormatBanner, req, backend.Unit.RequestBanner)
}

// ShowBanner shows a loaded banner or hides a shown one. Hiding moves the
// record back to Loaded with visible=false. Calls made before the banner
// loaded are logged and ignored.
func (a *AdUnit) ShowBanner(show bool) {
	const op = "show_banner"
	if !a.usable(op, models.FormatBanner) {
		return
	}

	switch {
	case show && a.state == models.StateShown:
		return
	case show && a.state == models.StateLoaded:
		if err := a.unit.ShowBanner(true); err != nil {
			a.backendError(op, err)
			return
		}
		a.visible = true
		a.transition(models.StateShown)
	case !show && a.state == models.StateShown:
		if err := a.unit.ShowBanner(false); err != nil {
			a.backendError(op, err)
			return
		}
		a.visible = false
		a.transition(models.StateLoaded)
	case !show && a.state == models.StateLoaded:
		a.visible = false
	default:
		a.notReady(op)
	}
}

// RefreshBanner asks a loaded banner to fetch a new creative.
func (a *AdUnit) RefreshBanner(keywords, userDataKeywords string) {
	const op = "refresh_banner"
	if !a.usable(op, models.FormatBanner) {
		return
	}
	if a.state != models.StateLoaded && a.state != models.StateShown {
		a.notReady(op)
		return
	}
	if err := a.unit.RefreshBanner(keywords, userDataKeywords); err != nil {
		a.backendError(op, err)
	}
}

// DestroyBanner removes the banner. The record returns to Uninitialized and
// can be requested again with the same handle.
func (a *AdUnit) DestroyBanner() {
	a.destroy("destroy_banner", models.FormatBanner, backend.Unit.DestroyBanner, models.StateUninitialized)
}
