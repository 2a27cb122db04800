package models

import "fmt"

// LatLongUnset is the sentinel passed to native SDKs when no location is
// supplied with a request.
const LatLongUnset = 99999.0

// BannerPosition anchors a banner on screen.
type BannerPosition int

const (
	PositionTopLeft BannerPosition = iota
	PositionTopCenter
	PositionTopRight
	PositionCentered
	PositionBottomLeft
	PositionBottomCenter
	PositionBottomRight
)

var positionNames = map[BannerPosition]string{
	PositionTopLeft:      "top_left",
	PositionTopCenter:    "top_center",
	PositionTopRight:     "top_right",
	PositionCentered:     "centered",
	PositionBottomLeft:   "bottom_left",
	PositionBottomCenter: "bottom_center",
	PositionBottomRight:  "bottom_right",
}

func (p BannerPosition) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("position(%d)", int(p))
}

// ParseBannerPosition converts a position name back to its value.
func ParseBannerPosition(s string) (BannerPosition, error) {
	for p, name := range positionNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown banner position %q", s)
}

func (p BannerPosition) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *BannerPosition) UnmarshalText(b []byte) error {
	v, err := ParseBannerPosition(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// BannerOptions carries the layout parameters of a banner request.
type BannerOptions struct {
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Position BannerPosition `json:"position"`
}

// AdRequest holds everything a backend needs to load one ad. Fields that do
// not apply to the target format are ignored by the backend.
type AdRequest struct {
	Keywords          string            `json:"keywords,omitempty"`
	UserDataKeywords  string            `json:"user_data_keywords,omitempty"`
	Latitude          float64           `json:"latitude"`
	Longitude         float64           `json:"longitude"`
	CustomerID        string            `json:"customer_id,omitempty"`
	MediationSettings map[string]string `json:"mediation_settings,omitempty"`
	Banner            BannerOptions     `json:"banner"`

	// LoadID tags the load instance so late callbacks can be recognised.
	// It is assigned by the ad unit record, not by callers.
	LoadID string `json:"load_id,omitempty"`
}

// NewAdRequest returns a request with the location left unset.
func NewAdRequest() AdRequest {
	return AdRequest{Latitude: LatLongUnset, Longitude: LatLongUnset}
}

// HasLocation reports whether a real coordinate was supplied.
func (r AdRequest) HasLocation() bool {
	return r.Latitude != LatLongUnset && r.Longitude != LatLongUnset
}
