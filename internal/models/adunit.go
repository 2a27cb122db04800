package models

import (
	"fmt"
	"strings"
)

// AdUnitID identifies one configured ad placement. It is always supplied by
// the publisher and never generated here.
type AdUnitID string

// AdFormat is the kind of ad served by an ad unit. It is fixed when the
// unit's record is created.
type AdFormat int

const (
	FormatBanner AdFormat = iota
	FormatInterstitial
	FormatRewardedVideo
	FormatNative
)

var formatNames = map[AdFormat]string{
	FormatBanner:        "banner",
	FormatInterstitial:  "interstitial",
	FormatRewardedVideo: "rewarded_video",
	FormatNative:        "native",
}

func (f AdFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseAdFormat accepts the names produced by AdFormat.String as well as a
// few common aliases ("rewarded", "rewardedvideo").
func ParseAdFormat(s string) (AdFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "banner":
		return FormatBanner, nil
	case "interstitial":
		return FormatInterstitial, nil
	case "rewarded_video", "rewarded", "rewardedvideo":
		return FormatRewardedVideo, nil
	case "native":
		return FormatNative, nil
	}
	return 0, fmt.Errorf("unknown ad format %q", s)
}

// MarshalText lets formats appear as strings in JSON payloads.
func (f AdFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *AdFormat) UnmarshalText(b []byte) error {
	v, err := ParseAdFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// State is the lifecycle position of an ad unit record.
type State int

const (
	StateUninitialized State = iota
	StateRequested
	StateLoaded
	StateShown
	StateFailed
	StateDestroyed
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StateRequested:     "requested",
	StateLoaded:        "loaded",
	StateShown:         "shown",
	StateFailed:        "failed",
	StateDestroyed:     "destroyed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown ad unit state %q", string(b))
}

// CanRequest reports whether a new load may be issued from this state.
func (s State) CanRequest() bool {
	return s == StateUninitialized || s == StateDestroyed || s == StateFailed
}

// IsLive reports whether the unit has an outstanding or completed load that
// callbacks may still refer to.
func (s State) IsLive() bool {
	return s == StateRequested || s == StateLoaded || s == StateShown
}

// AdUnitSnapshot is a read-only copy of a record, safe to hand to callers.
type AdUnitSnapshot struct {
	ID             AdUnitID `json:"ad_unit_id"`
	Format         AdFormat `json:"format"`
	State          State    `json:"state"`
	Visible        bool     `json:"visible"`
	Height         int      `json:"height,omitempty"`
	LoadID         string   `json:"load_id,omitempty"`
	Rewards        []Reward `json:"rewards,omitempty"`
	SelectedReward Reward   `json:"selected_reward"`
	LastError      string   `json:"last_error,omitempty"`
}
