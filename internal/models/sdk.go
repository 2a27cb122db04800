package models

import (
	"fmt"
	"strings"
)

// LogLevel mirrors the native SDK log levels.
type LogLevel int

const (
	LogLevelDebug LogLevel = 20
	LogLevelInfo  LogLevel = 30
	LogLevelNone  LogLevel = 70
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelNone:
		return "none"
	}
	return fmt.Sprintf("log_level(%d)", int(l))
}

// ParseLogLevel converts a level name to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "none":
		return LogLevelNone, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// ConsentStatus is the user's personal-information consent state.
type ConsentStatus int

const (
	ConsentUnknown ConsentStatus = iota
	ConsentDenied
	ConsentDoNotTrack
	ConsentPotentialWhitelist
	ConsentConsented
)

var consentNames = map[ConsentStatus]string{
	ConsentUnknown:            "unknown",
	ConsentDenied:             "denied",
	ConsentDoNotTrack:         "dnt",
	ConsentPotentialWhitelist: "potential_whitelist",
	ConsentConsented:          "consented",
}

func (c ConsentStatus) String() string {
	if name, ok := consentNames[c]; ok {
		return name
	}
	return fmt.Sprintf("consent(%d)", int(c))
}

// ParseConsentStatus converts a status name to a ConsentStatus. Unrecognised
// names map to ConsentUnknown.
func ParseConsentStatus(s string) ConsentStatus {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range consentNames {
		if name == s {
			return c
		}
	}
	return ConsentUnknown
}

// SdkConfiguration is passed once to InitializeSdk.
type SdkConfiguration struct {
	// AdUnitID is any valid ad unit of the app; the SDK uses it to fetch
	// its remote configuration.
	AdUnitID                AdUnitID
	LogLevel                LogLevel
	AllowLegitimateInterest bool
	LocationEnabled         bool
	AdditionalNetworks      []string
	// MediationSettings is keyed by network name.
	MediationSettings map[string]map[string]string
}
