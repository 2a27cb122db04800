package models

// EventKind is the application-facing category of a backend callback.
type EventKind int

const (
	EventSdkInitialized EventKind = iota
	EventConsentChanged
	EventLoaded
	EventFailed
	EventShown
	EventClicked
	EventDismissed
	EventExpired
	EventExpanded
	EventCollapsed
	EventFailedToPlay
	EventRewardReceived
	EventLeavingApplication
	EventImpressionTracked
)

var eventKindNames = map[EventKind]string{
	EventSdkInitialized:     "sdk_initialized",
	EventConsentChanged:     "consent_changed",
	EventLoaded:             "loaded",
	EventFailed:             "failed",
	EventShown:              "shown",
	EventClicked:            "clicked",
	EventDismissed:          "dismissed",
	EventExpired:            "expired",
	EventExpanded:           "expanded",
	EventCollapsed:          "collapsed",
	EventFailedToPlay:       "failed_to_play",
	EventRewardReceived:     "reward_received",
	EventLeavingApplication: "leaving_application",
	EventImpressionTracked:  "impression_tracked",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is a decoded backend callback. Only the fields relevant to Kind are
// populated.
type Event struct {
	Kind     EventKind
	Format   AdFormat
	AdUnitID AdUnitID
	// Name is the native callback name the event was decoded from.
	Name string

	Height         int
	Error          string
	Reward         Reward
	LoadID         string
	ImpressionData string

	OldConsent             ConsentStatus
	NewConsent             ConsentStatus
	CanCollectPersonalInfo bool

	// Synthetic is set when the event was produced locally from a payload
	// that could not be decoded.
	Synthetic bool
}

// IsSdkLevel reports whether the event is not tied to an ad unit record.
func (e Event) IsSdkLevel() bool {
	return e.Kind == EventSdkInitialized || e.Kind == EventConsentChanged
}
