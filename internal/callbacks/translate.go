package callbacks

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/patrickwarner/admediator/internal/models"
)

type decoder struct {
	kind    models.EventKind
	format  models.AdFormat
	minArgs int
	// fill populates kind specific fields from the padded args.
	fill func(ev *models.Event, args []string) error
}

// failedFor maps a format to the native callback name used when a synthetic
// failure has to be raised for it.
var failedFor = map[models.AdFormat]string{
	models.FormatBanner:        OnAdFailed,
	models.FormatInterstitial:  OnInterstitialFailed,
	models.FormatRewardedVideo: OnRewardedVideoFailed,
}

var decoders = map[string]decoder{
	OnSdkInitialized: {kind: models.EventSdkInitialized, minArgs: 1},
	OnConsentStatusChanged: {kind: models.EventConsentChanged, minArgs: 3, fill: func(ev *models.Event, args []string) error {
		ev.AdUnitID = ""
		ev.OldConsent = models.ParseConsentStatus(args[0])
		ev.NewConsent = models.ParseConsentStatus(args[1])
		ev.CanCollectPersonalInfo = strings.EqualFold(args[2], "true")
		return nil
	}},

	OnAdLoaded: {kind: models.EventLoaded, format: models.FormatBanner, minArgs: 2, fill: func(ev *models.Event, args []string) error {
		ev.LoadID = optional(args, 2)
		h, err := parseCount(args[1], 0)
		if err != nil {
			return fmt.Errorf("banner height %q: %w", args[1], err)
		}
		ev.Height = h
		return nil
	}},
	OnAdFailed:    {kind: models.EventFailed, format: models.FormatBanner, minArgs: 2, fill: fillError},
	OnAdClicked:   {kind: models.EventClicked, format: models.FormatBanner, minArgs: 1},
	OnAdExpanded:  {kind: models.EventExpanded, format: models.FormatBanner, minArgs: 1},
	OnAdCollapsed: {kind: models.EventCollapsed, format: models.FormatBanner, minArgs: 1},

	OnInterstitialLoaded:    {kind: models.EventLoaded, format: models.FormatInterstitial, minArgs: 1, fill: fillLoadTag},
	OnInterstitialFailed:    {kind: models.EventFailed, format: models.FormatInterstitial, minArgs: 2, fill: fillError},
	OnInterstitialShown:     {kind: models.EventShown, format: models.FormatInterstitial, minArgs: 1},
	OnInterstitialClicked:   {kind: models.EventClicked, format: models.FormatInterstitial, minArgs: 1},
	OnInterstitialDismissed: {kind: models.EventDismissed, format: models.FormatInterstitial, minArgs: 1},
	OnInterstitialExpired:   {kind: models.EventExpired, format: models.FormatInterstitial, minArgs: 1},

	OnRewardedVideoLoaded:       {kind: models.EventLoaded, format: models.FormatRewardedVideo, minArgs: 1, fill: fillLoadTag},
	OnRewardedVideoFailed:       {kind: models.EventFailed, format: models.FormatRewardedVideo, minArgs: 2, fill: fillError},
	OnRewardedVideoExpired:      {kind: models.EventExpired, format: models.FormatRewardedVideo, minArgs: 1},
	OnRewardedVideoShown:        {kind: models.EventShown, format: models.FormatRewardedVideo, minArgs: 1},
	OnRewardedVideoClicked:      {kind: models.EventClicked, format: models.FormatRewardedVideo, minArgs: 1},
	OnRewardedVideoFailedToPlay: {kind: models.EventFailedToPlay, format: models.FormatRewardedVideo, minArgs: 2, fill: fillError},
	OnRewardedVideoReceivedReward: {kind: models.EventRewardReceived, format: models.FormatRewardedVideo, minArgs: 3, fill: func(ev *models.Event, args []string) error {
		ev.LoadID = optional(args, 3)
		amount, err := parseCount(args[2], 1)
		if err != nil {
			return fmt.Errorf("reward amount %q: %w", args[2], err)
		}
		ev.Reward = models.Reward{Label: args[1], Amount: amount}
		return nil
	}},
	OnRewardedVideoClosed:             {kind: models.EventDismissed, format: models.FormatRewardedVideo, minArgs: 1},
	OnRewardedVideoLeavingApplication: {kind: models.EventLeavingApplication, format: models.FormatRewardedVideo, minArgs: 1},

	OnImpressionTracked: {kind: models.EventImpressionTracked, minArgs: 2, fill: func(ev *models.Event, args []string) error {
		ev.ImpressionData = args[1]
		return nil
	}},
}

func fillError(ev *models.Event, args []string) error {
	ev.Error = args[1]
	ev.LoadID = optional(args, 2)
	return nil
}

func fillLoadTag(ev *models.Event, args []string) error {
	ev.LoadID = optional(args, 1)
	return nil
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// maxCount bounds heights and reward amounts so they fit an int32 on every
// platform.
const maxCount = math.MaxInt32

// parseCount parses a whole number in [floor, maxCount]. Integral float
// renderings ("50.0") are accepted; fractions, NaN and infinities are not.
func parseCount(s string, floor int) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedNumber, ferr)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < float64(floor) || f > maxCount {
			return 0, fmt.Errorf("%w: %s is not a whole number in [%d, %d]", ErrMalformedNumber, s, floor, maxCount)
		}
		n = int(f)
	}
	if n < floor || n > maxCount {
		return 0, fmt.Errorf("%w: %d out of range [%d, %d]", ErrMalformedNumber, n, floor, maxCount)
	}
	return n, nil
}

// MinArgs returns the minimum argument count of a callback, or false when the
// name is unknown.
func MinArgs(name string) (int, bool) {
	d, ok := decoders[name]
	return d.minArgs, ok
}

// Translate decodes one native callback into an Event.
//
// Short payloads are padded and reported through the returned error while the
// event is still usable. A numeric argument that fails to parse does not
// propagate: the event is replaced by a synthetic failure for the same ad unit
// and load tag, and the parse error is returned for logging.
func Translate(msg Message) (models.Event, error) {
	d, ok := decoders[msg.Name]
	if !ok {
		return models.Event{Name: msg.Name}, fmt.Errorf("%w: %s", ErrUnknownEvent, msg.Name)
	}

	args, decodeErr := DecodeArgs(msg.Payload, d.minArgs)
	ev := models.Event{
		Kind:     d.kind,
		Format:   d.format,
		AdUnitID: models.AdUnitID(args[0]),
		Name:     msg.Name,
	}
	if d.fill == nil {
		return ev, decodeErr
	}
	if err := d.fill(&ev, args); err != nil {
		failure := models.Event{
			Kind:      models.EventFailed,
			Format:    d.format,
			AdUnitID:  ev.AdUnitID,
			LoadID:    ev.LoadID,
			Name:      failedFor[d.format],
			Error:     err.Error(),
			Synthetic: true,
		}
		if decodeErr != nil {
			return failure, fmt.Errorf("%s: %w (%v)", msg.Name, err, decodeErr)
		}
		return failure, fmt.Errorf("%s: %w", msg.Name, err)
	}
	return ev, decodeErr
}

// EncodeRewards renders a reward list for OnRewardedVideoRewardsAvailable.
func EncodeRewards(rewards []models.Reward) string {
	if rewards == nil {
		rewards = []models.Reward{}
	}
	b, err := json.Marshal(rewards)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeRewards parses a reward list, dropping invalid entries.
func DecodeRewards(s string) ([]models.Reward, error) {
	var rewards []models.Reward
	if s == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(s), &rewards); err != nil {
		return nil, fmt.Errorf("decode rewards: %w", err)
	}
	valid := rewards[:0]
	for _, r := range rewards {
		if r.IsValid() {
			valid = append(valid, r)
		}
	}
	return valid, nil
}
