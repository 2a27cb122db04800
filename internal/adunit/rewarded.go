package adunit

import (
	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/models"

	"go.uber.org/zap"
)

func (a *AdUnit) RequestRewardedVideo(req models.AdRequest) {
	a.request("request_rewarded_video", models.FormatRewardedVideo, req, backend.Unit.RequestRewardedVideo)
}

func (a *AdUnit) HasRewardedVideo() bool {
	if a.null || a.format != models.FormatRewardedVideo || a.state != models.StateLoaded {
		return false
	}
	return a.unit.HasRewardedVideo()
}

// AvailableRewards returns the rewards cached when the video loaded, in the
// order the backend reported them. It is empty before the video loaded.
func (a *AdUnit) AvailableRewards() []models.Reward {
	const op = "get_available_rewards"
	if !a.usable(op, models.FormatRewardedVideo) {
		return []models.Reward{}
	}
	if a.state != models.StateLoaded && a.state != models.StateShown {
		a.notReady(op)
		return []models.Reward{}
	}
	return append([]models.Reward{}, a.rewards...)
}

// SelectReward stores the reward to grant on the next show. Invalid rewards
// are refused; a valid reward missing from the offered list is accepted and
// logged, the backend decides whether to honour it.
func (a *AdUnit) SelectReward(reward models.Reward) {
	const op = "select_reward"
	if !a.usable(op, models.FormatRewardedVideo) {
		return
	}
	if a.state != models.StateLoaded {
		a.notReady(op)
		return
	}
	if !reward.IsValid() {
		a.logger.Error("refusing invalid reward", zap.Stringer("reward", reward))
		a.metrics.IncrementRejectedOps(op, "invalid_reward")
		return
	}
	if !models.ContainsReward(a.rewards, reward) {
		a.logger.Warn("selected reward was not offered", zap.Stringer("reward", reward))
	}
	if err := a.unit.SelectReward(reward); err != nil {
		a.backendError(op, err)
		return
	}
	a.selected = reward
}

// ShowRewardedVideo plays a loaded video using the selected reward.
func (a *AdUnit) ShowRewardedVideo(customData string) {
	const op = "show_rewarded_video"
	if !a.usable(op, models.FormatRewardedVideo) {
		return
	}
	if a.state != models.StateLoaded {
		a.notReady(op)
		return
	}
	if err := a.unit.ShowRewardedVideo(customData); err != nil {
		a.backendError(op, err)
		return
	}
	a.transition(models.StateShown)
}

// DestroyRewardedVideo discards the backend object; a later request gets a
// fresh handle.
func (a *AdUnit) DestroyRewardedVideo() {
	a.destroy("destroy_rewarded_video", models.FormatRewardedVideo, func(backend.Unit) error {
		a.unit = nil
		return nil
	}, models.StateDestroyed)
}
