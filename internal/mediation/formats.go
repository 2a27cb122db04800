package mediation

import (
	"github.com/patrickwarner/admediator/internal/adunit"
	"github.com/patrickwarner/admediator/internal/models"
)

// RequestBanner loads a banner; width, height and position come from req.Banner.
func (c *Coordinator) RequestBanner(id models.AdUnitID, req models.AdRequest) {
	c.withUnit("request_banner", id, func(u *adunit.AdUnit) { u.RequestBanner(req) })
}

// ShowBanner shows or hides a loaded banner.
func (c *Coordinator) ShowBanner(id models.AdUnitID, show bool) {
	c.withUnit("show_banner", id, func(u *adunit.AdUnit) { u.ShowBanner(show) })
}

func (c *Coordinator) RefreshBanner(id models.AdUnitID, keywords, userDataKeywords string) {
	c.withUnit("refresh_banner", id, func(u *adunit.AdUnit) { u.RefreshBanner(keywords, userDataKeywords) })
}

func (c *Coordinator) DestroyBanner(id models.AdUnitID) {
	c.withUnit("destroy_banner", id, func(u *adunit.AdUnit) { u.DestroyBanner() })
}

func (c *Coordinator) RequestInterstitial(id models.AdUnitID, req models.AdRequest) {
	c.withUnit("request_interstitial", id, func(u *adunit.AdUnit) { u.RequestInterstitial(req) })
}

func (c *Coordinator) IsInterstitialReady(id models.AdUnitID) bool {
	var ready bool
	c.withUnit("is_interstitial_ready", id, func(u *adunit.AdUnit) { ready = u.IsInterstitialReady() })
	return ready
}

func (c *Coordinator) ShowInterstitial(id models.AdUnitID) {
	c.withUnit("show_interstitial", id, func(u *adunit.AdUnit) { u.ShowInterstitial() })
}

func (c *Coordinator) DestroyInterstitial(id models.AdUnitID) {
	c.withUnit("destroy_interstitial", id, func(u *adunit.AdUnit) { u.DestroyInterstitial() })
}

func (c *Coordinator) RequestRewardedVideo(id models.AdUnitID, req models.AdRequest) {
	c.withUnit("request_rewarded_video", id, func(u *adunit.AdUnit) { u.RequestRewardedVideo(req) })
}

func (c *Coordinator) HasRewardedVideo(id models.AdUnitID) bool {
	var has bool
	c.withUnit("has_rewarded_video", id, func(u *adunit.AdUnit) { has = u.HasRewardedVideo() })
	return has
}

// GetAvailableRewards returns the rewards offered by a loaded video, in
// backend order. The slice is a copy.
func (c *Coordinator) GetAvailableRewards(id models.AdUnitID) []models.Reward {
	var rewards []models.Reward
	c.withUnit("get_available_rewards", id, func(u *adunit.AdUnit) { rewards = u.AvailableRewards() })
	return rewards
}

// SelectReward stores the reward to grant when the video is next shown.
func (c *Coordinator) SelectReward(id models.AdUnitID, reward models.Reward) {
	c.withUnit("select_reward", id, func(u *adunit.AdUnit) { u.SelectReward(reward) })
}

func (c *Coordinator) ShowRewardedVideo(id models.AdUnitID, customData string) {
	c.withUnit("show_rewarded_video", id, func(u *adunit.AdUnit) { u.ShowRewardedVideo(customData) })
}
