package callbacks

// Native callback names. They match what the platform SDK bridges emit.
const (
	OnSdkInitialized       = "onSdkInitialized"
	OnConsentStatusChanged = "onConsentStatusChanged"

	OnAdLoaded    = "onAdLoaded"
	OnAdFailed    = "onAdFailed"
	OnAdClicked   = "onAdClicked"
	OnAdExpanded  = "onAdExpanded"
	OnAdCollapsed = "onAdCollapsed"

	OnInterstitialLoaded    = "onInterstitialLoaded"
	OnInterstitialFailed    = "onInterstitialFailed"
	OnInterstitialShown     = "onInterstitialShown"
	OnInterstitialClicked   = "onInterstitialClicked"
	OnInterstitialDismissed = "onInterstitialDismissed"
	OnInterstitialExpired   = "onInterstitialExpired"

	OnRewardedVideoLoaded             = "onRewardedVideoLoaded"
	OnRewardedVideoFailed             = "onRewardedVideoFailed"
	OnRewardedVideoExpired            = "onRewardedVideoExpired"
	OnRewardedVideoShown              = "onRewardedVideoShown"
	OnRewardedVideoClicked            = "onRewardedVideoClicked"
	OnRewardedVideoFailedToPlay       = "onRewardedVideoFailedToPlay"
	OnRewardedVideoReceivedReward     = "onRewardedVideoReceivedReward"
	OnRewardedVideoClosed             = "onRewardedVideoClosed"
	OnRewardedVideoLeavingApplication = "onRewardedVideoLeavingApplication"

	OnImpressionTracked = "onImpressionTracked"

	// OnRewardedVideoRewardsAvailable is only used between a native bridge
	// and the bridge backend; it never reaches the coordinator.
	OnRewardedVideoRewardsAvailable = "onRewardedVideoRewardsAvailable"
)
