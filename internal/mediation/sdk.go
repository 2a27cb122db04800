package mediation

import (
	"github.com/patrickwarner/admediator/internal/models"

	"go.uber.org/zap"
)

// SdkConfiguration returns the configuration passed to InitializeSdk.
func (c *Coordinator) SdkConfiguration() models.SdkConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sdkConfig
}

func (c *Coordinator) EnableLocationSupport(enabled bool) {
	c.logger.Info("location support", zap.Bool("enabled", enabled))
	c.backend.EnableLocationSupport(enabled)
}

func (c *Coordinator) SetLogLevel(level models.LogLevel) {
	c.backend.SetLogLevel(level)
}

func (c *Coordinator) LogLevel() models.LogLevel {
	return c.backend.LogLevel()
}

func (c *Coordinator) CanCollectPersonalInfo() bool {
	return c.backend.CanCollectPersonalInfo()
}

func (c *Coordinator) CurrentConsentStatus() models.ConsentStatus {
	return c.backend.CurrentConsentStatus()
}

// GDPRApplies reports whether GDPR applies; known is false while undetermined.
func (c *Coordinator) GDPRApplies() (applies bool, known bool) {
	return c.backend.GDPRApplies()
}

// GrantConsent records the user's consent. The change is confirmed by a
// ConsentChanged event.
func (c *Coordinator) GrantConsent() {
	c.backend.GrantConsent()
}

func (c *Coordinator) RevokeConsent() {
	c.backend.RevokeConsent()
}
