package mediation

import (
	"errors"

	"github.com/patrickwarner/admediator/internal/adunit"
	"github.com/patrickwarner/admediator/internal/callbacks"
	"github.com/patrickwarner/admediator/internal/models"

	"go.uber.org/zap"
)

// handle decodes and applies one redelivered callback, then publishes it to
// listeners if the record accepted it. Decode problems never escape: short
// payloads are used padded, unparsable numbers arrive as synthetic failures.
func (c *Coordinator) handle(msg callbacks.Message) {
	ev, err := callbacks.Translate(msg)
	if err != nil {
		if errors.Is(err, callbacks.ErrUnknownEvent) {
			c.logger.Warn("ignoring unknown callback", zap.String("event", msg.Name))
			c.metrics.IncrementCallbacks(msg.Name, "unknown_event")
			return
		}
		c.logger.Error("malformed callback payload",
			zap.String("event", msg.Name),
			zap.String("payload", msg.Payload),
			zap.Bool("synthetic_failure", ev.Synthetic),
			zap.Error(err))
		c.metrics.IncrementCallbacks(msg.Name, "malformed")
	}

	outcome := c.apply(ev)
	c.metrics.IncrementCallbacks(msg.Name, outcome)
	if outcome != adunit.OutcomeAccepted {
		c.logger.Warn("dropping callback",
			zap.String("event", msg.Name),
			zap.String("ad_unit_id", string(ev.AdUnitID)),
			zap.String("outcome", outcome))
		return
	}
	c.bus.Publish(ev)
}

func (c *Coordinator) apply(ev models.Event) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case models.EventSdkInitialized:
		if !c.initialized {
			c.logger.Info("SDK initialized", zap.String("ad_unit_id", string(ev.AdUnitID)))
		}
		c.initialized = true
		return adunit.OutcomeAccepted
	case models.EventConsentChanged:
		c.logger.Info("consent status changed",
			zap.Stringer("old", ev.OldConsent),
			zap.Stringer("new", ev.NewConsent),
			zap.Bool("can_collect_personal_info", ev.CanCollectPersonalInfo))
		return adunit.OutcomeAccepted
	}

	u, ok := c.registry.Lookup(ev.AdUnitID)
	if !ok {
		return adunit.OutcomeUnknownUnit
	}
	return u.Apply(ev)
}
