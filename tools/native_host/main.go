// Command native_host stands in for a platform SDK on the Redis bridge. It
// answers bridge commands with the callbacks a real SDK would emit, so the
// android and ios backends can be exercised without a device.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/callbacks"
	"github.com/patrickwarner/admediator/internal/config"
	"github.com/patrickwarner/admediator/internal/db"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	redisAddr string
	platform  string
	prefix    string
	height    int
	failRate  float64
	debug     bool
)

var logger *zap.Logger

type host struct {
	store        *db.RedisStore
	events       string
	rewards      []models.Reward
	mu           sync.Mutex
	selected     map[string]models.Reward
	consent      models.ConsentStatus
	shouldFailFn func() bool
}

func main() {
	cfg := config.Load()

	flag.StringVar(&redisAddr, "redis", cfg.RedisAddr, "redis address")
	flag.StringVar(&platform, "platform", "android", "platform channel to serve (android or ios)")
	flag.StringVar(&prefix, "prefix", cfg.BridgeChannelPrefix, "bridge channel prefix")
	flag.IntVar(&height, "height", cfg.MockBannerHeight, "banner height reported on load")
	flag.Float64Var(&failRate, "fail-rate", 0, "probability that a load fails")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "native-host")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	store, err := db.InitRedis(redisAddr, logger)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	h := &host{
		store:    store,
		events:   fmt.Sprintf("%s:%s:events", prefix, platform),
		rewards:  cfg.MockRewards,
		selected: make(map[string]models.Reward),
		shouldFailFn: func() bool {
			return failRate > 0 && rand.Float64() < failRate
		},
	}

	commands := fmt.Sprintf("%s:%s:commands", prefix, platform)
	sub := store.Client.Subscribe(store.Ctx, commands)
	defer func() { _ = sub.Close() }()
	if _, err := sub.Receive(store.Ctx); err != nil {
		logger.Fatal("subscribe", zap.String("channel", commands), zap.Error(err))
	}
	logger.Info("native host ready",
		zap.String("commands", commands),
		zap.String("events", h.events))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	msgs := sub.Channel()
	for {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var cmd backend.Command
			if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
				logger.Warn("bad command", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			h.handle(cmd)
		}
	}
}

func (h *host) emit(name string, args ...string) {
	payload, err := json.Marshal(callbacks.NewMessage(name, args...))
	if err != nil {
		logger.Error("encode callback", zap.Error(err))
		return
	}
	if err := h.store.Publish(h.events, payload); err != nil {
		logger.Error("publish callback", zap.String("event", name), zap.Error(err))
		return
	}
	logger.Debug("callback sent", zap.String("event", name), zap.Strings("args", args))
}

func (h *host) handle(cmd backend.Command) {
	id := cmd.AdUnitID
	logger.Debug("command received",
		zap.String("op", cmd.Op),
		zap.String("ad_unit_id", id),
		zap.String("load_id", cmd.LoadID))

	switch cmd.Op {
	case "initialize":
		h.emit(callbacks.OnSdkInitialized, id)

	case "request_banner":
		if h.shouldFailFn() {
			h.emit(callbacks.OnAdFailed, id, "no fill", cmd.LoadID)
			return
		}
		h.emit(callbacks.OnAdLoaded, id, strconv.Itoa(height), cmd.LoadID)
	case "refresh_banner":
		h.emit(callbacks.OnAdLoaded, id, strconv.Itoa(height))

	case "request_interstitial":
		if h.shouldFailFn() {
			h.emit(callbacks.OnInterstitialFailed, id, "no fill", cmd.LoadID)
			return
		}
		h.emit(callbacks.OnInterstitialLoaded, id, cmd.LoadID)
	case "show_interstitial":
		h.emit(callbacks.OnInterstitialShown, id)
		h.emit(callbacks.OnImpressionTracked, id, `{"adunit_id":"`+id+`"}`)
		h.emit(callbacks.OnInterstitialDismissed, id)

	case "request_rewarded_video":
		if h.shouldFailFn() {
			h.emit(callbacks.OnRewardedVideoFailed, id, "no fill", cmd.LoadID)
			return
		}
		h.emit(callbacks.OnRewardedVideoRewardsAvailable, id, callbacks.EncodeRewards(h.rewards))
		h.emit(callbacks.OnRewardedVideoLoaded, id, cmd.LoadID)
	case "select_reward":
		label, _ := cmd.Params["label"].(string)
		amount, _ := cmd.Params["amount"].(float64)
		h.mu.Lock()
		h.selected[id] = models.Reward{Label: label, Amount: int(amount)}
		h.mu.Unlock()
	case "show_rewarded_video":
		h.mu.Lock()
		reward, ok := h.selected[id]
		delete(h.selected, id)
		h.mu.Unlock()
		if !ok && len(h.rewards) > 0 {
			reward = h.rewards[0]
		}
		h.emit(callbacks.OnRewardedVideoShown, id)
		if reward.IsValid() {
			h.emit(callbacks.OnRewardedVideoReceivedReward, id, reward.Label, strconv.Itoa(reward.Amount))
		}
		h.emit(callbacks.OnRewardedVideoClosed, id)

	case "grant_consent", "revoke_consent":
		next := models.ConsentConsented
		if strings.HasPrefix(cmd.Op, "revoke") {
			next = models.ConsentDenied
		}
		h.mu.Lock()
		prev := h.consent
		h.consent = next
		h.mu.Unlock()
		if prev != next {
			h.emit(callbacks.OnConsentStatusChanged, prev.String(), next.String(),
				strconv.FormatBool(next == models.ConsentConsented))
		}

	case "show_banner", "destroy_banner", "destroy_interstitial", "enable_location", "set_log_level":
		// no callback
	default:
		logger.Warn("unknown command", zap.String("op", cmd.Op))
	}
}
