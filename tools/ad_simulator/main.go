// Command ad_simulator drives a running mediation server over HTTP. Each
// cycle requests every configured ad unit, waits for it to load, shows it and
// tears it down, printing aggregated counts at the end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	server     string
	unitCSV    string
	cycles     int
	conc       int
	loadWait   time.Duration
	pickReward bool
	debug      bool
)

var logger *zap.Logger

var httpClient *http.Client

var (
	countRequested uint64
	countLoaded    uint64
	countFailed    uint64
	countShown     uint64
	countErrors    uint64
)

func main() {
	flag.StringVar(&server, "server", "http://localhost:8788", "mediation server base URL")
	flag.StringVar(&unitCSV, "units", "", "comma-separated ad unit ids (default: every registered unit)")
	flag.IntVar(&cycles, "cycles", 10, "request/show cycles per ad unit")
	flag.IntVar(&conc, "concurrency", 4, "ad units driven in parallel")
	flag.DurationVar(&loadWait, "load-wait", 5*time.Second, "how long to wait for a load")
	flag.BoolVar(&pickReward, "pick-reward", true, "select the largest offered reward before showing rewarded videos")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "ad-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	httpClient = &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			Dial: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).Dial,
			MaxIdleConnsPerHost: conc,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	units, err := resolveUnits()
	if err != nil {
		logger.Fatal("list ad units", zap.Error(err))
	}
	if len(units) == 0 {
		logger.Fatal("no ad units to drive")
	}

	sem := make(chan struct{}, conc)
	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		sem <- struct{}{}
		go func(u models.AdUnitSnapshot) {
			defer wg.Done()
			defer func() { <-sem }()
			for i := 0; i < cycles; i++ {
				cycle(u)
			}
		}(u)
	}
	wg.Wait()

	logger.Info("simulation finished",
		zap.Uint64("requested", atomic.LoadUint64(&countRequested)),
		zap.Uint64("loaded", atomic.LoadUint64(&countLoaded)),
		zap.Uint64("failed", atomic.LoadUint64(&countFailed)),
		zap.Uint64("shown", atomic.LoadUint64(&countShown)),
		zap.Uint64("errors", atomic.LoadUint64(&countErrors)))
}

func resolveUnits() ([]models.AdUnitSnapshot, error) {
	var all []models.AdUnitSnapshot
	if err := call(http.MethodGet, "/units", nil, &all); err != nil {
		return nil, err
	}
	if unitCSV == "" {
		return all, nil
	}
	want := map[string]bool{}
	for _, id := range strings.Split(unitCSV, ",") {
		want[strings.TrimSpace(id)] = true
	}
	var out []models.AdUnitSnapshot
	for _, u := range all {
		if want[string(u.ID)] {
			out = append(out, u)
		}
	}
	return out, nil
}

// unitState mirrors the JSON snapshot; State is read back as its name.
type unitState struct {
	ID     string `json:"ad_unit_id"`
	Format string `json:"format"`
	State  string `json:"state"`
}

func cycle(u models.AdUnitSnapshot) {
	path := "/units/" + string(u.ID)
	log := logger.With(zap.String("ad_unit_id", string(u.ID)), zap.Stringer("format", u.Format))

	if u.Format == models.FormatNative {
		return
	}

	var st unitState
	if err := call(http.MethodPost, path+"/request", map[string]any{"keywords": "simulator"}, &st); err != nil {
		log.Warn("request failed", zap.Error(err))
		atomic.AddUint64(&countErrors, 1)
		return
	}
	atomic.AddUint64(&countRequested, 1)

	state, err := waitFor(path, loadWait, "loaded", "failed")
	if err != nil {
		log.Warn("load wait", zap.Error(err))
		atomic.AddUint64(&countErrors, 1)
		return
	}
	if state == "failed" {
		atomic.AddUint64(&countFailed, 1)
		log.Debug("load failed")
		return
	}
	atomic.AddUint64(&countLoaded, 1)

	if u.Format == models.FormatRewardedVideo && pickReward {
		var rewards []models.Reward
		if err := call(http.MethodGet, path+"/rewards", nil, &rewards); err == nil && len(rewards) > 0 {
			best := rewards[0]
			for _, r := range rewards[1:] {
				if r.Amount > best.Amount {
					best = r
				}
			}
			_ = call(http.MethodPost, path+"/reward", best, nil)
		}
	}

	if err := call(http.MethodPost, path+"/show", map[string]any{"custom_data": "simulator"}, &st); err != nil {
		log.Warn("show failed", zap.Error(err))
		atomic.AddUint64(&countErrors, 1)
		return
	}
	atomic.AddUint64(&countShown, 1)
	log.Debug("shown", zap.String("state", st.State))

	switch u.Format {
	case models.FormatBanner:
		_ = call(http.MethodPost, path+"/show", map[string]any{"show": false}, nil)
		_ = call(http.MethodPost, path+"/destroy", nil, nil)
	default:
		// interstitials and videos finish on their own; destroy is harmless if they already did
		if _, err := waitFor(path, loadWait, "destroyed"); err != nil {
			_ = call(http.MethodPost, path+"/destroy", nil, nil)
		}
	}
}

func waitFor(path string, timeout time.Duration, states ...string) (string, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var st unitState
		if err := call(http.MethodGet, path, nil, &st); err != nil {
			return "", err
		}
		for _, s := range states {
			if st.State == s {
				return s, nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return "", fmt.Errorf("timed out waiting for %v", states)
}

func call(method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, server+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
