package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/events"
	"github.com/patrickwarner/admediator/internal/mediation"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	srv     *Server
	coord   *mediation.Coordinator
	mock    *backend.MockBackend
	metrics *observability.MockMetricsRegistry
	handler http.Handler
}

func newTestEnv(t *testing.T, initialize bool) *testEnv {
	t.Helper()
	queue := events.NewQueue()
	metrics := observability.NewMockMetricsRegistry()
	mock := backend.NewMockBackend(backend.Deps{Sink: queue, Metrics: metrics})
	mock.SetRewards("rewarded", []models.Reward{{Label: "coins", Amount: 10}, {Label: "coins", Amount: 50}})
	coord := mediation.New(mediation.Deps{Backend: mock, Queue: queue, Metrics: metrics})
	if initialize {
		require.NoError(t, coord.InitializeSdk(context.Background(), models.SdkConfiguration{AdUnitID: "banner"}))
		coord.LoadPlugins(models.FormatBanner, "banner")
		coord.LoadPlugins(models.FormatRewardedVideo, "rewarded")
		coord.Pump()
	}
	srv := NewServer(zap.NewNop(), coord, metrics)
	return &testEnv{srv: srv, coord: coord, mock: mock, metrics: metrics, handler: srv.Router()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, true)
	rec, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["sdk_initialized"])
	assert.EqualValues(t, 2, body["ad_units"])
	assert.Equal(t, 1, env.metrics.Count("requests", "health", "GET", "200"))
}

func TestUnitRoutesBeforeInitialization(t *testing.T) {
	env := newTestEnv(t, false)
	for _, path := range []string{"/units/banner/request", "/units/banner/show", "/units/banner/destroy", "/units/banner/reward"} {
		rec, _ := env.do(t, http.MethodPost, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
	rec, _ := env.do(t, http.MethodGet, "/units/banner/rewards", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownUnit(t *testing.T) {
	env := newTestEnv(t, true)
	rec, body := env.do(t, http.MethodGet, "/units/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown ad unit", body["error"])

	rec, _ = env.do(t, http.MethodPost, "/units/nope/request", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBannerFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t, true)

	rec, body := env.do(t, http.MethodPost, "/units/banner/request", `{"keywords":"sports","banner":{"width":320,"height":50,"position":"bottom_center"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "requested", body["state"])
	env.coord.Pump()

	rec, body = env.do(t, http.MethodPost, "/units/banner/show", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shown", body["state"])
	assert.Equal(t, true, body["visible"])

	rec, body = env.do(t, http.MethodPost, "/units/banner/show", `{"show":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loaded", body["state"])
	assert.Equal(t, false, body["visible"])

	rec, body = env.do(t, http.MethodPost, "/units/banner/destroy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uninitialized", body["state"])
}

func TestRewardRoutes(t *testing.T) {
	env := newTestEnv(t, true)
	env.do(t, http.MethodPost, "/units/rewarded/request", "")
	env.coord.Pump()

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/units/rewarded/rewards", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rewards []models.Reward
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rewards))
	assert.Equal(t, []models.Reward{{Label: "coins", Amount: 10}, {Label: "coins", Amount: 50}}, rewards)

	resp, _ := env.do(t, http.MethodPost, "/units/rewarded/reward", `{"label":"coins","amount":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp, body := env.do(t, http.MethodPost, "/units/rewarded/reward", `{"label":"coins","amount":50}`)
	require.Equal(t, http.StatusOK, resp.Code)
	selected := body["selected_reward"].(map[string]interface{})
	assert.EqualValues(t, 50, selected["amount"])

	var granted models.Reward
	env.coord.Subscribe(models.EventRewardReceived, func(ev models.Event) { granted = ev.Reward })
	resp, _ = env.do(t, http.MethodPost, "/units/rewarded/show", `{"custom_data":"player-7"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	env.coord.Pump()
	assert.Equal(t, models.Reward{Label: "coins", Amount: 50}, granted)
}

func TestInvalidJSONBody(t *testing.T) {
	env := newTestEnv(t, true)
	rec, body := env.do(t, http.MethodPost, "/units/banner/request", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid json", body["error"])
	assert.Equal(t, 0, env.mock.CountCalls("request_banner", "banner"))
}

func TestListUnits(t *testing.T) {
	env := newTestEnv(t, true)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/units", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var units []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &units))
	require.Len(t, units, 2)
	assert.Equal(t, "banner", units[0]["ad_unit_id"])
	assert.Equal(t, "rewarded_video", units[1]["format"])
}
