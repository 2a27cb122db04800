package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickwarner/admediator/internal/middleware"
	"github.com/patrickwarner/admediator/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("admediator")

// observe records request count and latency once the handler returns.
func (s *Server) observe(endpoint, method string, start time.Time, status *int) {
	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(*status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

// ready answers 503 until the SDK reported initialization, so no facade
// call made from HTTP can hit the fatal path.
func (s *Server) ready(w http.ResponseWriter) bool {
	if s.Coordinator.IsSdkInitialized() {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "sdk not initialized"})
	return false
}

// unit resolves the {id} route variable, answering 404 for unknown ids.
func (s *Server) unit(w http.ResponseWriter, r *http.Request) (models.AdUnitSnapshot, bool) {
	id := models.AdUnitID(mux.Vars(r)["id"])
	snap, ok := s.Coordinator.Unit(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown ad unit"})
		return models.AdUnitSnapshot{}, false
	}
	return snap, true
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	defer func() {
		_ = r.Body.Close()
	}()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ListUnitsHandler handles GET /units.
func (s *Server) ListUnitsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer s.observe("units", "GET", start, &status)

	writeJSON(w, status, s.Coordinator.Units())
}

// GetUnitHandler handles GET /units/{id}.
func (s *Server) GetUnitHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer s.observe("unit", "GET", start, &status)

	snap, ok := s.unit(w, r)
	if !ok {
		status = http.StatusNotFound
		return
	}
	writeJSON(w, status, snap)
}

// RequestHandler handles POST /units/{id}/request. The body is an optional
// models.AdRequest; the load completes asynchronously.
func (s *Server) RequestHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusAccepted
	defer s.observe("request", "POST", start, &status)

	if !s.ready(w) {
		status = http.StatusServiceUnavailable
		return
	}
	snap, ok := s.unit(w, r)
	if !ok {
		status = http.StatusNotFound
		return
	}

	req := models.NewAdRequest()
	if err := decodeBody(r, &req); err != nil {
		status = http.StatusBadRequest
		writeJSON(w, status, errorResponse{Error: "invalid json"})
		return
	}

	_, span := tracer.Start(r.Context(), "adunit.request")
	span.SetAttributes(
		attribute.String("ad_unit_id", string(snap.ID)),
		attribute.String("format", snap.Format.String()),
	)
	s.Coordinator.Request(snap.ID, req)
	span.End()

	after, _ := s.Coordinator.Unit(snap.ID)
	middleware.LoggerFromRequest(r, s.Logger).Info("ad requested",
		zap.String("ad_unit_id", string(snap.ID)),
		zap.Stringer("state", after.State))
	writeJSON(w, status, after)
}

type showBody struct {
	Show       *bool  `json:"show"`
	CustomData string `json:"custom_data"`
}

// ShowHandler handles POST /units/{id}/show. {"show": false} hides a banner;
// custom_data is passed to rewarded videos.
func (s *Server) ShowHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer s.observe("show", "POST", start, &status)

	if !s.ready(w) {
		status = http.StatusServiceUnavailable
		return
	}
	snap, ok := s.unit(w, r)
	if !ok {
		status = http.StatusNotFound
		return
	}

	var body showBody
	if err := decodeBody(r, &body); err != nil {
		status = http.StatusBadRequest
		writeJSON(w, status, errorResponse{Error: "invalid json"})
		return
	}
	show := body.Show == nil || *body.Show

	_, span := tracer.Start(r.Context(), "adunit.show")
	span.SetAttributes(
		attribute.String("ad_unit_id", string(snap.ID)),
		attribute.Bool("show", show),
	)
	if snap.Format == models.FormatRewardedVideo && show {
		s.Coordinator.ShowRewardedVideo(snap.ID, body.CustomData)
	} else {
		s.Coordinator.Show(snap.ID, show)
	}
	span.End()

	after, _ := s.Coordinator.Unit(snap.ID)
	writeJSON(w, status, after)
}

// DestroyHandler handles POST /units/{id}/destroy.
func (s *Server) DestroyHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer s.observe("destroy", "POST", start, &status)

	if !s.ready(w) {
		status = http.StatusServiceUnavailable
		return
	}
	snap, ok := s.unit(w, r)
	if !ok {
		status = http.StatusNotFound
		return
	}
	s.Coordinator.Destroy(snap.ID)

	after, _ := s.Coordinator.Unit(snap.ID)
	writeJSON(w, status, after)
}

// RewardsHandler handles GET /units/{id}/rewards.
func (s *Server) RewardsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer s.observe("rewards", "GET", start, &status)

	if !s.ready(w) {
		status = http.StatusServiceUnavailable
		return
	}
	snap, ok := s.unit(w, r)
	if !ok {
		status = http.StatusNotFound
		return
	}
	writeJSON(w, status, s.Coordinator.GetAvailableRewards(snap.ID))
}

// SelectRewardHandler handles POST /units/{id}/reward with a models.Reward body.
func (s *Server) SelectRewardHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer s.observe("reward", "POST", start, &status)

	if !s.ready(w) {
		status = http.StatusServiceUnavailable
		return
	}
	snap, ok := s.unit(w, r)
	if !ok {
		status = http.StatusNotFound
		return
	}

	var reward models.Reward
	if err := decodeBody(r, &reward); err != nil {
		status = http.StatusBadRequest
		writeJSON(w, status, errorResponse{Error: "invalid json"})
		return
	}
	if !reward.IsValid() {
		status = http.StatusUnprocessableEntity
		writeJSON(w, status, errorResponse{Error: "reward needs a label and a positive amount"})
		return
	}
	s.Coordinator.SelectReward(snap.ID, reward)

	after, _ := s.Coordinator.Unit(snap.ID)
	writeJSON(w, status, after)
}
