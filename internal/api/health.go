package api

import (
	"net/http"
	"strconv"
	"time"
)

type healthResponse struct {
	Status         string `json:"status"`
	SdkInitialized bool   `json:"sdk_initialized"`
	AdUnits        int    `json:"ad_units"`
}

// HealthHandler responds with a simple status check.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "health"
	const method = "GET"

	resp := healthResponse{Status: "ok"}
	if s.Coordinator != nil {
		resp.SdkInitialized = s.Coordinator.IsSdkInitialized()
		resp.AdUnits = len(s.Coordinator.Units())
	}
	writeJSON(w, http.StatusOK, resp)

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
