package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cropadvisor/internal/errors"
	"cropadvisor/internal/ingest"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mc := s.deps.Model
	if mc == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "no model loaded"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:            "ok",
		ModelID:           mc.ID.String(),
		ModelVersion:      mc.Version,
		Crops:             mc.Crops.Crops(),
		ClassifierColumns: len(mc.Classifier.Columns()),
		RegressorColumns:  len(mc.Regressor.Columns()),
	})
}

// handleCropRecommendation answers which crop best fits the readings.
func (s *Server) handleCropRecommendation(w http.ResponseWriter, r *http.Request) {
	obs, err := ingest.DecodeJSON(r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sel, err := s.deps.Advisor.SelectCrop(r.Context(), obs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCropResponse(sel))
}

// handleRecommendations analyses the current crop.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	obs, err := ingest.DecodeJSON(r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.deps.Advisor.GenerateReport(r.Context(), obs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(report))
}

// handleRecommendationsHTML renders the combined advice as an HTML fragment.
func (s *Server) handleRecommendationsHTML(w http.ResponseWriter, r *http.Request) {
	obs, err := ingest.DecodeJSON(r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.deps.Advisor.Advise(r.Context(), obs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(RenderHTML(ReportMarkdown(report)))
}

func (s *Server) handleDosage(w http.ResponseWriter, r *http.Request) {
	obs, err := ingest.DecodeJSON(r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if obs.CurrentCrop.IsEmpty() {
		s.writeError(w, errors.ValidationError("Current_Crop is required for dosage optimization"))
		return
	}

	best, err := s.deps.Optimizer.Optimize(r.Context(), obs, obs.CurrentCrop)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

func (s *Server) handlePlotRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		s.writeError(w, errors.InvalidInput("user id must be an integer"))
		return
	}

	plots, err := s.deps.Plots.LatestObservations(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	advice, err := s.deps.Advisor.AdvisePlots(r.Context(), plots)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}
