package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/errors"
)

// CodeTimeout is reported when a request outlives its deadline.
const CodeTimeout = "TIMEOUT"

type errorBody struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// cropRecommendationResponse is the best-fit crop answer. Scores are 0-100
// with one decimal.
type cropRecommendationResponse struct {
	Crop               agronomy.Crop `json:"crop"`
	MLConfidence       float64       `json:"ml_confidence"`
	CompatibilityScore float64       `json:"compatibility_score"`
	Fallback           bool          `json:"fallback,omitempty"`
}

// cropComparisonResponse adds the yield comparison when a current crop was given.
type cropComparisonResponse struct {
	cropRecommendationResponse
	PredictedYieldRecommended *float64             `json:"predicted_yield_recommended_crop"`
	PredictedYieldCurrent     *float64             `json:"predicted_yield_current_crop"`
	Comparison                *agronomy.Comparison `json:"comparison"`
}

type reportResponse struct {
	CurrentCrop     *string  `json:"current_crop"`
	CurrentYield    *float64 `json:"current_yield"`
	Recommendations []string `json:"recommendations"`
}

type healthResponse struct {
	Status            string          `json:"status"`
	ModelID           string          `json:"model_id"`
	ModelVersion      string          `json:"model_version"`
	Crops             []agronomy.Crop `json:"crops"`
	ClassifierColumns int             `json:"classifier_columns"`
	RegressorColumns  int             `json:"regressor_columns"`
}

func newCropResponse(sel agronomy.CropSelection) interface{} {
	base := cropRecommendationResponse{
		Crop:               sel.Crop,
		MLConfidence:       round1(sel.Confidence * 100),
		CompatibilityScore: round1(sel.CompatibilityScore),
		Fallback:           sel.Fallback,
	}
	if sel.CurrentCrop.IsEmpty() {
		return base
	}
	return cropComparisonResponse{
		cropRecommendationResponse: base,
		PredictedYieldRecommended:  sel.PredictedYieldRecommend,
		PredictedYieldCurrent:      sel.PredictedYieldCurrent,
		Comparison:                 sel.Comparison,
	}
}

func newReportResponse(report agronomy.RecommendationReport) reportResponse {
	resp := reportResponse{CurrentYield: report.CurrentYield, Recommendations: report.Recommendations}
	if !report.CurrentCrop.IsEmpty() {
		crop := string(report.CurrentCrop)
		resp.CurrentCrop = &crop
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"code":"INTERNAL_ERROR","message":"failed to encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError maps an error's code to a status and writes the error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed (%s): %v", code, err)
	} else {
		s.logger.Debug("request rejected (%s): %v", code, err)
	}
	writeJSON(w, status, errorBody{Error: apiError{Code: code, Message: err.Error()}})
}

func classify(err error) (int, string) {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, CodeTimeout
	}
	switch {
	case errors.IsCode(err, errors.CodeValidationError):
		return http.StatusBadRequest, errors.CodeValidationError
	case errors.IsCode(err, errors.CodeInvalidInput):
		return http.StatusBadRequest, errors.CodeInvalidInput
	case errors.IsCode(err, errors.CodeUnknownCrop):
		return http.StatusUnprocessableEntity, errors.CodeUnknownCrop
	case errors.IsCode(err, errors.CodeModelInference):
		return http.StatusServiceUnavailable, errors.CodeModelInference
	case errors.IsCode(err, errors.CodeNotFound):
		return http.StatusNotFound, errors.CodeNotFound
	case errors.IsCode(err, errors.CodeDatabaseError):
		return http.StatusServiceUnavailable, errors.CodeDatabaseError
	}
	return http.StatusInternalServerError, errors.CodeInternalError
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
