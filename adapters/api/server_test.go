package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/advisor"
	"cropadvisor/internal/compat"
	"cropadvisor/internal/dosage"
	"cropadvisor/internal/errors"
	"cropadvisor/internal/features"
	"cropadvisor/internal/inference"
	"cropadvisor/internal/metrics"
	"cropadvisor/internal/testkit"
	"cropadvisor/ports"
)

const maizeBody = `{"N": 60, "P": 80, "K": 150, "pH": 7.0, "Temperature": 40, "Humidity": 90,
	"Rainfall": 300, "Soil_Type": "Sandy", "Current_Crop": "Maize", "Fertilizer": 100, "Pesticide": 10}`

type fakePlots struct {
	plots []ports.PlotObservation
	err   error
}

func (f fakePlots) LatestObservations(context.Context, int64) ([]ports.PlotObservation, error) {
	return f.plots, f.err
}

func newTestServer(t *testing.T, plots ports.PlotRepository) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mc := testkit.NewModelContext(testkit.DefaultClassifier(), testkit.DosageResponseModel())
	fb, err := features.NewBuilder(mc)
	require.NoError(t, err)
	scorer := compat.NewScorer(mc.References)
	regressor := inference.NewRegressor(mc, fb, m)
	optimizer := dosage.NewOptimizer(regressor, 4, nil, m)

	adv := advisor.New(advisor.Deps{
		Classifier: inference.NewClassifier(mc, fb, scorer, m),
		Regressor:  regressor,
		Optimizer:  optimizer,
		Scorer:     scorer,
		References: mc.References,
		Crops:      mc.Crops,
		Metrics:    m,
	}, advisor.DefaultOptions())

	return NewServer(Deps{
		Advisor:   adv,
		Optimizer: optimizer,
		Model:     mc,
		Plots:     plots,
		Gatherer:  reg,
	}, 0)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCropRecommendation_WithCurrentCrop(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodPost, "/api/v1/crop-recommendation", maizeBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode(t, rec)
	assert.Equal(t, "maize", got["crop"])
	assert.Equal(t, 80.0, got["ml_confidence"])
	assert.Equal(t, 100.0, got["compatibility_score"])
	assert.Equal(t, "Lower", got["comparison"])
	assert.InDelta(t, 4.5, got["predicted_yield_recommended_crop"], 1e-9)
	assert.InDelta(t, 4.5, got["predicted_yield_current_crop"], 1e-9)
	assert.NotContains(t, got, "fallback")
}

func TestCropRecommendation_WithoutCurrentCrop(t *testing.T) {
	body := `{"Nitrogen": 60, "Phosphorus": 80, "Potassium": 150, "pH_level": 7.0,
		"Temperature": 40, "Humidity": 90, "Rainfall": 300, "Soil_Type": "sandy"}`
	rec := do(t, newTestServer(t, nil), http.MethodPost, "/api/v1/crop-recommendation", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode(t, rec)
	assert.Equal(t, "maize", got["crop"])
	assert.NotContains(t, got, "comparison")
	assert.NotContains(t, got, "predicted_yield_current_crop")
}

func TestRecommendations(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodPost, "/api/v1/recommendations", maizeBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode(t, rec)
	assert.Equal(t, "maize", got["current_crop"])
	assert.Equal(t, 4.5, got["current_yield"])
	recs, ok := got["recommendations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, recs, 5)
	assert.Equal(t, "Estimated yield for current crop (maize): 4.50 units", recs[4])
}

func TestRecommendations_NoCurrentCropIsNull(t *testing.T) {
	body := `{"N": 100, "P": 50, "K": 100, "pH": 6.5, "Temperature": 25, "Humidity": 60, "Rainfall": 800, "Soil_Type": "Loamy"}`
	rec := do(t, newTestServer(t, nil), http.MethodPost, "/api/v1/recommendations", body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{"current_crop": null, "current_yield": null, "recommendations": []}`, rec.Body.String())
}

func TestRecommendationsHTML(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodPost, "/api/v1/recommendations/html", maizeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Recommendations for maize</h1>")
	assert.Contains(t, body, "<li>Low rainfall detected; consider irrigation or drought-tolerant crops.</li>")
	assert.Contains(t, body, "<table>")
}

func TestRecommendationsHTML_RequestTextStaysText(t *testing.T) {
	s := newTestServer(t, nil)
	for _, crop := range []string{
		`<img src=x onerror=alert(1)>`,
		`<script>alert(1)</script>`,
		`[click](javascript:alert(1))`,
	} {
		body := strings.Replace(maizeBody, `"Maize"`, strconv.Quote(crop), 1)
		rec := do(t, s, http.MethodPost, "/api/v1/recommendations/html", body)
		require.Equal(t, http.StatusOK, rec.Code, crop)

		page := rec.Body.String()
		assert.NotContains(t, page, "<img", crop)
		assert.NotContains(t, page, "<script", crop)
		assert.NotContains(t, page, `href="javascript`, crop)
	}

	body := strings.Replace(maizeBody, `"Maize"`, `"<b>x</b>"`, 1)
	rec := do(t, s, http.MethodPost, "/api/v1/recommendations/html", body)
	assert.Contains(t, rec.Body.String(), "Recommendations for &lt;b&gt;x&lt;/b&gt;</h1>")
}

func TestPostRequiresJSONContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/html", strings.NewReader(maizeBody))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestDosage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/v1/dosage", maizeBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"fertilizer": 150, "pesticide": 15, "predicted_yield": 5}`, rec.Body.String())

	unknown := strings.Replace(maizeBody, `"Maize"`, `"quinoa"`, 1)
	rec = do(t, s, http.MethodPost, "/api/v1/dosage", unknown)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "UNKNOWN_CROP", decode(t, rec)["error"].(map[string]interface{})["code"])

	noCrop := `{"N": 60, "P": 80, "K": 150, "pH": 7.0, "Temperature": 40, "Humidity": 90, "Rainfall": 300, "Soil_Type": "Sandy"}`
	rec = do(t, s, http.MethodPost, "/api/v1/dosage", noCrop)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/v1/crop-recommendation", "/api/v1/recommendations"} {
		rec := do(t, s, http.MethodPost, path, `{"N": "sixty", "P": 80}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)

		errBody := decode(t, rec)["error"].(map[string]interface{})
		assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
		assert.Contains(t, errBody["message"], "N must be numeric")
	}

	rec := do(t, s, http.MethodPost, "/api/v1/recommendations", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "ok", got["status"])
	assert.Len(t, got["crops"], 6)
	assert.Equal(t, float64(len(testkit.YieldColumns)), got["regressor_columns"])

	do(t, s, http.MethodPost, "/api/v1/recommendations", maizeBody)
	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cropadvisor_operation_duration_seconds_count{operation="generate_report"} 1`)
}

func TestPlotRecommendations(t *testing.T) {
	plots := fakePlots{plots: []ports.PlotObservation{
		{PlotID: "1", PlotName: "P1", Observation: testkit.MaizeScenario()},
		{PlotID: "2", Err: fmt.Errorf("no sensor reading")},
	}}
	s := newTestServer(t, plots)

	rec := do(t, s, http.MethodGet, "/api/v1/users/3/plots/recommendations", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var advice []advisor.PlotAdvice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &advice))
	require.Len(t, advice, 2)
	assert.Equal(t, agronomy.SeverityHigh, advice[0].Severity)
	assert.Equal(t, "no sensor reading", advice[1].Error)

	rec = do(t, s, http.MethodGet, "/api/v1/users/abc/plots/recommendations", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := newTestServer(t, fakePlots{err: errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("connection refused"))})
	rec = do(t, failing, http.MethodGet, "/api/v1/users/3/plots/recommendations", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPlotRecommendations_NotMountedWithoutRepository(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/api/v1/users/3/plots/recommendations", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{errors.ValidationError("x"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{errors.UnknownCrop("quinoa"), http.StatusUnprocessableEntity, "UNKNOWN_CROP"},
		{errors.Wrap(errors.ModelInference("regressor", fmt.Errorf("boom")), "report"), http.StatusServiceUnavailable, "MODEL_INFERENCE_ERROR"},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeTimeout},
		{fmt.Errorf("plain"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		status, code := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
