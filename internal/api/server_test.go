package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-mcp-server/internal/config"
	"github.com/pharmacy-mcp-server/internal/his"
	"github.com/pharmacy-mcp-server/internal/knowledge"
	"github.com/pharmacy-mcp-server/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()

	configManager, err := config.NewManager()
	require.NoError(t, err)

	formulary := knowledge.NewFormulary(logger)
	renal := knowledge.NewRenalDosing(logger)
	hisClient := his.NewMockClient(logger)
	prescription := service.NewPrescriptionService(formulary, renal, hisClient, nil, logger)
	dosage := service.NewDosageService(logger)
	interaction := service.NewInteractionService(nil, logger)

	return NewServer(configManager, prescription, dosage, interaction, nil, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestValidateOrder_Valid(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/orders/validate", map[string]interface{}{
		"drug_code": "ASPIR-TAB",
		"dose":      100,
		"dose_unit": "mg",
		"route":     "PO",
		"frequency": "QD",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	validation := body["validation"].(map[string]interface{})
	assert.True(t, validation["valid"].(bool))
}

func TestValidateOrder_UnknownDrug(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/orders/validate", map[string]interface{}{
		"drug_code": "NOPE-999",
		"dose":      100,
		"dose_unit": "mg",
		"route":     "PO",
		"frequency": "QD",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	validation := body["validation"].(map[string]interface{})
	assert.False(t, validation["valid"].(bool))
}

func TestValidateOrder_MissingFields(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/orders/validate", map[string]interface{}{
		"drug_code": "ASPIR-TAB",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitOrder_WarningsRequireOverride(t *testing.T) {
	s := newTestServer(t)

	payload := map[string]interface{}{
		"patient_id":   "P001",
		"drug_code":    "WARF-TAB",
		"dose":         5,
		"dose_unit":    "mg",
		"route":        "PO",
		"frequency":    "QD",
		"physician_id": "DR001",
	}

	rec := doJSON(t, s, http.MethodPost, "/api/v1/orders", payload)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec)
	order := body["order"].(map[string]interface{})
	assert.False(t, order["success"].(bool))
	assert.Contains(t, order["message"].(string), "override_warnings")

	payload["override_warnings"] = true
	rec = doJSON(t, s, http.MethodPost, "/api/v1/orders", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	body = decodeBody(t, rec)
	order = body["order"].(map[string]interface{})
	assert.True(t, order["success"].(bool))
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, order["order_id"].(string))
}

func TestDiscontinueOrder_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/orders/ORD-00000000-DEADBEEF/discontinue",
		map[string]interface{}{"reason": "adverse reaction"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchFormulary(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/formulary?q=vanco", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])

	items := body["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, "VANCO-INJ", first["drug_code"])
}

func TestSearchFormulary_MissingQuery(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/formulary", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDrug_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/formulary/NOPE-999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenalAdjustment_Contraindicated(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/formulary/METFOR-TAB/renal-adjustment?crcl=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	adjustment := body["adjustment"].(map[string]interface{})
	assert.True(t, adjustment["contraindicated"].(bool))
}

func TestRenalAdjustment_BadCrCl(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/formulary/METFOR-TAB/renal-adjustment?crcl=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateCrCl(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/calculations/crcl", map[string]interface{}{
		"age_years":        75,
		"weight_kg":        60,
		"serum_creatinine": 1.8,
		"sex":              "male",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	crcl := body["crcl"].(map[string]interface{})
	assert.InDelta(t, 30.1, crcl["creatinine_clearance"].(float64), 0.001)
}

func TestCheckInteractions(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/interactions/check", map[string]interface{}{
		"drugs": []string{"warfarin", "aspirin"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	result := body["interactions"].(map[string]interface{})
	assert.NotEmpty(t, result["interactions"])
}

func TestGetPatient(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/patients/P001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	patient := body["patient"].(map[string]interface{})
	assert.Equal(t, "P001", patient["patient_id"])
}

func TestGetPatient_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/patients/P999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHistory_Unconfigured(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/orders/ORD-00000000-DEADBEEF/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOrderStream_ReceivesEvents(t *testing.T) {
	s := newTestServer(t)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/orders/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Wait until the hub has registered the client before publishing.
	require.Eventually(t, func() bool {
		return s.Events().ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	s.Events().Publish(OrderEvent{
		Type:      EventOrderSubmitted,
		OrderID:   "ORD-20260828-0000ABCD",
		PatientID: "P001",
		DrugCode:  "ASPIR-TAB",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event OrderEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, EventOrderSubmitted, event.Type)
	assert.Equal(t, "ORD-20260828-0000ABCD", event.OrderID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestOrderStream_NonWebSocketRequestRejected(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/orders/stream", nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
