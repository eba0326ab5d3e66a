package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanKun113/AN6007-dic/db"
	"github.com/HanKun113/AN6007-dic/internal/config"
	"github.com/HanKun113/AN6007-dic/internal/meters"
	"github.com/HanKun113/AN6007-dic/internal/model"
)

func setupTestServer(t *testing.T) (*Server, *sql.DB) {
	dbConn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	dbConn.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(dbConn))
	t.Cleanup(func() { dbConn.Close() })

	cfg := &config.Config{
		Port:                   8080,
		ReadingIntervalMinutes: 30,
		RetentionMonths:        2,
		Areas: []config.Area{
			{Name: "East", Dwellings: []string{"HDB", "Condominium"}},
		},
	}
	gen := meters.NewGenerator(dbConn, cfg.ReadingIntervalMinutes, cfg.RetentionMonths)
	return NewServer(dbConn, gen, cfg), dbConn
}

func doJSON(t *testing.T, server *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func registerMeter(t *testing.T, server *Server, meterID string) {
	w := doJSON(t, server, http.MethodPost, "/register", RegisterRequest{
		MeterID: meterID, Area: "East", Dwelling: "HDB",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCurrentTimeFreshDatabase(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/current_time", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CurrentTimeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2024-05-01", resp.CurrentSimulationTime.Date)
	assert.Equal(t, "00:00:00", resp.CurrentSimulationTime.Time)
	assert.Equal(t, "Wednesday", resp.CurrentSimulationTime.Weekday)
}

func TestMeterReadingRejectsInvalidValues(t *testing.T) {
	server, dbConn := setupTestServer(t)

	cases := []struct {
		name  string
		body  map[string]interface{}
		error string
	}{
		{"zero", map[string]interface{}{"value": 0, "unit": "days"}, "Value must be a positive integer"},
		{"negative", map[string]interface{}{"value": -2, "unit": "days"}, "Value must be a positive integer"},
		{"fractional", map[string]interface{}{"value": 1.5, "unit": "days"}, "Invalid value format"},
		{"non-numeric", map[string]interface{}{"value": "abc", "unit": "days"}, "Invalid value format"},
		{"bad unit", map[string]interface{}{"value": 1, "unit": "weeks"}, "invalid time unit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, server, http.MethodPost, "/meter_reading", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tc.error)
		})
	}

	simTime, err := db.GetSimTime(dbConn)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), simTime, "rejected commands must not move the clock")
}

func TestMeterReadingCollects(t *testing.T) {
	server, dbConn := setupTestServer(t)
	registerMeter(t, server, "123-456-789")

	w := doJSON(t, server, http.MethodPost, "/meter_reading", map[string]interface{}{
		"value": 1, "unit": "days",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result model.CollectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "2024-05-02T00:00:00", result.NewTime)
	assert.Greater(t, result.ReadingsCount, 0)
	assert.NotEmpty(t, result.SampleReadings)

	simTime, err := db.GetSimTime(dbConn)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC), simTime)
}

func TestMeterReadingDefaultsToOneDay(t *testing.T) {
	server, dbConn := setupTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/meter_reading", map[string]interface{}{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	simTime, err := db.GetSimTime(dbConn)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC), simTime)
}

func TestRegisterAndValidateMeter(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/validate_meter", ValidateMeterRequest{MeterID: "123-456-789"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	registerMeter(t, server, "123-456-789")

	w = doJSON(t, server, http.MethodPost, "/validate_meter", ValidateMeterRequest{MeterID: "123-456-789"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["success"])

	w = doJSON(t, server, http.MethodPost, "/validate_meter", ValidateMeterRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRejectsDuplicateAndBadFormat(t *testing.T) {
	server, _ := setupTestServer(t)
	registerMeter(t, server, "123-456-789")

	w := doJSON(t, server, http.MethodPost, "/register", RegisterRequest{
		MeterID: "123-456-789", Area: "East", Dwelling: "HDB",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Meter ID already exists", resp.Message)

	w = doJSON(t, server, http.MethodPost, "/register", RegisterRequest{
		MeterID: "12-34-56", Area: "East", Dwelling: "HDB",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonthlyHistoryMath(t *testing.T) {
	server, dbConn := setupTestServer(t)
	registerMeter(t, server, "123-456-789")

	tx, err := db.StartTransaction(dbConn)
	require.NoError(t, err)
	require.NoError(t, db.InsertMonthSummaryWithTx(tx, model.MonthSummary{
		MeterID: "123-456-789", Month: "2024-05", FirstValue: 0, LastValue: 120.0, Days: 31,
	}))
	require.NoError(t, db.CommitTransaction(tx))

	w := doJSON(t, server, http.MethodGet, "/monthly_history?meter_id=123-456-789", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var history model.MonthlyHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Contains(t, history.Months, "2024-05")

	i := 0
	for j, m := range history.Months {
		if m == "2024-05" {
			i = j
		}
	}
	assert.Equal(t, 120.0, history.Usage[i])
	assert.Equal(t, 31, history.Days[i])
	assert.InDelta(t, 3.871, history.Usage[i]/float64(history.Days[i]), 0.0005)
}

func TestMonthlyHistoryUnknownMeter(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/monthly_history?meter_id=999-999-999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)

	w = doJSON(t, server, http.MethodGet, "/monthly_history", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryUsage(t *testing.T) {
	server, dbConn := setupTestServer(t)

	tx, err := db.StartTransaction(dbConn)
	require.NoError(t, err)
	ts1, _ := time.Parse(model.TimeLayout, "2024-05-01T01:30:00")
	ts2, _ := time.Parse(model.TimeLayout, "2024-05-01T02:00:00")
	require.NoError(t, db.InsertReadingsWithTx(tx, []model.MeterReading{
		{MeterID: "123-456-789", ReadingTime: ts1, MeterValue: 1.0},
		{MeterID: "123-456-789", ReadingTime: ts2, MeterValue: 2.5},
	}))
	require.NoError(t, db.CommitTransaction(tx))

	w := doJSON(t, server, http.MethodGet, "/query_usage?meter_id=123-456-789&time_range=today", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var series model.UsageSeries
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	require.Len(t, series.Dates, len(series.Usage), "parallel arrays must stay equal length")
	assert.Contains(t, series.Dates, "01:30")
	assert.Contains(t, series.Dates, "02:00")
	assert.Equal(t, 1.5, series.TotalUsage)
}

func TestQueryUsageErrors(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/query_usage?meter_id=123-456-789", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, server, http.MethodGet, "/query_usage?meter_id=123-456-789&time_range=this_year", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, server, http.MethodGet, "/query_usage?meter_id=123-456-789&time_range=today", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAreas(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/api/areas", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string][]config.Area
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp["areas"], 1)
	assert.Equal(t, "East", resp["areas"][0].Name)
}

func TestReset(t *testing.T) {
	server, dbConn := setupTestServer(t)
	registerMeter(t, server, "123-456-789")

	w := doJSON(t, server, http.MethodPost, "/meter_reading", map[string]interface{}{"value": 1, "unit": "days"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, server, http.MethodGet, "/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Reset Success")

	n, err := db.CountReadings(dbConn)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	simTime, err := db.GetSimTime(dbConn)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), simTime)
}

func TestPagesRender(t *testing.T) {
	server, _ := setupTestServer(t)

	pages := map[string][]string{
		"/":         {"Collection Console", "Usage Query Console"},
		"/collect":  {"Current Simulation Time", "increment-value", "/meter_reading"},
		"/query":    {`\d{3}-\d{3}-\d{3}`, "chart.js", "/validate_meter", "/monthly_history", "/query_usage"},
		"/register": {"/api/areas", "/register"},
	}

	for target, wants := range pages {
		w := doJSON(t, server, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, w.Code, target)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"), target)
		for _, want := range wants {
			assert.Contains(t, w.Body.String(), want, target)
		}
	}
}

func TestUnknownPathIs404(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
