package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/HanKun113/AN6007-dic/db"
	"github.com/HanKun113/AN6007-dic/internal/config"
	"github.com/HanKun113/AN6007-dic/internal/meters"
	"github.com/HanKun113/AN6007-dic/internal/model"
	"github.com/HanKun113/AN6007-dic/internal/notifications"
	"github.com/HanKun113/AN6007-dic/internal/simclock"
	"github.com/HanKun113/AN6007-dic/internal/usage"
)

type Server struct {
	db     *sql.DB
	gen    *meters.Generator
	config *config.Config
}

type CurrentTimeResponse struct {
	CurrentSimulationTime model.SimulationTime `json:"Current Simulation Time"`
}

type MeterReadingRequest struct {
	Value interface{} `json:"value"`
	Unit  string      `json:"unit"`
}

type RegisterRequest struct {
	MeterID  string `json:"meterId"`
	Area     string `json:"area"`
	Dwelling string `json:"dwelling"`
}

type RegisterResponse struct {
	Success bool           `json:"success"`
	Account *model.Account `json:"account,omitempty"`
	Message string         `json:"message,omitempty"`
}

type ValidateMeterRequest struct {
	MeterID string `json:"meterId"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func NewServer(database *sql.DB, gen *meters.Generator, cfg *config.Config) *Server {
	return &Server{
		db:     database,
		gen:    gen,
		config: cfg,
	}
}

// Handler builds the routing table. Split out from Start so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Console pages
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/collect", s.handleCollectPage)
	mux.HandleFunc("/query", s.handleQueryPage)
	mux.HandleFunc("/register", s.handleRegister)

	// JSON API
	mux.HandleFunc("/current_time", s.handleCurrentTime)
	mux.HandleFunc("/meter_reading", s.handleMeterReading)
	mux.HandleFunc("/validate_meter", s.handleValidateMeter)
	mux.HandleFunc("/monthly_history", s.handleMonthlyHistory)
	mux.HandleFunc("/query_usage", s.handleQueryUsage)
	mux.HandleFunc("/api/areas", s.handleAreas)
	mux.HandleFunc("/reset", s.handleReset)

	// CORS middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting smart meter HTTP server")

	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleCurrentTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	now, err := db.GetSimTime(s.db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read simulation time")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, CurrentTimeResponse{CurrentSimulationTime: simclock.Format(now)})
}

func (s *Server) handleMeterReading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req MeterReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	value, err := coerceInt(req.Value, 1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid value format")
		return
	}
	if value < 1 {
		s.writeError(w, http.StatusBadRequest, "Value must be a positive integer")
		return
	}

	if req.Unit == "" {
		req.Unit = string(model.UnitDays)
	}
	unit, err := model.ParseIncrementUnit(req.Unit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.gen.Collect(value, unit)
	if err != nil {
		log.Error().Err(err).Int("value", value).Str("unit", string(unit)).Msg("Collection run failed")
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, registerTemplate, nil)
	case http.MethodPost:
		s.registerMeter(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) registerMeter(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, RegisterResponse{Success: false, Message: "Invalid JSON payload"})
		return
	}

	if !model.ValidMeterID(req.MeterID) {
		s.writeJSON(w, http.StatusBadRequest, RegisterResponse{Success: false, Message: "Meter ID must match the format 123-456-789"})
		return
	}
	if req.Area == "" || req.Dwelling == "" {
		s.writeJSON(w, http.StatusBadRequest, RegisterResponse{Success: false, Message: "Area and dwelling type are required"})
		return
	}

	exists, err := db.AccountExists(s.db, req.MeterID)
	if err != nil {
		log.Error().Err(err).Str("meter_id", req.MeterID).Msg("Failed to check account")
		s.writeJSON(w, http.StatusInternalServerError, RegisterResponse{Success: false, Message: err.Error()})
		return
	}
	if exists {
		s.writeJSON(w, http.StatusBadRequest, RegisterResponse{Success: false, Message: "Meter ID already exists"})
		return
	}

	now, err := db.GetSimTime(s.db)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, RegisterResponse{Success: false, Message: err.Error()})
		return
	}

	account := model.Account{
		MeterID:      req.MeterID,
		Area:         req.Area,
		Dwelling:     req.Dwelling,
		RegisterTime: now.Format(model.TimeLayout),
	}
	if err := db.InsertAccount(s.db, account); err != nil {
		log.Error().Err(err).Str("meter_id", req.MeterID).Msg("Failed to register meter")
		s.writeJSON(w, http.StatusInternalServerError, RegisterResponse{Success: false, Message: err.Error()})
		return
	}

	// Seed the meter with a zero reading so collection has a baseline.
	tx, err := db.StartTransaction(s.db)
	if err == nil {
		err = db.InsertReadingsWithTx(tx, []model.MeterReading{
			{MeterID: req.MeterID, ReadingTime: now, MeterValue: 0},
		})
		if err != nil {
			db.RollbackTransaction(tx)
		} else {
			err = db.CommitTransaction(tx)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("meter_id", req.MeterID).Msg("Failed to seed initial reading")
		s.writeJSON(w, http.StatusInternalServerError, RegisterResponse{Success: false, Message: err.Error()})
		return
	}

	log.Info().Str("meter_id", req.MeterID).Str("area", req.Area).Msg("Meter registered")
	s.writeJSON(w, http.StatusOK, RegisterResponse{Success: true, Account: &account})
}

func (s *Server) handleValidateMeter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ValidateMeterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MeterID == "" {
		s.writeError(w, http.StatusBadRequest, "Meter ID is required")
		return
	}

	exists, err := db.AccountExists(s.db, req.MeterID)
	if err != nil {
		log.Error().Err(err).Str("meter_id", req.MeterID).Msg("Failed to validate meter")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !exists {
		s.writeError(w, http.StatusNotFound, "Invalid Meter ID")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMonthlyHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	meterID := r.URL.Query().Get("meter_id")
	if meterID == "" {
		s.writeError(w, http.StatusBadRequest, "Meter ID is required")
		return
	}

	archived, err := db.GetMonthSummaries(s.db, meterID)
	if err != nil {
		log.Error().Err(err).Str("meter_id", meterID).Msg("Failed to load month summaries")
		s.writeError(w, http.StatusInternalServerError, "An error occurred while processing your request")
		return
	}
	live, err := db.GetLiveMonths(s.db, meterID)
	if err != nil {
		log.Error().Err(err).Str("meter_id", meterID).Msg("Failed to load live months")
		s.writeError(w, http.StatusInternalServerError, "An error occurred while processing your request")
		return
	}

	merged := usage.MergeMonths(archived, live)
	if len(merged) == 0 {
		s.writeError(w, http.StatusNotFound, "No data available for this meter")
		return
	}

	s.writeJSON(w, http.StatusOK, usage.History(merged))
}

func (s *Server) handleQueryUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	meterID := r.URL.Query().Get("meter_id")
	timeRange := r.URL.Query().Get("time_range")
	if meterID == "" || timeRange == "" {
		s.writeError(w, http.StatusBadRequest, "Meter ID and time range are required")
		return
	}

	now, err := db.GetSimTime(s.db)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "An error occurred while processing your request")
		return
	}

	dates := usage.DateRange(timeRange, now)
	if dates == nil {
		s.writeError(w, http.StatusBadRequest, "Invalid time range")
		return
	}

	readings, err := db.GetReadingsForDates(s.db, meterID, dates)
	if err != nil {
		log.Error().Err(err).Str("meter_id", meterID).Str("time_range", timeRange).Msg("Failed to load readings")
		s.writeError(w, http.StatusInternalServerError, "An error occurred while processing your request")
		return
	}
	if len(readings) == 0 {
		s.writeError(w, http.StatusNotFound, "No data available for the selected period")
		return
	}

	s.writeJSON(w, http.StatusOK, usage.Series(readings, timeRange))
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]config.Area{"areas": s.config.Areas})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	err := db.ResetAll(s.db)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		log.Error().Err(err).Msg("System reset failed")
		fmt.Fprint(w, `<script>alert('Reset Failed'); window.location.href = '/';</script>`)
		return
	}

	log.Info().Msg("System reset to genesis state")
	if nerr := notifications.Send("System reset", "All meter data wiped, clock rewound to genesis"); nerr != nil {
		log.Debug().Err(nerr).Msg("Reset notification not sent")
	}
	fmt.Fprint(w, `<script>alert('Reset Success!'); window.location.href = '/';</script>`)
}

// coerceInt accepts the integer encodings browsers actually send: JSON
// numbers (integral floats) and numeric strings. nil falls back to def.
func coerceInt(v interface{}, def int) (int, error) {
	switch n := v.(type) {
	case nil:
		return def, nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("non-integer value %v", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("non-integer value %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
