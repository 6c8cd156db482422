package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tor1kk/sim800/gsm"
)

// Server handles incoming HTTP requests for interacting with the
// configured modem instance
type Server struct {
	Logger  *slog.Logger
	Modem   *gsm.Modem
	Gateway *Gateway
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sms", s.handleSMS)
	mux.HandleFunc("GET /battery", s.handleBattery)
	mux.HandleFunc("GET /network", s.handleNetwork)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)

}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleSMS queues an outbound SMS; the gateway worker sends it.
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	var req SmsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.To == "" || req.Message == "" {
		s.sendError(w, "both 'to' and 'message' fields are required", http.StatusBadRequest)
		return
	}

	id, err := s.Gateway.Enqueue(req)
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			s.sendError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		s.Logger.Error("Failed to queue SMS", "error", err, "to", req.To)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("SMS queued", "id", id, "to", req.To, "message_length", len(req.Message))
	w.WriteHeader(http.StatusAccepted)
	s.sendJSON(w, map[string]string{"status": "queued", "id": id})
}

// handleBattery reports the modem's battery charge state.
func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	battery, err := s.Modem.BatteryInfo(r.Context())
	if err != nil {
		s.Logger.Error("Failed to read battery info", "error", err)
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.sendJSON(w, struct {
		ChargeStatus    int `json:"charge_status"`
		ConnectionLevel int `json:"connection_level"`
		BatteryLevelMV  int `json:"battery_level_mv"`
	}{battery.ChargeStatus, battery.ConnectionLevel, battery.BatteryLevel})
}

// handleNetwork reports the modem's network registration state.
func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	status, err := s.Modem.NetworkRegistration(r.Context())
	if err != nil {
		s.Logger.Error("Failed to read network registration", "error", err)
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.sendJSON(w, map[string]string{"status": status.String()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
