package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"i4.energy/across/modemchat/at"
	"i4.energy/across/modemchat/chat"
)

// Server handles incoming HTTP requests for interacting with the attached
// modem engine
type Server struct {
	Logger *slog.Logger
	Engine *chat.Engine
	// Notifications receives unsolicited lines recognized by the engine.
	Notifications <-chan string
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /notifications", s.handleNotifications)
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

// handleCommand runs a one-step command script on the modem and returns the
// outcome. The optional "expect" prefix captures the data line preceding the
// final OK, e.g. expect "+CSQ:" for the command "AT+CSQ".
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	type CommandRequest struct {
		Command   string `json:"command"`
		Expect    string `json:"expect,omitempty"`
		TimeoutMS int    `json:"timeout_ms,omitempty"`
	}
	type CommandResponse struct {
		Result string   `json:"result"`
		Line   string   `json:"line,omitempty"`
		Args   []string `json:"args,omitempty"`
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		s.sendError(w, "the 'command' field is required", http.StatusBadRequest)
		return
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	script := at.Command(req.Command, timeout, nil)

	var captured []string
	if req.Expect != "" {
		capture := chat.Match{
			Pattern:    req.Expect,
			Separators: ", ",
			Partial:    true,
			Callback: func(_ *chat.Engine, args []string) {
				captured = append([]string(nil), args...)
			},
		}
		script.Steps[0].Responses = append([]chat.Match{capture}, script.Steps[0].Responses...)
	}

	result, err := s.Engine.Run(r.Context(), script)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrBusy) {
			status = http.StatusConflict
		}
		s.Logger.Error("Failed to run command", "error", err, "command", req.Command)
		s.sendError(w, err.Error(), status)
		return
	}

	resp := CommandResponse{Result: result.String()}
	if len(captured) > 0 {
		resp.Line = captured[0]
		resp.Args = captured[1:]
	}

	s.Logger.Info("Command executed", "command", req.Command, "result", result.String())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleNotifications long-polls for the next unsolicited line from the
// modem, returning 204 when none arrives before the request times out.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	type Notification struct {
		Line string `json:"line"`
	}

	select {
	case line := <-s.Notifications:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Notification{Line: line})
	case <-r.Context().Done():
		w.WriteHeader(http.StatusNoContent)
	case <-time.After(30 * time.Second):
		w.WriteHeader(http.StatusNoContent)
	}
}
