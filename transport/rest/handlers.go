package rest

import (
	"encoding/json"
	"net/http"
)

func (that *Server) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write pong", "error", err)
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (that *Server) online(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, that.state.Online())
}

func (that *Server) sessions(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, that.state.Sessions())
}

func (that *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
