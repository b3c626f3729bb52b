package http

import (
	"net/http"

	"moneta/internal/auth"
	"moneta/internal/core"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.auth.Register(r.Context(), sanitizeInput(req.Username), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.auth.Login(r.Context(), sanitizeInput(req.Username), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// currentUser returns the authenticated caller's id, writing a 401 when the
// request was not authenticated.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserFromContext(r.Context())
	if !ok || id.UserID <= 0 {
		writeError(w, r, core.Unauthorizedf("authentication required"))
		return 0, false
	}
	return id.UserID, true
}
