package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handlePasswordRecovery(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	if err := s.engine.RequestPasswordRecovery(r.Context(), email); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Password recovery email sent"})
}

type newPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req newPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.engine.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Password updated successfully"})
}

func (s *Server) handleSetupPassword(w http.ResponseWriter, r *http.Request) {
	var req newPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.engine.SetupPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Password set up is successful"})
}
