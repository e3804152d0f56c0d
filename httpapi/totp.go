package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/svcwatch/svcwatch/middleware"
)

type totpSetupResponse struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

func (s *Server) handleEnableTOTP(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	setup, err := s.engine.EnableTOTP(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, totpSetupResponse{
		Secret: setup.SecretBase32,
		URI:    setup.ProvisionURI,
	})
}

type verifyTOTPRequest struct {
	Token string `json:"token"`
}

// handleVerifyTOTP confirms a pending enrollment with the first code from
// the authenticator, which is what actually turns the requirement on.
func (s *Server) handleVerifyTOTP(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var req verifyTOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.engine.ConfirmTOTP(r.Context(), user.ID, req.Token); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "TOTP has been enabled successfully."})
}

func (s *Server) handleDisableTOTP(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	if err := s.engine.DisableTOTP(r.Context(), user.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "TOTP has been disabled successfully."})
}

func (s *Server) handleAdminDisableTOTP(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["user_id"]

	if err := s.engine.AdminDisableTOTP(r.Context(), targetID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "TOTP has been disabled successfully for the user."})
}
