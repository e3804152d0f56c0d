package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/middleware"
)

type userResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	IsActive      bool   `json:"is_active"`
	IsSuperuser   bool   `json:"is_superuser"`
	CanEdit       bool   `json:"can_edit"`
	IsTOTPEnabled bool   `json:"is_totp_enabled"`
}

type usersResponse struct {
	Data  []userResponse `json:"data"`
	Count int            `json:"count"`
}

func toUserResponse(user *svcwatch.UserRecord) userResponse {
	return userResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		IsActive:      user.IsActive,
		IsSuperuser:   user.IsSuperuser,
		CanEdit:       user.CanEdit,
		IsTOTPEnabled: user.IsTOTPEnabled,
	}
}

// pagination reads skip/limit query parameters with the original defaults.
func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	users, count, err := s.engine.ListUsers(r.Context(), offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := usersResponse{Data: make([]userResponse, 0, len(users)), Count: count}
	for i := range users {
		out.Data = append(out.Data, toUserResponse(&users[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReadMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

type updateMeRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	updated, err := s.engine.UpdateOwnProfile(r.Context(), user.ID, req.Username, req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(updated))
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleUpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.engine.UpdateOwnPassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Password updated successfully"})
}

func (s *Server) handleReadUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.engine.GetUser(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

type registerUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	CanEdit     bool   `json:"can_edit"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" {
		s.badRequest(w, "username and email are required")
		return
	}

	_, err := s.engine.RegisterUser(r.Context(), svcwatch.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
		CanEdit:     req.CanEdit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Password set up email sent"})
}

type updateUserRequest struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
	CanEdit     *bool   `json:"can_edit"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	updated, err := s.engine.UpdateUser(r.Context(), actor, mux.Vars(r)["user_id"], svcwatch.UserUpdate{
		Username:    req.Username,
		Email:       req.Email,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
		CanEdit:     req.CanEdit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(updated))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())

	if err := s.engine.DeleteUser(r.Context(), actor, mux.Vars(r)["user_id"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "User deleted successfully"})
}

func (s *Server) handleUserServices(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if _, err := s.engine.GetUser(r.Context(), userID); err != nil {
		s.writeError(w, err)
		return
	}
	services, err := s.services.UserServices(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]serviceResponse, 0, len(services))
	for i := range services {
		out = append(out, toServiceResponse(&services[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type replaceUserServicesRequest struct {
	AddedServices []string `json:"added_services"`
}

// handleReplaceUserServices makes the posted set the user's exact
// association list; links absent from it are removed.
func (s *Server) handleReplaceUserServices(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if _, err := s.engine.GetUser(r.Context(), userID); err != nil {
		s.writeError(w, err)
		return
	}

	var req replaceUserServicesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.services.ReplaceUserServices(r.Context(), userID, req.AddedServices); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "User services updated successfully"})
}
