package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/middleware"
)

type serviceResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SubName string `json:"sub_name"`
}

type servicesResponse struct {
	Data  []serviceResponse `json:"data"`
	Count int               `json:"count"`
}

func toServiceResponse(service *svcwatch.ServiceRecord) serviceResponse {
	return serviceResponse{ID: service.ID, Name: service.Name, SubName: service.SubName}
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	offset, limit := pagination(r)

	var (
		services []svcwatch.ServiceRecord
		count    int
		err      error
	)
	if user.IsSuperuser {
		services, count, err = s.services.List(r.Context(), offset, limit)
	} else {
		services, count, err = s.services.ListByUser(r.Context(), user.ID, offset, limit)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := servicesResponse{Data: make([]serviceResponse, 0, len(services)), Count: count}
	for i := range services {
		out.Data = append(out.Data, toServiceResponse(&services[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// requireServiceAccess resolves the service and runs the privilege gate.
// Existence is checked first so a missing service is a 404 rather than a 403.
func (s *Server) requireServiceAccess(w http.ResponseWriter, r *http.Request, level svcwatch.Privilege) (*svcwatch.ServiceRecord, bool) {
	user, _ := middleware.UserFromContext(r.Context())
	serviceID := mux.Vars(r)["service_id"]

	service, err := s.services.GetByID(r.Context(), serviceID)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if err := s.engine.CheckPrivilege(r.Context(), user, serviceID, level); err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return service, true
}

func (s *Server) handleReadService(w http.ResponseWriter, r *http.Request) {
	service, ok := s.requireServiceAccess(w, r, svcwatch.PrivilegeRead)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toServiceResponse(service))
}

// handleServiceUsers lists the accounts that can edit the service.
func (s *Server) handleServiceUsers(w http.ResponseWriter, r *http.Request) {
	service, ok := s.requireServiceAccess(w, r, svcwatch.PrivilegeRead)
	if !ok {
		return
	}
	users, err := s.services.Users(r.Context(), service.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		if !users[i].CanEdit {
			continue
		}
		out = append(out, toUserResponse(&users[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type createServiceRequest struct {
	Name    string `json:"name"`
	SubName string `json:"sub_name"`
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.Name == "" || req.SubName == "" {
		s.badRequest(w, "name and sub_name are required")
		return
	}

	service := &svcwatch.ServiceRecord{
		ID:        uuid.NewString(),
		Name:      req.Name,
		SubName:   req.SubName,
		CreatedAt: time.Now(),
	}
	if err := s.services.Create(r.Context(), service); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Successfully created a service"})
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Delete(r.Context(), mux.Vars(r)["service_id"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Successfully deleted the service"})
}

type serviceConfigBody struct {
	EmailFrom          string `json:"email_from"`
	EmailCC            string `json:"email_cc"`
	EmailTo            string `json:"email_to"`
	AlertEmailTitle    string `json:"alert_email_title"`
	AlertEmailBody     string `json:"alert_email_body"`
	RecoveryEmailTitle string `json:"recovery_email_title"`
	RecoveryEmailBody  string `json:"recovery_email_body"`
	SlackLink          string `json:"slack_link"`
	TeamsLink          string `json:"teams_link"`
}

func (s *Server) handleReadServiceConfig(w http.ResponseWriter, r *http.Request) {
	service, ok := s.requireServiceAccess(w, r, svcwatch.PrivilegeRead)
	if !ok {
		return
	}
	config, err := s.configs.GetConfig(r.Context(), service.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, serviceConfigBody{
		EmailFrom:          config.EmailFrom,
		EmailCC:            config.EmailCC,
		EmailTo:            config.EmailTo,
		AlertEmailTitle:    config.AlertEmailTitle,
		AlertEmailBody:     config.AlertEmailBody,
		RecoveryEmailTitle: config.RecoveryEmailTitle,
		RecoveryEmailBody:  config.RecoveryEmailBody,
		SlackLink:          config.SlackLink,
		TeamsLink:          config.TeamsLink,
	})
}

func (s *Server) handleUpdateServiceConfig(w http.ResponseWriter, r *http.Request) {
	service, ok := s.requireServiceAccess(w, r, svcwatch.PrivilegeWrite)
	if !ok {
		return
	}
	var req serviceConfigBody
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	err := s.configs.UpsertConfig(r.Context(), service.ID, &svcwatch.ServiceConfig{
		EmailFrom:          req.EmailFrom,
		EmailCC:            req.EmailCC,
		EmailTo:            req.EmailTo,
		AlertEmailTitle:    req.AlertEmailTitle,
		AlertEmailBody:     req.AlertEmailBody,
		RecoveryEmailTitle: req.RecoveryEmailTitle,
		RecoveryEmailBody:  req.RecoveryEmailBody,
		SlackLink:          req.SlackLink,
		TeamsLink:          req.TeamsLink,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Config updated successfully"})
}

type logEntryBody struct {
	ID          int64      `json:"id,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	ElapsedTime float64    `json:"elapsed_time"`
	IsOK        bool       `json:"is_ok"`
	Screenshot  string     `json:"screenshot,omitempty"`
	Content     string     `json:"content,omitempty"`
}

func (s *Server) handleReadServiceLogs(w http.ResponseWriter, r *http.Request) {
	service, ok := s.requireServiceAccess(w, r, svcwatch.PrivilegeRead)
	if !ok {
		return
	}
	offset, limit := pagination(r)
	entries, err := s.logs.Logs(r.Context(), service.ID, offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]logEntryBody, 0, len(entries))
	for _, entry := range entries {
		body := logEntryBody{
			ID:          entry.ID,
			ElapsedTime: entry.ElapsedTime,
			IsOK:        entry.IsOK,
			Screenshot:  entry.Screenshot,
			Content:     entry.Content,
		}
		if !entry.StartTime.IsZero() {
			start := entry.StartTime
			body.StartTime = &start
		}
		if !entry.EndTime.IsZero() {
			end := entry.EndTime
			body.EndTime = &end
		}
		out = append(out, body)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAppendServiceLog(w http.ResponseWriter, r *http.Request) {
	service, ok := s.requireServiceAccess(w, r, svcwatch.PrivilegeWrite)
	if !ok {
		return
	}
	var req logEntryBody
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	entry := &svcwatch.ServiceLogEntry{
		ElapsedTime: req.ElapsedTime,
		IsOK:        req.IsOK,
		Screenshot:  req.Screenshot,
		Content:     req.Content,
	}
	if req.StartTime != nil {
		entry.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		entry.EndTime = *req.EndTime
	}
	if err := s.logs.AppendLog(r.Context(), service.ID, entry); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Log entry recorded"})
}
