package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/svcwatch/svcwatch/internal/transfer"
	"github.com/svcwatch/svcwatch/middleware"
)

type generateURLRequest struct {
	CompanyName string `json:"company_name"`
	ExpiryHours int    `json:"expiry_hours"`
	Type        string `json:"type"`
	FileName    string `json:"file_name,omitempty"`
}

type generateURLResponse struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleGenerateTransferURL(w http.ResponseWriter, r *http.Request) {
	var req generateURLRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.CompanyName == "" || req.ExpiryHours <= 0 {
		s.badRequest(w, "company_name and a positive expiry_hours are required")
		return
	}

	link, err := s.broker.GenerateURL(r.Context(), transfer.GenerateInput{
		CompanyName: req.CompanyName,
		Kind:        transfer.Kind(req.Type),
		FileName:    req.FileName,
		Expiry:      time.Duration(req.ExpiryHours) * time.Hour,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, generateURLResponse{
		URL:      link.URL,
		Username: link.Username,
		Password: link.Password,
	})
}

func (s *Server) handleValidateTransferURL(w http.ResponseWriter, r *http.Request) {
	valid := s.broker.ValidateURL(r.Context(), r.URL.Query().Get("token"))
	s.writeJSON(w, http.StatusOK, valid)
}

func (s *Server) handleTransferLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.badRequest(w, "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	secret := r.PostFormValue("password")

	accessToken, kind, err := s.broker.Login(r.Context(), username, secret)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// token_type carries the link direction so the landing page knows
	// which flow to start.
	s.writeJSON(w, http.StatusOK, tokenResponse{AccessToken: accessToken, TokenType: string(kind)})
}

// tempUserFromRequest authenticates the transfer bearer token.
func (s *Server) tempUserFromRequest(w http.ResponseWriter, r *http.Request) (*transfer.TempUser, bool) {
	raw, ok := bearerToken(r)
	if !ok {
		s.writeError(w, transfer.ErrInvalidLink)
		return nil, false
	}
	user, err := s.broker.Authenticate(r.Context(), raw)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return user, true
}

type tempUserResponse struct {
	CompanyName string `json:"company_name"`
	Type        string `json:"type"`
	FileName    string `json:"file_name,omitempty"`
}

func (s *Server) handleTransferMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tempUserFromRequest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, tempUserResponse{
		CompanyName: user.CompanyName,
		Type:        string(user.Kind),
		FileName:    user.FileName,
	})
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

type presignedURLResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleInboundUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tempUserFromRequest(w, r)
	if !ok {
		return
	}
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.FileName == "" {
		s.badRequest(w, "file_name is required")
		return
	}

	url, err := s.broker.PresignInboundUpload(r.Context(), user, req.FileName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, presignedURLResponse{URL: url})
}

func (s *Server) handleOwnDownload(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tempUserFromRequest(w, r)
	if !ok {
		return
	}
	url, err := s.broker.PresignOwnDownload(r.Context(), user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, presignedURLResponse{URL: url})
}

func (s *Server) handleOutboundUpload(w http.ResponseWriter, r *http.Request) {
	operator, _ := middleware.UserFromContext(r.Context())

	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.FileName == "" {
		s.badRequest(w, "file_name is required")
		return
	}

	url, err := s.broker.PresignOutboundUpload(r.Context(), operator.Username, req.FileName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, presignedURLResponse{URL: url})
}

type transferObjectResponse struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

func (s *Server) handleListTransferFiles(w http.ResponseWriter, r *http.Request) {
	objects, err := s.broker.ListFiles(r.Context(), mux.Vars(r)["folder"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]transferObjectResponse, 0, len(objects))
	for _, obj := range objects {
		out = append(out, transferObjectResponse{
			Key:          obj.Key,
			LastModified: obj.LastModified,
			Size:         obj.Size,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOperatorDownload(w http.ResponseWriter, r *http.Request) {
	url, err := s.broker.PresignDownload(r.Context(), mux.Vars(r)["file_name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, presignedURLResponse{URL: url})
}

func (s *Server) handleDeleteTransferFile(w http.ResponseWriter, r *http.Request) {
	if err := s.broker.DeleteFile(r.Context(), mux.Vars(r)["file_name"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Message{Message: "Successfully deleted"})
}
