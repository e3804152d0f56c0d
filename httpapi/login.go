package httpapi

import (
	"net/http"
	"strings"

	svcwatch "github.com/svcwatch/svcwatch"
)

const refreshCookieName = "refresh_token"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleLogin is the OAuth2 password-grant compatible entry point. The form
// field is called username but carries the email, matching the standard
// password flow shape.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.badRequest(w, "invalid form body")
		return
	}
	email := r.PostFormValue("username")
	secret := r.PostFormValue("password")
	if email == "" || secret == "" {
		s.badRequest(w, "username and password are required")
		return
	}

	ctx := svcwatch.WithClientIP(r.Context(), clientIP(r))
	result, err := s.engine.Login(ctx, email, secret)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// A pending TOTP challenge gets no refresh token; the cookie only
	// appears once the login fully completes.
	if !result.TOTPRequired {
		s.setRefreshCookie(w, result.RefreshToken)
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
	})
}

type validateTOTPRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleValidateTOTP(w http.ResponseWriter, r *http.Request) {
	pending, ok := bearerToken(r)
	if !ok {
		s.writeError(w, svcwatch.ErrMissingToken)
		return
	}
	var req validateTOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	ctx := svcwatch.WithClientIP(r.Context(), clientIP(r))
	result, err := s.engine.ValidateTOTP(ctx, pending, req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.setRefreshCookie(w, result.RefreshToken)
	s.writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		s.writeError(w, svcwatch.ErrMissingToken)
		return
	}

	ctx := svcwatch.WithClientIP(r.Context(), clientIP(r))
	result, err := s.engine.Refresh(ctx, cookie.Value)
	if err != nil {
		// A reuse detection or hard failure invalidates the cookie too.
		s.clearRefreshCookie(w)
		s.writeError(w, err)
		return
	}

	s.setRefreshCookie(w, result.RefreshToken)
	s.writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := s.engine.Logout(r.Context(), cookie.Value); err != nil {
			s.logger.Warn("logout revocation failed", "error", err)
		}
	}
	s.clearRefreshCookie(w)
	s.writeJSON(w, http.StatusOK, Message{Message: "Logged out"})
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	if token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     s.config.BasePath + "/login",
		MaxAge:   int(s.config.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: s.config.SameSite,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     s.config.BasePath + "/login",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: s.config.SameSite,
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	value := r.Header.Get("Authorization")
	if !strings.HasPrefix(value, prefix) || len(value) == len(prefix) {
		return "", false
	}
	return value[len(prefix):], true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
