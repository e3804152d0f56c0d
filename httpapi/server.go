package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/internal/transfer"
	"github.com/svcwatch/svcwatch/middleware"
)

// Config carries the HTTP-layer knobs. Cookie settings mirror the engine's
// security section; the refresh cookie is always HttpOnly and path-scoped to
// the login subtree so it never rides along on resource requests.
type Config struct {
	BasePath      string
	SecureCookies bool
	SameSite      http.SameSite
	RefreshTTL    time.Duration
}

// Server wires the engine and the platform stores into a router.
type Server struct {
	config   Config
	engine   *svcwatch.Engine
	services svcwatch.ServiceStore
	configs  svcwatch.ServiceConfigStore
	logs     svcwatch.ServiceLogStore
	broker   *transfer.Broker
	logger   *slog.Logger
}

func NewServer(cfg Config, engine *svcwatch.Engine, services svcwatch.ServiceStore,
	configs svcwatch.ServiceConfigStore, logs svcwatch.ServiceLogStore,
	broker *transfer.Broker, logger *slog.Logger) *Server {

	if cfg.BasePath == "" {
		cfg.BasePath = "/api/v1"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteNoneMode
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:   cfg,
		engine:   engine,
		services: services,
		configs:  configs,
		logs:     logs,
		broker:   broker,
		logger:   logger,
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	root := mux.NewRouter()
	api := root.PathPrefix(s.config.BasePath).Subrouter()

	// Anonymous authentication surface.
	api.HandleFunc("/login/access-token", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/login/validate-totp", s.handleValidateTOTP).Methods(http.MethodPost)
	api.HandleFunc("/login/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/login/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/password-recovery/{email}", s.handlePasswordRecovery).Methods(http.MethodPost)
	api.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	api.HandleFunc("/setup-password", s.handleSetupPassword).Methods(http.MethodPost)

	guard := middleware.Guard(s.engine)

	// TOTP enrollment.
	totp := api.PathPrefix("/totp").Subrouter()
	totp.Use(mux.MiddlewareFunc(guard))
	totp.HandleFunc("/enable", s.handleEnableTOTP).Methods(http.MethodPost)
	totp.HandleFunc("/verify", s.handleVerifyTOTP).Methods(http.MethodPost)
	totp.HandleFunc("/disable", s.handleDisableTOTP).Methods(http.MethodDelete)
	totp.Handle("/disable/{user_id}",
		middleware.RequireSuperuser(http.HandlerFunc(s.handleAdminDisableTOTP))).Methods(http.MethodPost)

	// User management.
	users := api.PathPrefix("/users").Subrouter()
	users.Use(mux.MiddlewareFunc(guard))
	users.HandleFunc("/me", s.handleReadMe).Methods(http.MethodGet)
	users.HandleFunc("/me", s.handleUpdateMe).Methods(http.MethodPatch)
	users.HandleFunc("/me/password", s.handleUpdateMyPassword).Methods(http.MethodPatch)
	users.Handle("", middleware.RequireSuperuser(http.HandlerFunc(s.handleListUsers))).Methods(http.MethodGet)
	users.Handle("/adduser", middleware.RequireSuperuser(http.HandlerFunc(s.handleRegisterUser))).Methods(http.MethodPost)
	users.Handle("/{user_id}", middleware.RequireSuperuser(http.HandlerFunc(s.handleReadUser))).Methods(http.MethodGet)
	users.Handle("/{user_id}", middleware.RequireSuperuser(http.HandlerFunc(s.handleUpdateUser))).Methods(http.MethodPatch)
	users.Handle("/{user_id}", middleware.RequireSuperuser(http.HandlerFunc(s.handleDeleteUser))).Methods(http.MethodDelete)
	users.Handle("/{user_id}/services", middleware.RequireSuperuser(http.HandlerFunc(s.handleUserServices))).Methods(http.MethodGet)
	users.Handle("/{user_id}/services", middleware.RequireSuperuser(http.HandlerFunc(s.handleReplaceUserServices))).Methods(http.MethodPatch)

	// Service fleet.
	services := api.PathPrefix("/services").Subrouter()
	services.Use(mux.MiddlewareFunc(guard))
	services.HandleFunc("", s.handleListServices).Methods(http.MethodGet)
	services.Handle("", middleware.RequireSuperuser(http.HandlerFunc(s.handleCreateService))).Methods(http.MethodPost)
	services.HandleFunc("/{service_id}", s.handleReadService).Methods(http.MethodGet)
	services.Handle("/{service_id}", middleware.RequireSuperuser(http.HandlerFunc(s.handleDeleteService))).Methods(http.MethodDelete)
	services.HandleFunc("/{service_id}/users", s.handleServiceUsers).Methods(http.MethodGet)
	services.HandleFunc("/{service_id}/config", s.handleReadServiceConfig).Methods(http.MethodGet)
	services.HandleFunc("/{service_id}/config", s.handleUpdateServiceConfig).Methods(http.MethodPatch)
	services.HandleFunc("/{service_id}/logs", s.handleReadServiceLogs).Methods(http.MethodGet)
	services.HandleFunc("/{service_id}/logs", s.handleAppendServiceLog).Methods(http.MethodPost)

	// File exchange. The temp-user routes authenticate with a transfer token
	// instead of the operator guard.
	if s.broker != nil {
		ft := api.PathPrefix("/file-transfer").Subrouter()
		ft.HandleFunc("/validate-url", s.handleValidateTransferURL).Methods(http.MethodGet)
		ft.HandleFunc("/login/access-token", s.handleTransferLogin).Methods(http.MethodPost)
		ft.HandleFunc("/me", s.handleTransferMe).Methods(http.MethodGet)
		ft.HandleFunc("/upload/from-customer", s.handleInboundUpload).Methods(http.MethodPost)
		ft.HandleFunc("/download/myfile", s.handleOwnDownload).Methods(http.MethodGet)
		ft.Handle("/generate-url", guard(http.HandlerFunc(s.handleGenerateTransferURL))).Methods(http.MethodPost)
		ft.Handle("/upload/to-customer", guard(http.HandlerFunc(s.handleOutboundUpload))).Methods(http.MethodPost)
		ft.Handle("/files/{folder}", guard(http.HandlerFunc(s.handleListTransferFiles))).Methods(http.MethodGet)
		ft.Handle("/download/{file_name:.+}", guard(http.HandlerFunc(s.handleOperatorDownload))).Methods(http.MethodGet)
		ft.Handle("/delete/{file_name:.+}", guard(http.HandlerFunc(s.handleDeleteTransferFile))).Methods(http.MethodDelete)
	}

	return root
}
