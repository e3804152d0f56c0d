// Command server runs the svcwatch HTTP API.
//
// Configuration comes from the environment:
//
//	SVCWATCH_TOKEN_SECRET   signing secret, at least 32 bytes (required)
//	SVCWATCH_DATABASE_DSN   postgres DSN (required)
//	REDIS_ADDR              redis address; enables refresh tracking and
//	                        login throttling when set
//	SENDGRID_API_KEY        sendgrid key; account and recovery mail is
//	                        disabled when empty
//	SVCWATCH_EMAIL_FROM     sender address for outbound mail
//	SVCWATCH_FRONTEND_URL   base URL the emailed links point at
//	S3_BUCKET               transfer bucket; the file-transfer surface is
//	                        disabled when empty
//	S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY
//	TRANSFER_LINK_BASE_URL  page the generated links open
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/httpapi"
	"github.com/svcwatch/svcwatch/internal/mailer"
	"github.com/svcwatch/svcwatch/internal/storage/postgres"
	"github.com/svcwatch/svcwatch/internal/transfer"
	"github.com/svcwatch/svcwatch/password"
	"github.com/svcwatch/svcwatch/token"
)

func main() {
	var (
		addr          = flag.String("addr", ":8000", "listen address")
		basePath      = flag.String("base-path", "/api/v1", "API path prefix")
		secureCookies = flag.Bool("secure-cookies", true, "set the Secure flag on the refresh cookie")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*addr, *basePath, *secureCookies, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(addr, basePath string, secureCookies bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secret := os.Getenv("SVCWATCH_TOKEN_SECRET")
	if len(secret) < 32 {
		return errors.New("SVCWATCH_TOKEN_SECRET must be set to at least 32 bytes")
	}
	dsn := os.Getenv("SVCWATCH_DATABASE_DSN")
	if dsn == "" {
		return errors.New("SVCWATCH_DATABASE_DSN is required")
	}

	// ---------- storage ----------
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("database ready")

	// ---------- engine ----------
	cfg := svcwatch.DefaultConfig()
	cfg.Token.Secret = []byte(secret)

	var redisClient *redis.Client
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		defer redisClient.Close()
		cfg.Session.TrackRefresh = true
	} else {
		// Without redis, refresh tokens are signature-only and throttling
		// is off.
		cfg.Session.TrackRefresh = false
		cfg.Security.EnableLoginThrottle = false
		cfg.Security.EnableRefreshThrottle = false
		logger.Warn("REDIS_ADDR not set; refresh tracking and throttling disabled")
	}

	mail := mailer.New(mailer.Config{
		APIKey:        os.Getenv("SENDGRID_API_KEY"),
		FromEmail:     os.Getenv("SVCWATCH_EMAIL_FROM"),
		FromName:      os.Getenv("SVCWATCH_EMAIL_FROM_NAME"),
		FrontendURL:   os.Getenv("SVCWATCH_FRONTEND_URL"),
		ResetValidity: cfg.Token.ResetTTL,
		SetupValidity: cfg.Token.SetupTTL,
	}, logger)
	if !mail.Enabled() {
		logger.Warn("mailer disabled; account creation and password recovery will fail")
	}

	builder := svcwatch.New().
		WithConfig(cfg).
		WithUsers(store.Users).
		WithServices(store.Services).
		WithMailer(mail).
		WithAuditSink(svcwatch.NewSlogSink(logger))
	if redisClient != nil {
		builder = builder.WithRedis(redisClient)
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	// ---------- file transfer ----------
	var broker *transfer.Broker
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		objects, presign, err := transfer.NewS3Clients(ctx, transfer.S3Config{
			Region:    os.Getenv("S3_REGION"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		})
		if err != nil {
			return err
		}
		tokens, err := token.NewManager(token.Config{
			Secret:      []byte(secret),
			Issuer:      cfg.Token.Issuer,
			AccessTTL:   cfg.Token.AccessTTL,
			PendingTTL:  cfg.Token.PendingTTL,
			RefreshTTL:  cfg.Token.RefreshTTL,
			ResetTTL:    cfg.Token.ResetTTL,
			SetupTTL:    cfg.Token.SetupTTL,
			TransferTTL: cfg.Token.TransferTTL,
			Leeway:      cfg.Token.Leeway,
		})
		if err != nil {
			return err
		}
		hasher, err := password.NewBcrypt(password.Config{Cost: cfg.Password.Cost})
		if err != nil {
			return err
		}
		broker = transfer.NewBroker(transfer.Config{
			Bucket:      bucket,
			LinkBaseURL: os.Getenv("TRANSFER_LINK_BASE_URL"),
		}, store.TempUsers, tokens, hasher, objects, presign)
	} else {
		logger.Warn("S3_BUCKET not set; file-transfer routes disabled")
	}

	// ---------- HTTP ----------
	api := httpapi.NewServer(httpapi.Config{
		BasePath:      basePath,
		SecureCookies: secureCookies,
		RefreshTTL:    cfg.Token.RefreshTTL,
	}, engine, store.Services, store.Configs, store.Logs, broker, logger)

	server := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
