// Command server starts the Yume TV API HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"yumetv/internal/api"
	"yumetv/internal/mail"
	"yumetv/internal/observability/logging"
	"yumetv/internal/observability/metrics"
	"yumetv/internal/server"
	"yumetv/internal/storage"
)

func main() {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	addr := flag.String("addr", "", "HTTP listen address")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	storageDriver := flag.String("storage-driver", "", "document store driver (file, http, or postgres)")
	dataPath := flag.String("data", "", "path to the JSON document file")
	documentURL := flag.String("document-url", "", "remote document store URL")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	debounce := flag.Duration("save-debounce", 0, "delay before persisting document changes")
	sessionSecret := flag.String("session-secret", "", "secret seeding the session cookie keys")
	cookieDomain := flag.String("cookie-domain", "", "explicit session cookie domain")
	adminUsername := flag.String("admin-username", "", "break-glass admin login username")
	adminPassword := flag.String("admin-password", "", "break-glass admin login password")
	mailEndpoint := flag.String("mail-endpoint", "", "HTTP mail provider send URL")
	mailAPIKey := flag.String("mail-api-key", "", "mail provider API key")
	mailFrom := flag.String("mail-from", "", "sender address for verification email")
	publicOrigin := flag.String("public-origin", "", "public site origin used in verification links")
	corsOrigins := flag.String("cors-origins", "", "comma-separated origins allowed to call the API")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for the login rate limit")
	redisAddr := flag.String("redis-addr", "", "Redis address for the shared login throttle")
	redisPassword := flag.String("redis-password", "", "Redis password")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("YUME_TV_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("YUME_TV_LOG_FORMAT")),
	})
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("YUME_TV_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("YUME_TV_ADDR"))

	driver, err := resolveStorageDriver(
		firstNonEmpty(*storageDriver, os.Getenv("YUME_TV_STORAGE_DRIVER")),
		firstNonEmpty(*documentURL, os.Getenv("YUME_TV_DOCUMENT_URL")),
		firstNonEmpty(*postgresDSN, os.Getenv("YUME_TV_POSTGRES_DSN")),
	)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var docStore storage.DocumentStore
	var closeStore func(context.Context) error
	switch driver {
	case "http":
		docStore, err = storage.NewHTTPStore(storage.HTTPStoreConfig{
			URL: firstNonEmpty(*documentURL, os.Getenv("YUME_TV_DOCUMENT_URL")),
		})
		if err != nil {
			logger.Error("failed to configure remote document store", "error", err)
			os.Exit(1)
		}
	case "postgres":
		pgStore, err := storage.NewPostgresStore(ctx, storage.PostgresStoreConfig{
			DSN:             firstNonEmpty(*postgresDSN, os.Getenv("YUME_TV_POSTGRES_DSN")),
			MaxConnections:  int32(resolveInt(*postgresMaxConns, "YUME_TV_POSTGRES_MAX_CONNS")),
			MinConnections:  int32(resolveInt(*postgresMinConns, "YUME_TV_POSTGRES_MIN_CONNS")),
			ApplicationName: "yumetv-server",
		})
		if err != nil {
			logger.Error("failed to connect to Postgres", "error", err)
			os.Exit(1)
		}
		docStore = pgStore
		closeStore = pgStore.Close
	default:
		path := firstNonEmpty(*dataPath, os.Getenv("YUME_TV_DATA"), "data/yumetv.json")
		docStore, err = storage.NewFileStore(path)
		if err != nil {
			logger.Error("failed to open document file", "error", err)
			os.Exit(1)
		}
	}

	syncOptions := []storage.SyncOption{
		storage.WithLogger(logging.WithComponent(logger, "storage")),
		storage.WithPersistHook(recorder.ObservePersist),
	}
	if d := resolveDuration(*debounce, "YUME_TV_SAVE_DEBOUNCE", 0); d > 0 {
		syncOptions = append(syncOptions, storage.WithDebounce(d))
	}
	synchronizer := storage.NewSynchronizer(docStore, syncOptions...)
	if err := synchronizer.Load(ctx); err != nil {
		logger.Error("failed to load document state", "error", err)
		os.Exit(1)
	}

	storeOptions := []storage.StoreOption{}
	override := storage.AdminOverride{
		Username: firstNonEmpty(*adminUsername, os.Getenv("YUME_TV_ADMIN_USERNAME")),
		Password: firstNonEmpty(*adminPassword, os.Getenv("YUME_TV_ADMIN_PASSWORD")),
	}
	if override.Username != "" && override.Password != "" {
		storeOptions = append(storeOptions, storage.WithAdminOverride(override))
	}
	repo := storage.NewStore(synchronizer, storeOptions...)

	secret := firstNonEmpty(*sessionSecret, os.Getenv("YUME_TV_SESSION_SECRET"))
	if secret == "" {
		if serverMode == "production" {
			logger.Error("session secret is required in production, set YUME_TV_SESSION_SECRET")
			os.Exit(1)
		}
		secret = "yumetv-development-secret"
		logger.Warn("using built-in development session secret")
	}
	sessions, err := api.NewSessionCodec(api.SessionCodecConfig{
		Secret:       secret,
		CookieDomain: firstNonEmpty(*cookieDomain, os.Getenv("YUME_TV_COOKIE_DOMAIN")),
	})
	if err != nil {
		logger.Error("failed to configure sessions", "error", err)
		os.Exit(1)
	}

	sender := mail.NewSender(mail.Config{
		Endpoint: firstNonEmpty(*mailEndpoint, os.Getenv("YUME_TV_MAIL_ENDPOINT")),
		APIKey:   firstNonEmpty(*mailAPIKey, os.Getenv("YUME_TV_MAIL_API_KEY")),
		From:     firstNonEmpty(*mailFrom, os.Getenv("YUME_TV_MAIL_FROM"), "no-reply@yume.tv"),
		Origin:   firstNonEmpty(*publicOrigin, os.Getenv("YUME_TV_PUBLIC_ORIGIN")),
	}, mail.WithLogger(logging.WithComponent(logger, "mail")), mail.WithMetrics(recorder))

	handler := api.NewHandler(repo, sessions)
	handler.Mail = sender
	handler.Logger = logging.WithComponent(logger, "api")
	handler.Metrics = recorder

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("YUME_TV_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("YUME_TV_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "YUME_TV_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "YUME_TV_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "YUME_TV_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "YUME_TV_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("YUME_TV_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("YUME_TV_REDIS_PASSWORD")),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("YUME_TV_CORS_ORIGINS"))),
		},
		Logger:  logging.WithComponent(logger, "server"),
		Metrics: recorder,
	})
	if err != nil {
		logger.Error("failed to configure server", "error", err)
		os.Exit(1)
	}

	logger.Info("starting server",
		"addr", listenAddr,
		"mode", serverMode,
		"storage_driver", driver,
		"mail_configured", sender.Configured())

	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited with error", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := synchronizer.Flush(flushCtx); err != nil {
		logger.Error("failed to flush document state", "error", err)
	}
	if closeStore != nil {
		if err := closeStore(flushCtx); err != nil {
			logger.Error("failed to close document store", "error", err)
		}
	}
}

func modeValue(flagValue, envValue string) string {
	mode := strings.ToLower(firstNonEmpty(flagValue, envValue, "development"))
	if mode != "production" {
		return "development"
	}
	return mode
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	if addr := firstNonEmpty(flagValue, envAddr); addr != "" {
		return addr
	}
	if mode == "production" {
		return ":8080"
	}
	return "127.0.0.1:8080"
}

func resolveStorageDriver(flagValue, documentURL, postgresDSN string) (string, error) {
	driver := strings.ToLower(strings.TrimSpace(flagValue))
	switch driver {
	case "file", "http", "postgres":
		return driver, nil
	case "":
	default:
		return "", fmt.Errorf("unknown storage driver %q", flagValue)
	}
	if postgresDSN != "" {
		return "postgres", nil
	}
	if documentURL != "" {
		return "http", nil
	}
	return "file", nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}
