package main

import (
	"flag"
	"net/http"
	"strings"
	"time"

	"github.com/tecnotop/backend/boot"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/assistant"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/auth"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/cache"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/dal"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/handlers"
	"github.com/tecnotop/backend/libs/clock"
	"github.com/tecnotop/backend/libs/dbutil"
	"github.com/tecnotop/backend/libs/golog"
	"github.com/tecnotop/backend/libs/httputil"
	"github.com/tecnotop/backend/libs/openai"
	"github.com/tecnotop/backend/libs/ratelimit"
)

var config struct {
	listenAddr     string
	dbURL          string
	openaiAPIKey   string
	openaiBaseURL  string
	authEmail      string
	authPassword   string
	corsOrigins    string
	behindProxy    bool
	loginRateLimit int
}

func init() {
	flag.StringVar(&config.listenAddr, "listen_addr", "0.0.0.0:8501", "`host:port` to listen on")
	flag.StringVar(&config.dbURL, "database_url", "", "PostgreSQL connection `URL`")
	flag.StringVar(&config.openaiAPIKey, "openai_api_key", "", "OpenAI API `key` for the assistant")
	flag.StringVar(&config.openaiBaseURL, "openai_base_url", "", "Override `URL` for the OpenAI API")
	flag.StringVar(&config.authEmail, "app_auth_email", "", "Login `email` (empty disables login)")
	flag.StringVar(&config.authPassword, "app_auth_password", "", "Login `password`, plaintext or bcrypt hash")
	flag.StringVar(&config.corsOrigins, "cors_origins", "", "Comma separated `origins` allowed on /api/")
	flag.BoolVar(&config.behindProxy, "behind_proxy", false, "Trust X-Forwarded-For for remote addresses")
	flag.IntVar(&config.loginRateLimit, "login_rate_limit", 10, "Max login attempts per address per minute (0 disables)")
}

func main() {
	svc := boot.NewService("fieldboard", nil)

	if config.dbURL == "" {
		golog.Fatalf("-database_url flag required")
	}

	db, err := dbutil.ConnectPostgresURL(config.dbURL, 10, 5)
	if err != nil {
		golog.Fatalf("Failed to connect to database: %s", err)
	}

	clk := clock.New()
	d := dal.New(db)

	ai := openai.NewClient(openai.Config{
		APIKey:  config.openaiAPIKey,
		BaseURL: config.openaiBaseURL,
	}, svc.MetricsRegistry.Scope("openai"))

	asst := assistant.New(ai, d, clk, svc.MetricsRegistry.Scope("assistant"))

	var corsOrigins []string
	for _, o := range strings.Split(config.corsOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}

	var loginLimiter ratelimit.KeyedRateLimiter = ratelimit.NullKeyed{}
	if config.loginRateLimit > 0 {
		loginLimiter = ratelimit.NewLocalKeyed(config.loginRateLimit, 60)
	}

	h := handlers.New(handlers.Config{
		DAL:              d,
		Auth:             auth.New(config.authEmail, config.authPassword, clk),
		Assistant:        asst,
		Cache:            cache.New(clk),
		Clock:            clk,
		LoginRateLimiter: loginLimiter,
		MetricsRegistry:  svc.MetricsRegistry.Scope("www"),
		CORSOrigins:      corsOrigins,
		BehindProxy:      config.behindProxy,
	})

	mw := httputil.LoggingHandler(
		httputil.MetricsHandler(h, svc.MetricsRegistry.Scope("http")),
		"fieldboard", config.behindProxy, nil)
	mw = httputil.RequestIDHandler(mw)
	mw = httputil.CompressResponse(httputil.DecompressRequest(mw))

	server := &http.Server{
		Addr:         config.listenAddr,
		Handler:      mw,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
	go func() {
		golog.Infof("fieldboard: listening on %s", config.listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			golog.Fatalf("fieldboard: server failed: %s", err)
		}
	}()

	boot.WaitForTermination()
	server.Close()
}
