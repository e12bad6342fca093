package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/config"
	"github.com/IshaNayal/swasth-saathi/internal/delivery"
	"github.com/IshaNayal/swasth-saathi/internal/handler"
	"github.com/IshaNayal/swasth-saathi/internal/middleware"
	"github.com/IshaNayal/swasth-saathi/internal/repository"
	"github.com/IshaNayal/swasth-saathi/internal/repository/sqlite"
	"github.com/IshaNayal/swasth-saathi/internal/service"
	"github.com/IshaNayal/swasth-saathi/internal/throttle"
	"github.com/IshaNayal/swasth-saathi/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// storage is the persistence backend selected by STORAGE_DRIVER.
type storage struct {
	accounts repository.AccountRepository
	codes    repository.OTPRepository
	ping     handler.PingFunc
	close    func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.StorageDriver == config.StorageSQLite {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("INFO: using sqlite storage at %s", cfg.SQLitePath)
		return &storage{
			accounts: store.Accounts(),
			codes:    store.Codes(),
			ping:     store.Ping,
			close:    func() { _ = store.Close() },
		}, nil
	}

	dsn, err := cfg.DB.DSN()
	if err != nil {
		return nil, err
	}
	pool, err := config.ConnectDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := config.AutoMigrate(dsn); err != nil {
		pool.Close()
		return nil, err
	}
	return &storage{
		accounts: repository.NewAccountRepository(pool),
		codes:    repository.NewOTPRepository(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

func newSender(cfg *config.Config) delivery.Sender {
	if cfg.TwilioEnabled() {
		log.Println("INFO: delivering codes by SMS through Twilio")
		return delivery.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.OTPTTL())
	}
	log.Println("WARN: Twilio credentials not set, codes are only logged as sent")
	return delivery.NewLogSender()
}

// limits holds the throttles. They share Redis when REDIS_ADDR is set and
// fall back to per-process counters otherwise.
type limits struct {
	resend   throttle.Limiter
	attempts throttle.Counter
	perIP    throttle.Counter
	close    func()
}

func newLimits(ctx context.Context, cfg *config.Config) (*limits, error) {
	l := &limits{resend: throttle.Noop{}, close: func() {}}

	var client *redis.Client
	if cfg.RedisAddr != "" {
		var err error
		client, err = throttle.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		l.close = func() { _ = client.Close() }
	}

	counter := func(prefix string, max int, window time.Duration) throttle.Counter {
		if client != nil {
			return throttle.NewRedisCounter(client, prefix, max, window)
		}
		return throttle.NewMemoryCounter(max, window, nil)
	}

	if cfg.ResendWindow() > 0 {
		l.resend = throttle.NewRedisLimiter(client, cfg.ResendWindow())
		log.Printf("INFO: one code per phone number every %s", cfg.ResendWindow())
	}
	if cfg.RedeemMaxAttempts > 0 {
		l.attempts = counter("otp:redeem:", cfg.RedeemMaxAttempts, cfg.OTPTTL())
	}
	if cfg.RateLimitPerMinute > 0 {
		l.perIP = counter("ratelimit:ip:", cfg.RateLimitPerMinute, time.Minute)
	}
	if client == nil {
		log.Println("WARN: REDIS_ADDR not set, rate limits are per process")
	}
	return l, nil
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if cfg.OTPReturnToClient {
		log.Println("WARN: OTP_RETURN_TO_CLIENT is on, codes are returned in API responses")
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStart()

	// --- Storage ---
	store, err := openStorage(startCtx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.close()

	lim, err := newLimits(startCtx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up rate limits: %v", err)
	}
	defer lim.close()

	// --- Services ---
	directory := service.NewUserDirectory(store.accounts, utils.SystemClock)
	ledger := service.NewOTPLedger(store.codes, utils.NewCodeHasher(cfg.BcryptCost), cfg.OTPTTL(), cfg.OTPLength, utils.SystemClock)
	issuer := utils.NewSessionIssuer(cfg.JWTSecret, cfg.SessionTTL(), utils.SystemClock)
	authService := service.NewAuthService(directory, ledger, issuer, newSender(cfg), service.AuthOptions{
		Limiter:            lim.resend,
		Attempts:           lim.attempts,
		ReturnCode:         cfg.OTPReturnToClient,
		DefaultCountryCode: cfg.PhoneDefaultCountryCode,
	})
	accountService := service.NewAccountService(directory)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	accountHandler := handler.NewAccountHandler(accountService)

	router := gin.Default()
	router.Use(corsMiddleware(cfg.CORSOrigin))

	sessionMW := middleware.SessionAuthMiddleware(authService)
	patientMW := middleware.PatientMiddleware()

	apiGroup := router.Group("/api/v1")
	if lim.perIP != nil {
		apiGroup.Use(middleware.RateLimitMiddleware(lim.perIP))
	}
	authHandler.RegisterAuthRoutes(apiGroup)
	accountHandler.RegisterAccountRoutes(apiGroup, sessionMW, patientMW)

	router.GET("/health", handler.Health(store.ping))

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("ERROR: server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
