// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"agromarket/account-api/db"
	"agromarket/account-api/internal/auth"
	"agromarket/account-api/internal/service"
	"agromarket/account-api/internal/store"
	"agromarket/account-api/middleware"
	"agromarket/account-api/pkg/security"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"
	"github.com/go-redis/redis/v8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

const requestTimeout = 10 * time.Second

type API struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Auth    *auth.Facade
	Issuer  *auth.TokenIssuer
	Sweeper *service.TokenSweeper

	mailWorker *service.MailWorker
	cacheStore persist.CacheStore
}

func NewRouter() (*API, error) {
	a := &API{}

	makeLogger()

	conn, err := db.New(viper.GetString("db.driver"), viper.GetString("db.dsn"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = conn

	userStore := store.NewUserStore(conn)
	tokenStore := store.NewTokenStore(conn)
	resendStore := store.NewResendStore(conn)

	hasher := security.NewArgonHash()
	hasher.Memory = viper.GetUint32("hash.memory")
	hasher.Iterations = viper.GetUint32("hash.iterations")
	hasher.Parallelism = uint8(viper.GetUint("hash.parallelism"))

	accessSigner := security.NewSigner(viper.GetString("jwt.access_secret"))
	refreshSigner := security.NewSigner(viper.GetString("jwt.refresh_secret"))

	cfg := auth.Config{
		AccessTTL:       viper.GetDuration("auth.access_ttl"),
		RefreshTTL:      viper.GetDuration("auth.refresh_ttl"),
		VerifyTTL:       viper.GetDuration("auth.verify_ttl"),
		ResetTTL:        viper.GetDuration("auth.reset_ttl"),
		RequireVerified: viper.GetBool("auth.require_verified"),
		BaseURL:         viper.GetString("host.base_url"),
		MailTimeout:     viper.GetDuration("mail.timeout"),
		ResendCooldown:  viper.GetDuration("auth.resend_cooldown"),
	}

	a.Issuer = auth.NewTokenIssuer(accessSigner, refreshSigner, cfg.AccessTTL)
	creds := auth.NewCredentialManager(userStore, hasher)
	revoker := auth.NewSessionRevoker(tokenStore)

	mailer := service.NewSMTPMailer(service.MailConfig{
		Host:     viper.GetString("mail.host"),
		Port:     viper.GetInt("mail.port"),
		From:     viper.GetString("mail.sender_address"),
		Password: viper.GetString("mail.password"),
	})

	// With redis available mails go through the task queue and the response
	// cache survives restarts; without it everything stays in-process.
	var facadeMailer auth.Mailer = mailer
	if addr := viper.GetString("redis.addr"); addr != "" {
		queue := service.NewMailQueue(addr)
		facadeMailer = queue

		a.mailWorker = service.NewMailWorker(addr, mailer)
		if err := a.mailWorker.Start(); err != nil {
			return nil, fmt.Errorf("failed to start mail worker, %w", err)
		}

		a.cacheStore = persist.NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}))
	} else {
		a.cacheStore = persist.NewMemoryStore(time.Minute)
	}

	a.Auth = auth.NewFacade(creds, a.Issuer, userStore, tokenStore, resendStore, revoker, facadeMailer, cfg)

	a.Sweeper, err = service.NewTokenSweeper(tokenStore, viper.GetString("sweep.schedule"))
	if err != nil {
		return nil, fmt.Errorf("failed to schedule token sweeper, %w", err)
	}
	a.Sweeper.Start()

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	jwt := middleware.NewJWTMiddleware(a.Issuer)
	limited := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: viper.GetInt("ratelimit.requests_per_second"),
		Burst:             viper.GetInt("ratelimit.burst"),
	})

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// GET /api/health		-> Reports service and database health
		main.GET("/health", a.cacheFor(5), a.Health)

		// HEAD /api/validate		-> Validates an access token
		main.HEAD("/validate", jwt, a.Validate)
	}

	users := main.Group("/users", middleware.BodySizeLimiter(1<<20), limited)
	{
		// POST /api/users 		-> Registers a new user
		users.POST("", a.UserRegister)

		// POST /api/users/login 	-> Verifies credentials and returns a token pair
		users.POST("/login", a.UserLogin)

		// POST /api/users/refresh	-> Rotates a refresh token into a new pair
		users.POST("/refresh", a.TokenRefresh)

		// GET /api/users/verify 	-> Consumes an email-verification token
		users.GET("/verify", a.UserVerify)

		// POST /api/users/resend	-> Resends the verification mail (cooldown-gated)
		users.POST("/resend", a.UserResend)

		// POST /api/users/forgot-password -> Requests a password-reset mail
		users.POST("/forgot-password", a.PasswordForgot)

		// POST /api/users/reset-password  -> Consumes a reset token and sets the new password
		users.POST("/reset-password", a.PasswordReset)

		// POST /api/users/logout	-> Revokes the presented refresh token
		users.POST("/logout", a.UserLogout)

		// POST /api/users/logout-all	-> Revokes every session of the caller
		users.POST("/logout-all", jwt, a.UserLogoutAll)

		// GET /api/users/me		-> Returns the caller's profile
		users.GET("/me", jwt, a.UserFetch)
	}

	return a, nil
}

// Shutdown stops the background pieces. The HTTP listener is owned by main.
func (a *API) Shutdown() {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.mailWorker != nil {
		a.mailWorker.Shutdown()
	}
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func (a *API) cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(a.cacheStore, time.Second*time.Duration(sec))
}
