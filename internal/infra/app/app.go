package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/core/port"
	"github.com/okorelov/profile-auth/internal/infra/config"
	"github.com/okorelov/profile-auth/internal/infra/database"
	kafkainfra "github.com/okorelov/profile-auth/internal/infra/kafka"
	"github.com/okorelov/profile-auth/internal/infra/logger"
	"github.com/okorelov/profile-auth/internal/infra/mailer"
	redisinfra "github.com/okorelov/profile-auth/internal/infra/redis"
	"github.com/okorelov/profile-auth/internal/infra/security"
	"github.com/okorelov/profile-auth/internal/infra/telemetry"
	memoryrepo "github.com/okorelov/profile-auth/internal/repository/memory"
	postgresrepo "github.com/okorelov/profile-auth/internal/repository/postgres"
	redisrepo "github.com/okorelov/profile-auth/internal/repository/redis"
	"github.com/okorelov/profile-auth/internal/transport/http/middleware"
	"github.com/okorelov/profile-auth/internal/transport/http/routes"
	"github.com/okorelov/profile-auth/internal/usecase"
)

type Application struct {
	cfg          *config.AppConfig
	engine       *gin.Engine
	logger       *zap.Logger
	pool         *pgxpool.Pool
	redis        *redisinfra.Client
	producer     *kafkainfra.Producer
	tracer       *telemetry.TracerProvider
	smtp         *mailer.SMTPMailer
	versionCache port.TokenVersionCache
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	loginMetrics, err := telemetry.Attach(nil)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	issuer, err := security.NewTokenIssuer(
		cfg.App.Name,
		[]byte(cfg.JWT.AccessSecret),
		[]byte(cfg.JWT.RefreshSecret),
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	accounts := postgresrepo.NewAccountRepository(pool)

	var (
		redisClient  *redisinfra.Client
		graceStore   port.RefreshGraceStore
		versionCache port.TokenVersionCache
		rateLimiter  *middleware.RateLimiter
	)

	if cfg.Redis.Enabled {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}

		graceStore = redisrepo.NewRefreshGraceStore(redisClient.Client(), cfg.Redis.GracePrefix)
		versionCache = redisrepo.NewTokenVersionCache(redisClient.Client(), cfg.Redis.TokenVersionPrefix)

		rateLimitWindow := cfg.RateLimit.WindowDuration
		if rateLimitWindow <= 0 {
			rateLimitWindow = time.Minute
		}
		rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: cfg.Redis.RateLimitPrefix,
			TTL:       rateLimitWindow * 2,
		})
		rateLimiter = middleware.NewRateLimiter(rateLimitStore, log)
	} else {
		log.Info("redis disabled, using in-process grace store")
		graceStore = memoryrepo.NewRefreshGraceStore()
	}

	var (
		eventPublisher port.EventPublisher
		producer       *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
			producer = nil
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var accountMailer port.Mailer
	var smtpMailer *mailer.SMTPMailer
	if cfg.SMTP.Host != "" {
		smtpMailer, err = mailer.NewSMTPMailer(cfg.SMTP, cfg.App.ResetLinkBase, log)
		if err != nil {
			return nil, fmt.Errorf("init mailer: %w", err)
		}
		accountMailer = smtpMailer
	} else {
		log.Info("smtp host not configured, reset emails disabled")
	}

	policy := domain.DefaultLockoutPolicy()
	if cfg.Lockout.Threshold > 0 {
		policy.Threshold = cfg.Lockout.Threshold
	}
	if durations := cfg.Lockout.LockoutDurations(); len(durations) > 0 {
		policy.Durations = durations
	}

	passwordValidator := security.DefaultPasswordValidator()

	authService, err := usecase.NewAuthService(accounts, graceStore, versionCache, eventPublisher, issuer, policy, log)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	authService.WithGraceWindow(cfg.Lockout.GraceWindow)
	authService.WithVersionCacheTTL(cfg.Redis.TokenVersionTTL)

	passwordService, err := usecase.NewPasswordService(accounts, versionCache, eventPublisher, accountMailer, passwordValidator, log)
	if err != nil {
		return nil, fmt.Errorf("init password service: %w", err)
	}
	passwordService.WithResetTokenTTL(cfg.Lockout.ResetTTL)

	registrationService, err := usecase.NewRegistrationService(accounts, eventPublisher, passwordValidator, log)
	if err != nil {
		return nil, fmt.Errorf("init registration service: %w", err)
	}

	profileService, err := usecase.NewProfileService(accounts)
	if err != nil {
		return nil, fmt.Errorf("init profile service: %w", err)
	}

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	deps := routes.Dependencies{
		Config:       cfg,
		Logger:       log,
		RateLimiter:  rateLimiter,
		Metrics:      metrics,
		LoginMetrics: loginMetrics,
		Database:     pool,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Passwords:    passwordService,
			Profiles:     profileService,
		},
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}

	engine := routes.Register(deps)

	return &Application{
		cfg:          cfg,
		engine:       engine,
		logger:       log,
		pool:         pool,
		redis:        redisClient,
		producer:     producer,
		tracer:       tracer,
		smtp:         smtpMailer,
		versionCache: versionCache,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.smtp != nil {
			a.smtp.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	a.startRevocationConsumer(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// startRevocationConsumer joins the consumer group that keeps the local token
// version cache in sync with revocations performed by other instances. Needs
// both Kafka and the Redis cache to be useful.
func (a *Application) startRevocationConsumer(ctx context.Context) {
	if len(a.cfg.Kafka.Brokers) == 0 || a.versionCache == nil {
		return
	}

	consumer := kafkainfra.NewTokenVersionConsumer(a.versionCache, a.cfg.Redis.TokenVersionTTL, a.logger)
	handler := kafkainfra.NewConsumerGroupHandler(consumer, a.logger)

	topic := kafkainfra.EventTypeTokensRevoked
	if a.cfg.Kafka.TopicPrefix != "" {
		topic = fmt.Sprintf("%s.%s", a.cfg.Kafka.TopicPrefix, topic)
	}

	go func() {
		err := kafkainfra.RunTokenVersionConsumer(ctx, a.cfg.Kafka.Brokers, a.cfg.Kafka.ConsumerGroup, topic, handler, a.logger)
		if err != nil {
			a.logger.Error("token version consumer stopped", zap.Error(err))
		}
	}()
}
