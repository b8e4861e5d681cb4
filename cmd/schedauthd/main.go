// Command schedauthd serves the schedauth HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/schedauth"
	"github.com/MrEthical07/schedauth/audit/kafkasink"
	"github.com/MrEthical07/schedauth/email"
	"github.com/MrEthical07/schedauth/httpapi"
	"github.com/MrEthical07/schedauth/internal/config"
	"github.com/MrEthical07/schedauth/internal/provider"
	otelexport "github.com/MrEthical07/schedauth/metrics/export/otel"
	"github.com/MrEthical07/schedauth/storage/memory"
	"github.com/MrEthical07/schedauth/storage/postgres"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "schedauthd:", err)
		os.Exit(1)
	}
}

func run() error {
	env, err := config.Load()
	if err != nil {
		return err
	}
	if err := env.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cookie, err := env.Cookie()
	if err != nil {
		return err
	}

	log, err := config.NewLogger(env.LogLevel, env.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(env.RedisURL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	var (
		accounts  schedauth.AccountRepository
		platforms schedauth.PlatformRepository
	)
	if env.DatabaseURL != "" {
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := postgres.Open(initCtx, env.DatabaseURL, postgres.PoolConfig{})
		if err == nil {
			err = postgres.Migrate(initCtx, pool)
		}
		cancel()
		if err != nil {
			return err
		}
		defer pool.Close()
		accounts, platforms = postgres.NewAccounts(pool), postgres.NewPlatforms(pool)
	} else {
		log.Warn("no database configured, accounts are kept in memory")
		accounts, platforms = memory.NewAccounts(), memory.NewPlatforms()
	}

	var mailer schedauth.EmailSender = email.NewLogSender(log.Named("email"))
	if smtpCfg := env.SMTP(); smtpCfg != nil {
		s, err := email.NewSMTPSender(*smtpCfg)
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		mailer = s
	}

	sinks := schedauth.MultiSink{schedauth.NewZapSink(log.Named("audit"))}
	if len(env.KafkaBrokers) > 0 {
		ks := kafkasink.New(kafkasink.Config{
			Brokers: env.KafkaBrokers,
			Topic:   env.KafkaTopic,
			Source:  "schedauthd",
		}, log.Named("kafka"))
		defer func() { _ = ks.Close() }()
		sinks = append(sinks, ks)
	}

	engine, err := schedauth.New().
		WithConfig(env.EngineConfig()).
		WithRedis(rdb).
		WithAccountRepository(accounts).
		WithPlatformRepository(platforms).
		WithEmailSender(mailer).
		WithAuditSink(sinks).
		WithLogger(log).
		Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer engine.Close()

	if err := engine.Ready(ctx); err != nil {
		log.Warn("state store not reachable at startup", zap.Error(err))
	}
	for _, w := range engine.SecurityReport().Warnings {
		log.Warn("security_warning", zap.String("warning", w))
	}

	// Registered with the global provider so an embedding OTel SDK picks
	// the counters up; a no-op otherwise.
	exporter, err := otelexport.New(otel.Meter("github.com/MrEthical07/schedauth"), engine)
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}
	defer func() { _ = exporter.Close() }()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpapi.Register(e, httpapi.Options{
		Engine:    engine,
		Providers: provider.NewRegistry(env.Providers()...),
		Cookie: httpapi.CookieOptions{
			Secure:   cookie.Secure,
			SameSite: cookie.SameSite,
			Domain:   cookie.Domain,
		},
		TrustProxy: env.TrustProxy,
		Logger:     log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", env.HTTPAddr), zap.String("environment", env.Environment))
		if err := e.Start(env.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	return nil
}
