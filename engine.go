package schedauth

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/schedauth/cipher"
	internalaudit "github.com/MrEthical07/schedauth/internal/audit"
	"github.com/MrEthical07/schedauth/internal/flows"
	"github.com/MrEthical07/schedauth/internal/limiters"
	internalmetrics "github.com/MrEthical07/schedauth/internal/metrics"
	"github.com/MrEthical07/schedauth/internal/stores"
	"github.com/MrEthical07/schedauth/jwt"
	"github.com/MrEthical07/schedauth/password"
	"github.com/MrEthical07/schedauth/session"
	"github.com/MrEthical07/schedauth/store"
	"go.uber.org/zap"
)

// Engine is the session authority. Build one with New().…Build(); all
// methods are safe for concurrent use.
type Engine struct {
	config Config
	log    *zap.Logger
	now    func() time.Time
	newID  func() string

	kv          *store.Store
	hasher      *password.Hasher
	tokens      *jwt.Manager
	cipher      *cipher.Cipher
	ephemeral   bool
	lockout     *limiters.LockoutLimiter
	otpLimiter  *limiters.OTPLimiter
	otpStore    *stores.OTPStore
	oauthStates *stores.OAuthStateStore
	refreshList *session.RefreshAllowList
	blacklist   *session.AccessBlacklist

	accounts  AccountRepository
	platforms PlatformRepository
	mailer    EmailSender

	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics
	flows   flows.Deps[*Account]
}

// Close flushes pending audit events. The Redis client and repositories
// belong to the caller and are left open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
	_ = e.log.Sync()
}

// Ready reports whether the state store answers.
func (e *Engine) Ready(ctx context.Context) error {
	if e == nil || e.kv == nil {
		return ErrEngineNotReady
	}
	if err := e.kv.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (e *Engine) ready() error {
	if e == nil || e.tokens == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	return nil
}
