package schedauth

import (
	"context"
	"errors"
	"strings"
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
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder is the composition root. Every collaborator is injected here;
// nothing is read from the process environment.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	accounts  AccountRepository
	platforms PlatformRepository
	mailer    EmailSender
	auditSink AuditSink
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	built bool
}

func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared state store. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountRepository is required.
func (b *Builder) WithAccountRepository(r AccountRepository) *Builder {
	b.accounts = r
	return b
}

// WithPlatformRepository enables the OAuth linkage operations.
func (b *Builder) WithPlatformRepository(r PlatformRepository) *Builder {
	b.platforms = r
	return b
}

// WithEmailSender enables SendOTP.
func (b *Builder) WithEmailSender(s EmailSender) *Builder {
	b.mailer = s
	return b
}

// WithAuditSink replaces the default sink, which writes events to the
// Engine's logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides time.Now for token timestamps and blacklist TTLs.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithIDGenerator overrides uuid.NewString for account and platform ids.
func (b *Builder) WithIDGenerator(newID func() string) *Builder {
	b.newID = newID
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine. A Builder can
// be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account repository required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("schedauth")
	now := b.now
	if now == nil {
		now = time.Now
	}
	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}

	hasher, err := password.NewHasher(password.Config{
		Algorithm:  password.Algorithm(cfg.Password.Algorithm),
		BcryptCost: cfg.Password.BcryptCost,
		Argon2:     cfg.Password.Argon2,
	}, log.Named("password"))
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		SigningMethod:    signingMethod(cfg.JWT.SigningMethod),
		Secret:           cloneBytes(cfg.JWT.Secret),
		PrivateKey:       cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:        cloneBytes(cfg.JWT.PublicKey),
		Issuer:           cfg.JWT.Issuer,
		Leeway:           cfg.JWT.Leeway,
		AllowShortSecret: !cfg.Production(),
		Now:              now,
	})
	if err != nil {
		return nil, err
	}

	ciph, ephemeral, err := buildCipher(cfg, log)
	if err != nil {
		return nil, err
	}

	lockout, err := limiters.NewLockoutLimiter(b.redis, limiters.LockoutConfig{
		Threshold: cfg.Lockout.MaxAttempts,
		Window:    cfg.Lockout.Window,
		Duration:  cfg.Lockout.Duration,
	})
	if err != nil {
		return nil, err
	}
	otpLimiter, err := limiters.NewOTPLimiter(b.redis, limiters.OTPAttemptConfig{
		Threshold:    cfg.OTP.MaxAttempts,
		Window:       cfg.OTP.AttemptWindow,
		LockDuration: cfg.OTP.LockDuration,
	})
	if err != nil {
		return nil, err
	}

	kv := store.New(b.redis)

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewZapSink(log.Named("audit"))
	}

	e := &Engine{
		config:      cfg,
		log:         log,
		now:         now,
		newID:       newID,
		kv:          kv,
		hasher:      hasher,
		tokens:      tokens,
		cipher:      ciph,
		ephemeral:   ephemeral,
		lockout:     lockout,
		otpLimiter:  otpLimiter,
		otpStore:    stores.NewOTPStore(b.redis, cfg.OTP.SendInterval),
		oauthStates: stores.NewOAuthStateStore(kv, cfg.OAuth.StateTTL),
		refreshList: session.NewRefreshAllowList(b.redis),
		blacklist:   session.NewAccessBlacklist(kv, now),
		accounts:    b.accounts,
		platforms:   b.platforms,
		mailer:      b.mailer,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink, log),
		metrics: internalmetrics.New(cfg.Metrics.Enabled, cfg.Metrics.EnableLatencyHistograms),
	}
	e.flows = e.buildFlows()

	b.built = true
	return e, nil
}

func buildCipher(cfg Config, log *zap.Logger) (*cipher.Cipher, bool, error) {
	if key := strings.TrimSpace(cfg.Cipher.Key); key != "" {
		c, err := cipher.New(key)
		return c, false, err
	}
	if cfg.Production() {
		return nil, false, errors.New("production requires an OAuth token cipher key")
	}
	key, err := cipher.GenerateKey()
	if err != nil {
		return nil, false, err
	}
	c, err := cipher.New(key)
	if err != nil {
		return nil, false, err
	}
	log.Warn("oauth_cipher_ephemeral_key",
		zap.String("impact", "stored provider tokens become unreadable after restart"),
		zap.String("fix", "set a 32 byte base64 cipher key"),
	)
	return c, true, nil
}

func (e *Engine) buildFlows() flows.Deps[*Account] {
	decode := e.tokens.Decode
	return flows.Deps[*Account]{
		Authenticate: flows.AuthenticateDeps[*Account]{
			FindByEmail: func(ctx context.Context, email string) (*Account, bool, error) {
				a, err := e.accounts.FindByEmail(ctx, email)
				return a, a != nil, err
			},
			Credentials: func(a *Account) flows.Credentials {
				return flows.Credentials{ID: a.ID, PasswordHash: a.PasswordHash, Active: a.Active}
			},
			Verify:      e.hasher.Verify,
			VerifyDummy: e.hasher.VerifyDummy,
			Guard:       e.lockout,
		},
		Refresh: flows.RefreshDeps{
			Decode:    decode,
			IssuePair: e.issuePair,
			AllowList: e.refreshList,
			Now:       e.now,
		},
		Logout: flows.LogoutDeps{
			Decode:    decode,
			Revoke:    e.refreshList.Revoke,
			RevokeAll: e.refreshList.RevokeAll,
			Blacklist: e.blacklist.Add,
			Warn: func(step string, err error) {
				e.warn("logout_step_failed", zap.String("step", step), zap.Error(err))
			},
		},
		Validate: flows.ValidateDeps{
			Decode:      decode,
			Blacklisted: e.blacklist.Contains,
		},
		VerifyOTP: flows.VerifyOTPDeps{
			Guard:   e.otpLimiter,
			Consume: e.otpStore.Consume,
		},
	}
}
