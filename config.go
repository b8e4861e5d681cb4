package schedauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/schedauth/jwt"
	"github.com/MrEthical07/schedauth/password"
)

// DevSecretKey is the signing secret of the development defaults. It is
// rejected in production.
const DevSecretKey = "schedauth-development-secret-change-me!"

// Config is the full, explicit configuration of an Engine. Start from
// DefaultConfig and override what you need.
type Config struct {
	// Environment is "development" or "production".
	Environment string
	JWT         JWTConfig
	Password    PasswordConfig
	Lockout     LockoutConfig
	OTP         OTPConfig
	OAuth       OAuthConfig
	Cipher      CipherConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

type JWTConfig struct {
	// SigningMethod is one of HS256, HS384, HS512 or EdDSA.
	SigningMethod string
	Secret        []byte
	// PrivateKey and PublicKey are PEM or raw ed25519 keys for EdDSA.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

type PasswordConfig struct {
	// Algorithm is "bcrypt" or "argon2id".
	Algorithm  string
	BcryptCost int
	Argon2     password.Argon2Config
	// UpgradeOnLogin re-hashes digests made with weaker parameters after a
	// successful login, when the repository implements PasswordHashUpdater.
	UpgradeOnLogin bool
}

// LockoutConfig drives the brute-force guard: MaxAttempts failures inside
// Window lock the account for Duration.
type LockoutConfig struct {
	MaxAttempts int
	Window      time.Duration
	Duration    time.Duration
}

type OTPConfig struct {
	Digits int
	// TTL is used when RequestOTP is called with a zero ttl.
	TTL time.Duration
	// SendInterval is the minimum time between two codes for the same
	// (action, account).
	SendInterval  time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
	LockDuration  time.Duration
	// RevealCode makes SendOTP return the code. Never honoured in production.
	RevealCode bool
}

type OAuthConfig struct {
	StateTTL   time.Duration
	StateBytes int
}

type CipherConfig struct {
	// Key is a base64 encoded 32 byte key. Empty outside production means
	// an ephemeral key is generated at Build.
	Key string
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns development defaults matching the deployed service:
// 15 minute access tokens, 30 day refresh tokens, 5 failures in 5 minutes
// for a 5 minute lock, 6 digit codes valid for 5 minutes.
func DefaultConfig() Config {
	return Config{
		Environment: "development",
		JWT: JWTConfig{
			SigningMethod: string(jwt.MethodHS256),
			Secret:        []byte(DevSecretKey),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Algorithm:      string(password.AlgorithmBcrypt),
			BcryptCost:     12,
			Argon2:         password.DefaultArgon2Config(),
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			MaxAttempts: 5,
			Window:      300 * time.Second,
			Duration:    300 * time.Second,
		},
		OTP: OTPConfig{
			Digits:        6,
			TTL:           300 * time.Second,
			SendInterval:  60 * time.Second,
			MaxAttempts:   5,
			AttemptWindow: 300 * time.Second,
			LockDuration:  300 * time.Second,
			RevealCode:    true,
		},
		OAuth: OAuthConfig{
			StateTTL:   300 * time.Second,
			StateBytes: 32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Production reports whether c describes a production deployment.
func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks internal consistency, and in production additionally
// rejects development secrets and a missing cipher key.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "development", "production", "test":
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}

	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be longer than AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > time.Minute {
		return errors.New("JWT Leeway must be between 0 and 1m")
	}

	switch password.Algorithm(c.Password.Algorithm) {
	case password.AlgorithmBcrypt, password.AlgorithmArgon2id:
	default:
		return fmt.Errorf("unsupported password algorithm %q", c.Password.Algorithm)
	}

	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout MaxAttempts must be > 0")
	}
	if c.Lockout.Window <= 0 || c.Lockout.Duration <= 0 {
		return errors.New("Lockout Window and Duration must be > 0")
	}

	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 4 and 10")
	}
	if c.OTP.TTL <= 0 || c.OTP.SendInterval <= 0 {
		return errors.New("OTP TTL and SendInterval must be > 0")
	}
	if c.OTP.MaxAttempts <= 0 || c.OTP.AttemptWindow <= 0 || c.OTP.LockDuration <= 0 {
		return errors.New("OTP attempt limits must be > 0")
	}

	if c.OAuth.StateTTL <= 0 {
		return errors.New("OAuth StateTTL must be > 0")
	}
	if c.OAuth.StateBytes < 16 {
		return errors.New("OAuth StateBytes must be >= 16")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	if c.Production() {
		if strings.TrimSpace(c.Cipher.Key) == "" {
			return errors.New("production requires an OAuth token cipher key")
		}
		if isHMAC(c.JWT.SigningMethod) {
			if string(c.JWT.Secret) == DevSecretKey {
				return errors.New("production must not use the development signing secret")
			}
			if len(c.JWT.Secret) < 32 {
				return errors.New("production signing secret must be at least 32 bytes")
			}
		}
		if c.OTP.RevealCode {
			return errors.New("production must not reveal OTP codes")
		}
	}
	return nil
}

func signingMethod(method string) jwt.SigningMethod {
	method = strings.TrimSpace(method)
	if strings.EqualFold(method, string(jwt.MethodEdDSA)) {
		return jwt.MethodEdDSA
	}
	return jwt.SigningMethod(strings.ToUpper(method))
}

func isHMAC(method string) bool {
	switch signingMethod(method) {
	case jwt.MethodHS256, jwt.MethodHS384, jwt.MethodHS512:
		return true
	}
	return false
}
