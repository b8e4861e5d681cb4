package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/schedauth"
	"github.com/MrEthical07/schedauth/email"
	"github.com/MrEthical07/schedauth/internal/provider"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env mirrors the environment. Token lifetimes keep the minute and day
// units of the deployed service.
type Env struct {
	Environment string `env:"SCHEDAUTH_ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"SCHEDAUTH_HTTP_ADDR" envDefault:":8080"`
	LogLevel    string `env:"SCHEDAUTH_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"SCHEDAUTH_LOG_FORMAT" envDefault:"json"`
	TrustProxy  bool   `env:"SCHEDAUTH_TRUST_PROXY" envDefault:"false"`

	SecretKey          string        `env:"SCHEDAUTH_SECRET_KEY"`
	Algorithm          string        `env:"SCHEDAUTH_ALGORITHM" envDefault:"HS256"`
	Issuer             string        `env:"SCHEDAUTH_ISSUER"`
	AccessTokenMinutes int           `env:"SCHEDAUTH_ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"15"`
	RefreshTokenDays   int           `env:"SCHEDAUTH_REFRESH_TOKEN_EXPIRE_DAYS" envDefault:"30"`
	Leeway             time.Duration `env:"SCHEDAUTH_JWT_LEEWAY" envDefault:"0s"`

	PasswordAlgorithm string `env:"SCHEDAUTH_PASSWORD_ALGORITHM" envDefault:"bcrypt"`
	BcryptCost        int    `env:"SCHEDAUTH_BCRYPT_COST" envDefault:"12"`

	RedisURL    string `env:"SCHEDAUTH_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	DatabaseURL string `env:"SCHEDAUTH_DATABASE_URL"`

	OAuthTokenKey string `env:"SCHEDAUTH_OAUTH_TOKEN_KEY"`

	CookieSecure   bool   `env:"SCHEDAUTH_COOKIE_SECURE" envDefault:"false"`
	CookieSameSite string `env:"SCHEDAUTH_COOKIE_SAMESITE" envDefault:"lax"`
	CookieDomain   string `env:"SCHEDAUTH_COOKIE_DOMAIN"`

	LoginMaxAttempts int           `env:"SCHEDAUTH_LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow      time.Duration `env:"SCHEDAUTH_LOGIN_WINDOW" envDefault:"300s"`
	LoginLockout     time.Duration `env:"SCHEDAUTH_LOGIN_LOCKOUT" envDefault:"300s"`

	OTPDigits       int           `env:"SCHEDAUTH_OTP_DIGITS" envDefault:"6"`
	OTPTTL          time.Duration `env:"SCHEDAUTH_OTP_TTL" envDefault:"300s"`
	OTPSendInterval time.Duration `env:"SCHEDAUTH_OTP_SEND_INTERVAL" envDefault:"60s"`
	OTPMaxAttempts  int           `env:"SCHEDAUTH_OTP_MAX_ATTEMPTS" envDefault:"5"`
	OTPLockout      time.Duration `env:"SCHEDAUTH_OTP_LOCKOUT" envDefault:"300s"`

	SMTPHost     string `env:"SCHEDAUTH_SMTP_HOST"`
	SMTPPort     int    `env:"SCHEDAUTH_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SCHEDAUTH_SMTP_USERNAME"`
	SMTPPassword string `env:"SCHEDAUTH_SMTP_PASSWORD"`
	SMTPFrom     string `env:"SCHEDAUTH_SMTP_FROM"`

	KafkaBrokers []string `env:"SCHEDAUTH_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"SCHEDAUTH_KAFKA_AUDIT_TOPIC" envDefault:"schedauth.audit"`

	InstagramClientID     string   `env:"INSTAGRAM_CLIENT_ID"`
	InstagramClientSecret string   `env:"INSTAGRAM_CLIENT_SECRET"`
	InstagramRedirectURI  string   `env:"INSTAGRAM_REDIRECT_URI"`
	InstagramAuthURL      string   `env:"INSTAGRAM_AUTH_URL"`
	InstagramTokenURL     string   `env:"INSTAGRAM_TOKEN_URL"`
	InstagramUserInfoURL  string   `env:"INSTAGRAM_USERINFO_URL"`
	InstagramScopes       []string `env:"INSTAGRAM_SCOPES" envSeparator:"," envDefault:"pages_show_list,instagram_basic,pages_read_engagement,pages_manage_posts"`
}

// Load reads files (default ".env") into the process environment when
// they exist, then parses it. Variables already set win over the files.
func Load(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Env{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

func (e Env) Production() bool {
	return strings.EqualFold(strings.TrimSpace(e.Environment), "production")
}

// EngineConfig derives the Engine configuration. Anything not set in the
// environment keeps its schedauth.DefaultConfig value.
func (e Env) EngineConfig() schedauth.Config {
	cfg := schedauth.DefaultConfig()
	cfg.Environment = strings.ToLower(strings.TrimSpace(e.Environment))

	cfg.JWT.SigningMethod = e.Algorithm
	if e.SecretKey != "" {
		cfg.JWT.Secret = []byte(e.SecretKey)
	}
	cfg.JWT.Issuer = e.Issuer
	cfg.JWT.AccessTTL = time.Duration(e.AccessTokenMinutes) * time.Minute
	cfg.JWT.RefreshTTL = time.Duration(e.RefreshTokenDays) * 24 * time.Hour
	cfg.JWT.Leeway = e.Leeway

	cfg.Password.Algorithm = e.PasswordAlgorithm
	cfg.Password.BcryptCost = e.BcryptCost

	cfg.Lockout.MaxAttempts = e.LoginMaxAttempts
	cfg.Lockout.Window = e.LoginWindow
	cfg.Lockout.Duration = e.LoginLockout

	cfg.OTP.Digits = e.OTPDigits
	cfg.OTP.TTL = e.OTPTTL
	cfg.OTP.SendInterval = e.OTPSendInterval
	cfg.OTP.MaxAttempts = e.OTPMaxAttempts
	cfg.OTP.AttemptWindow = e.OTPTTL
	cfg.OTP.LockDuration = e.OTPLockout
	cfg.OTP.RevealCode = !e.Production()

	cfg.Cipher.Key = e.OAuthTokenKey
	return cfg
}

// Cookie holds the refresh cookie attributes.
type Cookie struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

func (e Env) Cookie() (Cookie, error) {
	c := Cookie{Secure: e.CookieSecure, Domain: e.CookieDomain}
	switch strings.ToLower(strings.TrimSpace(e.CookieSameSite)) {
	case "", "lax":
		c.SameSite = http.SameSiteLaxMode
	case "strict":
		c.SameSite = http.SameSiteStrictMode
	case "none":
		c.SameSite = http.SameSiteNoneMode
	default:
		return Cookie{}, fmt.Errorf("unknown cookie samesite %q", e.CookieSameSite)
	}
	if c.SameSite == http.SameSiteNoneMode && !c.Secure {
		return Cookie{}, errors.New("samesite=none requires secure cookies")
	}
	return c, nil
}

// Validate applies the process-level production rules on top of
// schedauth.Config.Validate.
func (e Env) Validate() error {
	cfg := e.EngineConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := e.Cookie(); err != nil {
		return err
	}
	if e.Production() {
		if !e.CookieSecure {
			return errors.New("production requires secure cookies")
		}
		if e.DatabaseURL == "" {
			return errors.New("production requires SCHEDAUTH_DATABASE_URL")
		}
	}
	return nil
}

// SMTP returns nil when no relay is configured.
func (e Env) SMTP() *email.SMTPConfig {
	if e.SMTPHost == "" {
		return nil
	}
	return &email.SMTPConfig{
		Host:     e.SMTPHost,
		Port:     e.SMTPPort,
		Username: e.SMTPUsername,
		Password: e.SMTPPassword,
		From:     e.SMTPFrom,
	}
}

func (e Env) Providers() []provider.Config {
	return []provider.Config{{
		Name:         "instagram",
		ClientID:     e.InstagramClientID,
		ClientSecret: e.InstagramClientSecret,
		RedirectURI:  e.InstagramRedirectURI,
		AuthURL:      e.InstagramAuthURL,
		TokenURL:     e.InstagramTokenURL,
		UserInfoURL:  e.InstagramUserInfoURL,
		Scopes:       trimCSV(e.InstagramScopes),
	}}
}

func trimCSV(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
