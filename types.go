package schedauth

import (
	"context"
	"time"

	"github.com/MrEthical07/schedauth/email"
	internalaudit "github.com/MrEthical07/schedauth/internal/audit"
	"github.com/MrEthical07/schedauth/jwt"
)

// Account is a registered user as stored by the AccountRepository.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// IssuedToken is one signed token with its id and absolute expiry.
type IssuedToken = jwt.Issued

// Claims is the decoded content of an access or refresh token.
type Claims = jwt.Claims

type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// ConnectedPlatform links an account to a third-party provider. Token
// fields hold ciphertext produced by the Engine's cipher; they are never
// plaintext at rest.
type ConnectedPlatform struct {
	ID              string
	AccountID       string
	Provider        string
	ProviderUserID  string
	AccessTokenEnc  string
	RefreshTokenEnc string
	TokenExpiresAt  *time.Time
	Scope           string
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PlatformTokens is the decrypted view of a ConnectedPlatform's tokens.
type PlatformTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// OAuthState is what a consumed state token was bound to.
type OAuthState struct {
	AccountID string
	Provider  string
}

type LinkPlatformRequest struct {
	AccountID      string
	Provider       string
	ProviderUserID string
	AccessToken    string
	RefreshToken   string
	ExpiresAt      *time.Time
	Scope          string
	Metadata       map[string]any
}

// LogoutRequest carries whatever tokens the client still holds. Any field
// may be empty.
type LogoutRequest struct {
	AccessToken  string
	RefreshToken string
	RevokeAll    bool
}

// AccountRepository persists accounts. Lookups return (nil, nil) when
// nothing matches; Create returns an error matching ErrDuplicate when the
// email or username is taken.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// PasswordHashUpdater is implemented by repositories that can store a
// re-hashed password. When present, the Engine upgrades outdated digests
// after a successful login.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, id, digest string) error
}

// PlatformRepository persists connected platforms. Lookups return
// (nil, nil) when nothing matches.
type PlatformRepository interface {
	Create(ctx context.Context, p *ConnectedPlatform) error
	FindByID(ctx context.Context, id string) (*ConnectedPlatform, error)
	FindByAccountAndProvider(ctx context.Context, accountID, provider string) (*ConnectedPlatform, error)
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*ConnectedPlatform, error)
	ListByAccount(ctx context.Context, accountID string) ([]ConnectedPlatform, error)
	UpdateTokens(ctx context.Context, id, accessTokenEnc, refreshTokenEnc string, expiresAt *time.Time) error
	UpdateProviderUserID(ctx context.Context, id, providerUserID string) error
	Delete(ctx context.Context, id string) error
}

type EmailMessage = email.Message

// EmailSender delivers one message. A returned error means the recipient
// must be assumed not to have received it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Audit types are shared with internal/audit.
type (
	AuditEvent     = internalaudit.Event
	AuditSink      = internalaudit.Sink
	NoOpSink       = internalaudit.NoOpSink
	ChannelSink    = internalaudit.ChannelSink
	JSONWriterSink = internalaudit.JSONWriterSink
	ZapSink        = internalaudit.ZapSink
	MultiSink      = internalaudit.MultiSink
)

var (
	NewChannelSink    = internalaudit.NewChannelSink
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	NewZapSink        = internalaudit.NewZapSink
)
