package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod names the JWS algorithm used to sign tokens.
type SigningMethod string

const (
	MethodHS256 SigningMethod = "HS256"
	MethodHS384 SigningMethod = "HS384"
	MethodHS512 SigningMethod = "HS512"
	MethodEdDSA SigningMethod = "EdDSA"
)

// Kind distinguishes access tokens from refresh tokens. It is carried in the
// "type" claim.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// ErrTokenInvalid is returned by Decode for every signature, structure, kind
// or expiry failure. The underlying cause is wrapped for logging.
var ErrTokenInvalid = errors.New("invalid token")

const minHMACSecret = 32

// Config controls signing and verification.
type Config struct {
	SigningMethod SigningMethod
	// Secret is the shared key for the HS* family.
	Secret []byte
	// PrivateKey and PublicKey are raw or PEM encoded ed25519 keys for EdDSA.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Leeway     time.Duration
	// AllowShortSecret permits HMAC secrets under 32 bytes. Only tests and
	// local development should set it.
	AllowShortSecret bool
	Now              func() time.Time
}

// Claims is the signed claim set: sub, exp, jti, iat and type.
type Claims struct {
	Kind Kind `json:"type"`
	jwt.RegisteredClaims
}

// Issued is the result of signing a new token.
type Issued struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Manager signs and verifies tokens. It holds no mutable state and is safe
// for concurrent use.
type Manager struct {
	config     Config
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	parserOpts []jwt.ParserOption
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	m := &Manager{config: cfg}

	switch SigningMethod(strings.ToUpper(string(cfg.SigningMethod))) {
	case MethodHS256:
		m.method = jwt.SigningMethodHS256
	case MethodHS384:
		m.method = jwt.SigningMethodHS384
	case MethodHS512:
		m.method = jwt.SigningMethodHS512
	case "EDDSA", "ED25519":
		m.method = jwt.SigningMethodEdDSA
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	if m.method == jwt.SigningMethodEdDSA {
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		m.signKey = priv
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		} else {
			m.verifyKey = priv.Public()
		}
	} else {
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hmac signing requires a secret")
		}
		if len(cfg.Secret) < minHMACSecret && !cfg.AllowShortSecret {
			return nil, fmt.Errorf("hmac secret must be at least %d bytes", minHMACSecret)
		}
		secret := append([]byte(nil), cfg.Secret...)
		m.signKey = secret
		m.verifyKey = secret
	}

	m.parserOpts = []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		m.parserOpts = append(m.parserOpts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		m.parserOpts = append(m.parserOpts, jwt.WithIssuer(cfg.Issuer))
	}

	return m, nil
}

// Algorithm reports the JWS "alg" value in use.
func (m *Manager) Algorithm() string {
	return m.method.Alg()
}

// Issue signs a new token for subject. Every call draws a fresh random jti.
func (m *Manager) Issue(subject string, kind Kind, ttl time.Duration) (Issued, error) {
	if subject == "" {
		return Issued{}, errors.New("empty subject")
	}
	if kind != KindAccess && kind != KindRefresh {
		return Issued{}, fmt.Errorf("unknown token kind %q", kind)
	}
	if ttl <= 0 {
		return Issued{}, errors.New("invalid TTL configuration")
	}

	now := m.config.Now()
	// NumericDate has second precision; compute expiry on the truncated
	// instant so the returned ExpiresAt matches the signed claim.
	now = now.Truncate(time.Second)
	expiresAt := now.Add(ttl)
	id := uuid.NewString()

	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        id,
			Issuer:    m.config.Issuer,
		},
	}

	token, err := jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
	if err != nil {
		return Issued{}, err
	}

	return Issued{Token: token, ID: id, ExpiresAt: expiresAt}, nil
}

// Decode verifies the signature, algorithm and expiry of token and returns
// its claims. Expired tokens fail here rather than downstream.
func (m *Manager) Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	parsed, err := jwt.NewParser(m.parserOpts...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing jti or sub", ErrTokenInvalid)
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrTokenInvalid, claims.Kind)
	}

	return claims, nil
}

// Expiry returns the absolute expiry carried by the claims.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == 0 {
		return nil, errors.New("eddsa requires a private key")
	}
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
