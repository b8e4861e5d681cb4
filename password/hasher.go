package password

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Algorithm selects the scheme used for new digests.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// ErrUnknownDigest is logged when a stored digest matches no supported scheme.
var ErrUnknownDigest = errors.New("unrecognised password digest")

// Config selects the hashing algorithm and its cost.
type Config struct {
	Algorithm  Algorithm
	BcryptCost int
	Argon2     Argon2Config
}

type scheme interface {
	hash(password string) (string, error)
	verify(password, digest string) (bool, error)
	needsUpgrade(digest string) (bool, error)
}

// Hasher produces and checks salted one-way password digests. Digests from
// either supported scheme verify regardless of which one is configured for
// new hashes, so switching algorithms does not lock anyone out.
type Hasher struct {
	algorithm Algorithm
	bcrypt    *bcryptScheme
	argon2    *argon2Scheme
	primary   scheme
	dummy     string
	logger    *zap.Logger
}

func NewHasher(cfg Config, logger *zap.Logger) (*Hasher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBcrypt
	}
	if cfg.Argon2 == (Argon2Config{}) {
		cfg.Argon2 = DefaultArgon2Config()
	}

	bs, err := newBcryptScheme(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	as, err := newArgon2Scheme(cfg.Argon2)
	if err != nil {
		return nil, err
	}

	h := &Hasher{
		algorithm: cfg.Algorithm,
		bcrypt:    bs,
		argon2:    as,
		logger:    logger,
	}
	switch cfg.Algorithm {
	case AlgorithmBcrypt:
		h.primary = bs
	case AlgorithmArgon2id:
		h.primary = as
	default:
		return nil, errors.New("unsupported password algorithm")
	}

	dummy, err := h.primary.hash("schedauth-dummy-password")
	if err != nil {
		return nil, err
	}
	h.dummy = dummy

	return h, nil
}

// Algorithm reports the scheme used for new digests.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Hash returns a salted digest of password.
func (h *Hasher) Hash(password string) (string, error) {
	return h.primary.hash(password)
}

// Verify reports whether password matches digest. A malformed digest is
// logged and reported as a mismatch; Verify never returns an error.
func (h *Hasher) Verify(password, digest string) bool {
	s := h.schemeFor(digest)
	if s == nil {
		h.logger.Warn("password_verify_failed", zap.Error(ErrUnknownDigest))
		return false
	}

	ok, err := s.verify(password, digest)
	if err != nil {
		h.logger.Warn("password_verify_failed", zap.Error(err))
		return false
	}
	return ok
}

// VerifyDummy spends the same work as a real verification against a digest
// that can never match. Callers use it when the account does not exist.
func (h *Hasher) VerifyDummy(password string) {
	_, _ = h.primary.verify(password, h.dummy)
}

// NeedsUpgrade reports whether digest was produced by a different scheme or
// with weaker parameters than the current configuration.
func (h *Hasher) NeedsUpgrade(digest string) bool {
	s := h.schemeFor(digest)
	if s == nil {
		return false
	}
	if s != h.primary {
		return true
	}
	upgrade, err := s.needsUpgrade(digest)
	return err == nil && upgrade
}

func (h *Hasher) schemeFor(digest string) scheme {
	switch {
	case isBcryptDigest(digest):
		return h.bcrypt
	case strings.HasPrefix(digest, argon2Prefix):
		return h.argon2
	default:
		return nil
	}
}
