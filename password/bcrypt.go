package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minBcryptCost = 10

type bcryptScheme struct {
	cost int
}

func newBcryptScheme(cost int) (*bcryptScheme, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost + 2
	}
	if cost < minBcryptCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &bcryptScheme{cost: cost}, nil
}

func (b *bcryptScheme) hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (b *bcryptScheme) verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (b *bcryptScheme) needsUpgrade(digest string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false, err
	}
	return cost < b.cost, nil
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}
