package core

import (
	"crypto/subtle"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Checker hashes and compares auth secrets of users, courses and temporary tokens.
type Checker interface {
	Hash(secret string) (string, error)
	Check(hashed, secret string) bool
}

// NewSecret returns a fresh 32 hex chars auth secret.
func NewSecret() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// PlainChecker stores secrets as is and compares them for equality.
type PlainChecker struct{}

func (PlainChecker) Hash(secret string) (string, error) { return secret, nil }

func (PlainChecker) Check(hashed, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(hashed), []byte(secret)) == 1
}

type BcryptChecker struct {
	Cost int
}

func (c BcryptChecker) Hash(secret string) (string, error) {
	cost := c.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", errors.Wrap(err, "hashing secret")
	}
	return string(hash), nil
}

func (BcryptChecker) Check(hashed, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}

// NewChecker returns the checker configured by `credentials`.
func NewChecker(kind string) (Checker, error) {
	switch kind {
	case "", "plain":
		return PlainChecker{}, nil
	case "bcrypt":
		return BcryptChecker{}, nil
	default:
		return nil, errors.Errorf("unknown credentials checker %q", kind)
	}
}
