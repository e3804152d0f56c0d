// Package password hashes and verifies user secrets (passwords, TOTP
// bootstrap material) with an adaptive work-factor algorithm. Hashing is the
// only CPU-expensive suspension point in the authentication path.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const minPassBytes = 8

// Config controls the bcrypt work factor.
type Config struct {
	Cost int
}

// Bcrypt is an immutable hasher. Safe for concurrent use.
type Bcrypt struct {
	cost int
}

// NewBcrypt validates cfg and returns a hasher. A zero cost selects the
// library default.
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash derives a salted digest from secret. Each call salts independently, so
// repeated calls over the same input produce distinct digests.
func (b *Bcrypt) Hash(secret string) (string, error) {
	if len(secret) < minPassBytes {
		return "", errors.New("secret must be at least 8 bytes")
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether candidate matches digest. Malformed digests verify
// as false; this function never fails for well-formed inputs. The comparison
// is constant-time within bcrypt.
func (b *Bcrypt) Verify(candidate, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(candidate)) == nil
}

// NeedsUpgrade reports whether digest was produced with a lower work factor
// than currently configured. Malformed digests report false; they fail
// verification anyway.
func (b *Bcrypt) NeedsUpgrade(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false
	}
	return cost < b.cost
}
