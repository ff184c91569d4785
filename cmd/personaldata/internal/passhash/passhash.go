// Package passhash hashes and verifies passwords with bcrypt.
package passhash

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used by Hash.
const DefaultCost = 12

// maxPasswordLen is the longest input bcrypt accepts.
const maxPasswordLen = 72

// Hasher hashes passwords at a fixed bcrypt cost.
type Hasher struct {
	Cost int
}

var defaultHasher = Hasher{Cost: DefaultCost}

// Hash returns a salted bcrypt hash of password at DefaultCost.
func Hash(password string) ([]byte, error) {
	return defaultHasher.Hash(password)
}

// IsValid reports whether hash was produced from password.
func IsValid(hash []byte, password string) bool {
	return defaultHasher.IsValid(hash, password)
}

// Hash returns a salted bcrypt hash of password. A zero Cost selects
// DefaultCost.
func (h Hasher) Hash(password string) ([]byte, error) {
	cost := h.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword(prepare(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// IsValid reports whether hash was produced from password. Malformed or
// empty hashes are never valid.
func (h Hasher) IsValid(hash []byte, password string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, prepare(password)) == nil
}

// prepare pre-hashes passwords longer than bcrypt's input limit so that
// every byte contributes to the hash.
func prepare(password string) []byte {
	if len(password) <= maxPasswordLen {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
