// Package auth provides one-way password hashing.
//
// Two algorithms are supported:
//
//   - "sha256" (default): lowercase hexadecimal SHA-256 digest, always 64
//     characters. Legacy usersdot rows already carry this format, so
//     existing data stays verifiable.
//   - "bcrypt": salted, slow, self-describing ($2a$<cost>$...). Preferable for
//     new deployments that do not need to read legacy rows.
//
// Plaintext never leaves Hash: the directory service stores only the result.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmSHA256 = "sha256"
	AlgorithmBcrypt = "bcrypt"
)

// defaultCost is the bcrypt work factor (~250ms on a modern server).
const defaultCost = 12

// maxBcryptInput is bcrypt's input limit; longer inputs would be truncated silently.
const maxBcryptInput = 72

// PasswordService hashes and verifies passwords with one configured algorithm.
type PasswordService struct {
	algorithm string
	cost      int
}

// NewPasswordService returns a service for algorithm ("sha256" or "bcrypt").
func NewPasswordService(algorithm string) (*PasswordService, error) {
	switch algorithm {
	case "", AlgorithmSHA256:
		return &PasswordService{algorithm: AlgorithmSHA256}, nil
	case AlgorithmBcrypt:
		return &PasswordService{algorithm: AlgorithmBcrypt, cost: defaultCost}, nil
	default:
		return nil, fmt.Errorf("auth: unknown password algorithm %q", algorithm)
	}
}

// NewPasswordServiceForTest returns a bcrypt service with a custom cost.
// Use bcrypt.MinCost (4) in tests. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{algorithm: AlgorithmBcrypt, cost: cost}
}

// Hash returns the stored form of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if p.algorithm == AlgorithmSHA256 {
		sum := sha256.Sum256([]byte(plaintext))
		return hex.EncodeToString(sum[:]), nil
	}

	if len(plaintext) > maxBcryptInput {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxBcryptInput)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}
