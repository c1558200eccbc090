// Package auth provides password hashing and request-scoped user identity.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

const (
	saltLen = 16
	keyLen  = 32
)

// Params tunes the argon2id cost.
type Params struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

// DefaultParams follows the OWASP minimum for argon2id.
func DefaultParams() Params {
	return Params{Time: 3, MemoryKB: 64 * 1024, Threads: 4}
}

// Hasher hashes and verifies passwords with argon2id, encoding results in
// PHC string format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>.
type Hasher struct {
	params Params
	// dummy is verified against when no stored hash exists so that unknown
	// accounts cost the same as wrong passwords.
	dummy string
}

// NewHasher creates a Hasher. Zero fields in p fall back to DefaultParams.
func NewHasher(p Params) (*Hasher, error) {
	def := DefaultParams()
	if p.Time == 0 {
		p.Time = def.Time
	}
	if p.MemoryKB == 0 {
		p.MemoryKB = def.MemoryKB
	}
	if p.Threads == 0 {
		p.Threads = def.Threads
	}

	h := &Hasher{params: p}
	dummy, err := h.Hash("rosterly-dummy-password-0")
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Hash creates an argon2id hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKB, h.params.Threads, keyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. The parameters
// embedded in the hash are used, so hashes survive cost changes.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidHash
	}
	if version != argon2.Version {
		return false, ErrIncompatibleVersion
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Time, &p.Threads); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrInvalidHash
	}

	computed := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKB, p.Threads, uint32(len(expected)))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// VerifyDummy burns the same work as Verify and always reports false.
func (h *Hasher) VerifyDummy(password string) {
	_, _ = h.Verify(password, h.dummy)
}
