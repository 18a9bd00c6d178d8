// Package auth hashes and checks the config server password.
//
// The document may hold either a plaintext password or an argon2id string
// produced by `wifiman hash-password`. Both are compared in constant time.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/term"
)

// Argon2id parameters, sized for small boards.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	saltLength   = 16
)

const hashPrefix = "$argon2id$"

var (
	// ErrEmptyPassword is returned when the user enters an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrPasswordMismatch is returned when password confirmation doesn't match.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// IsHash reports whether stored looks like an argon2id string.
func IsHash(stored string) bool {
	return strings.HasPrefix(stored, hashPrefix)
}

// HashPassword returns $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// Verify checks supplied against stored, which is plaintext or an argon2id
// string. A malformed hash never matches.
func Verify(stored, supplied string) bool {
	if !IsHash(stored) {
		return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
	}
	ok, err := VerifyPassword(supplied, stored)
	return err == nil && ok
}

// VerifyPassword checks password against an argon2id string.
func VerifyPassword(password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, params.keyLen)
	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

func decodeHash(encodedHash string) (*argonParams, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, fmt.Errorf("invalid hash format: expected 6 parts, got %d", len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("invalid hash algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	p := &argonParams{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid salt: %w", err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid hash: %w", err)
	}
	p.keyLen = uint32(len(hash))

	return p, salt, hash, nil
}

// PromptPassword reads a password from the terminal without echo.
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// PromptAndConfirmPassword asks twice and returns the password if both match.
func PromptAndConfirmPassword() (string, error) {
	password, err := PromptPassword("Config server password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrEmptyPassword
	}

	confirm, err := PromptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}
