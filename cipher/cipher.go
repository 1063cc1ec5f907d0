// Package cipher encrypts short messages under a 256-bit key given as a
// string of '0' and '1' characters, as produced by a completed BB84 run.
//
// The key string is packed into 32 bytes and expanded with HKDF-SHA256 into
// an AES-256-GCM key and a short key check value. The check value travels
// with the ciphertext, so that decrypting under the wrong key is reported as
// a key mismatch rather than as corruption.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/hkdf"
)

// KeyBits is the length a key string must have.
const KeyBits = 256

const (
	envelopeVersion = 1
	kcvSize         = 8
	nonceSize       = 12
	headerSize      = 1 + kcvSize + nonceSize
)

var (
	// ErrInvalidKey is returned for a key that is not exactly KeyBits
	// characters of '0' and '1'.
	ErrInvalidKey = fmt.Errorf("invalid key format: key must be exactly %d characters of 0s and 1s", KeyBits)
	// ErrKeyMismatch is returned when a message is opened with a key other
	// than the one it was sealed with.
	ErrKeyMismatch = errors.New("key mismatch: the key does not match the encryption key")
	// ErrCorrupt is returned when the ciphertext is malformed or fails
	// authentication under the right key.
	ErrCorrupt = errors.New("invalid key or corrupted data")
	// ErrEmptyMessage is returned when asked to seal nothing.
	ErrEmptyMessage = errors.New("no message to encrypt")
)

var (
	infoAES = []byte("bb84sim aes-256-gcm key")
	infoKCV = []byte("bb84sim key check value")
)

// A Format selects how sealed messages are rendered as text.
type Format int

const (
	Hex Format = iota
	Base64
)

func (f Format) String() string {
	if f == Base64 {
		return "base64"
	}
	return "hex"
}

// ParseFormat converts "hex" or "base64" into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "hex":
		return Hex, nil
	case "base64":
		return Base64, nil
	}
	return 0, fmt.Errorf("unknown format %q, want hex or base64", s)
}

func (f Format) encode(b []byte) string {
	if f == Base64 {
		return base64.StdEncoding.EncodeToString(b)
	}
	return hex.EncodeToString(b)
}

func (f Format) decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if f == Base64 {
		return base64.StdEncoding.DecodeString(s)
	}
	return hex.DecodeString(s)
}

// ValidateKey returns ErrInvalidKey unless key is exactly KeyBits characters
// of '0' and '1'.
func ValidateKey(key string) error {
	if len(key) != KeyBits {
		return ErrInvalidKey
	}
	for i := 0; i < len(key); i++ {
		if key[i] != '0' && key[i] != '1' {
			return ErrInvalidKey
		}
	}
	return nil
}

// Compare checks two independently entered keys, returning ErrInvalidKey if
// either is malformed and ErrKeyMismatch if they differ.
func Compare(a, b string) error {
	if err := ValidateKey(a); err != nil {
		return err
	}
	if err := ValidateKey(b); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(a), []byte(b)) != 1 {
		return ErrKeyMismatch
	}
	return nil
}

// Seal encrypts message under key and renders the result in format f.
func Seal(message, key string, f Format) (string, error) {
	if message == "" {
		return "", ErrEmptyMessage
	}
	aead, kcv, err := deriveKeys(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	env := make([]byte, 0, headerSize+len(message)+aead.Overhead())
	env = append(env, envelopeVersion)
	env = append(env, kcv...)
	env = append(env, nonce...)
	env = aead.Seal(env, nonce, []byte(message), env[:headerSize])
	return f.encode(env), nil
}

// Open decrypts an envelope produced by Seal. The key check value is compared
// before any decryption is attempted, so a wrong key yields ErrKeyMismatch and
// never a wrong plaintext.
func Open(envelope, key string, f Format) (string, error) {
	aead, kcv, err := deriveKeys(key)
	if err != nil {
		return "", err
	}
	env, err := f.decode(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: decoding %v: %v", ErrCorrupt, f, err)
	}
	if len(env) < headerSize+aead.Overhead() || env[0] != envelopeVersion {
		return "", ErrCorrupt
	}
	if subtle.ConstantTimeCompare(env[1:1+kcvSize], kcv) != 1 {
		logrus.WithFields(logrus.Fields{
			"function": "Open",
			"format":   f.String(),
		}).Debug("Rejected envelope sealed under a different key")
		return "", ErrKeyMismatch
	}
	nonce := env[1+kcvSize : headerSize]
	plain, err := aead.Open(nil, nonce, env[headerSize:], env[:headerSize])
	if err != nil {
		return "", ErrCorrupt
	}
	return string(plain), nil
}

func deriveKeys(key string) (gocipher.AEAD, []byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, nil, err
	}
	packed, err := pack(key)
	if err != nil {
		return nil, nil, err
	}
	aesKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, packed, nil, infoAES), aesKey); err != nil {
		return nil, nil, err
	}
	kcv := make([]byte, kcvSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, packed, nil, infoKCV), kcv); err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, nil, err
	}
	aead, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	return aead, kcv, nil
}

// pack converts a validated key string into bytes, in bitmap.Dense order: the
// first character lands in the least significant bit of the first byte.
func pack(key string) ([]byte, error) {
	d, err := bitmap.FromString(key)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return d.Data(), nil
}
