// Package secret seals credentials before they are stored
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrOpen is returned when a sealed value is corrupt or was sealed with another key
var ErrOpen = errors.New("secret: unable to open sealed value")

// Box seals and opens short secrets with scrypt keys derived from a
// passphrase. Sealed values carry their salt: salt | nonce | ciphertext.
type Box struct {
	passphrase []byte
	salt       [saltSize]byte
	key        [keySize]byte

	mu   sync.Mutex
	keys map[[saltSize]byte][keySize]byte
}

// NewBox derives the sealing key from passphrase and a fresh salt
func NewBox(passphrase string) (*Box, error) {
	if passphrase == "" {
		return nil, errors.New("secret: passphrase is required")
	}

	b := &Box{
		passphrase: []byte(passphrase),
		keys:       make(map[[saltSize]byte][keySize]byte),
	}
	if _, err := io.ReadFull(rand.Reader, b.salt[:]); err != nil {
		return nil, fmt.Errorf("secret: failed to read salt: %w", err)
	}

	key, err := b.keyFor(b.salt)
	if err != nil {
		return nil, err
	}
	b.key = key
	return b, nil
}

// Seal encrypts plaintext and returns salt+nonce+ciphertext as base64
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secret: failed to read nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, b.salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal, including values sealed by an earlier Box with the same
// passphrase
func (b *Box) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < saltSize+nonceSize {
		return "", ErrOpen
	}

	var salt [saltSize]byte
	var nonce [nonceSize]byte
	copy(salt[:], raw[:saltSize])
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	key, err := b.keyFor(salt)
	if err != nil {
		return "", err
	}

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, &key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}

func (b *Box) keyFor(salt [saltSize]byte) ([keySize]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if key, ok := b.keys[salt]; ok {
		return key, nil
	}

	var key [keySize]byte
	derived, err := scrypt.Key(b.passphrase, salt[:], scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return key, fmt.Errorf("secret: failed to derive key: %w", err)
	}
	copy(key[:], derived)
	b.keys[salt] = key
	return key, nil
}
