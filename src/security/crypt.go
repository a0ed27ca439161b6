package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var errKeyNotSet = errors.New("BROKER_CREDENTIALS_KEY not set or not a base64 32-byte key")

func loadKey() (*[keySize]byte, error) {
	config := GetConfig()
	if config.BrokerCRKey == "" {
		return nil, errKeyNotSet
	}

	raw, err := base64.StdEncoding.DecodeString(config.BrokerCRKey)
	if err != nil || len(raw) != keySize {
		return nil, errKeyNotSet
	}

	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// EncryptString seals a plaintext credential with the configured key and
// returns base64(nonce || box).
func EncryptString(plain string) (string, error) {
	key, err := loadKey()
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a credential produced by EncryptString.
func DecryptString(enc string) (string, error) {
	key, err := loadKey()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("invalid encrypted credential: %w", err)
	}
	if len(raw) < nonceSize {
		return "", errors.New("encrypted credential too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", errors.New("failed to open encrypted credential")
	}
	return string(plain), nil
}
