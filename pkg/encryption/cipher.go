// Package encryption protects sensitive answers at rest with Fernet tokens.
package encryption

import (
	"strings"

	"github.com/fernet/fernet-go"
	"github.com/pkg/errors"
)

var (
	ErrMissingKey = errors.New("encryption key is not configured")
	ErrInvalidKey = errors.New("encryption key is not a valid fernet key")
)

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	// Decrypt never fails: input that cannot be decrypted is returned unchanged.
	Decrypt(ciphertext string) string
}

type FernetCipher struct {
	key *fernet.Key
}

// NewFernetCipher builds a cipher from a url-safe base64 encoded 32 byte key.
func NewFernetCipher(key string) (*FernetCipher, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrMissingKey
	}

	decoded, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}

	return &FernetCipher{key: decoded}, nil
}

func (c *FernetCipher) Encrypt(plaintext string) (string, error) {
	if c == nil || c.key == nil {
		return "", ErrMissingKey
	}

	token, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", errors.Wrap(err, "failed to encrypt value")
	}
	return string(token), nil
}

func (c *FernetCipher) Decrypt(ciphertext string) string {
	if c == nil || c.key == nil || ciphertext == "" {
		return ciphertext
	}

	// ttl 0 disables expiry; a nil result means the token did not verify
	plaintext := fernet.VerifyAndDecrypt([]byte(ciphertext), 0, []*fernet.Key{c.key})
	if plaintext == nil {
		return ciphertext
	}
	return string(plaintext)
}

// GenerateKey returns a fresh encoded key, used by tests and key rotation tooling.
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", errors.Wrap(err, "failed to generate key")
	}
	return key.Encode(), nil
}
