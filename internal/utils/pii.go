package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyValue is returned when there is nothing to seal or open
var ErrEmptyValue = errors.New("value is empty")

var nonDigit = regexp.MustCompile(`\D`)

// Vault protects client identifiers at rest: AES-CBC for reversible storage
// and an HMAC fingerprint for lookups without decryption.
type Vault struct {
	block  cipher.Block
	secret []byte
}

// NewVault builds a vault from an AES key (16, 24 or 32 bytes) and an HMAC secret
func NewVault(key []byte, hmacSecret string) (*Vault, error) {
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	if hmacSecret == "" {
		return nil, fmt.Errorf("hmac secret is empty")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Vault{block: block, secret: []byte(hmacSecret)}, nil
}

// Seal encrypts value and returns hex(iv || ciphertext)
func (v *Vault) Seal(value string) (string, error) {
	if value == "" {
		return "", ErrEmptyValue
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	plain := pad([]byte(value))
	sealed := make([]byte, aes.BlockSize+len(plain))
	copy(sealed, iv)
	cipher.NewCBCEncrypter(v.block, iv).CryptBlocks(sealed[aes.BlockSize:], plain)
	return hex.EncodeToString(sealed), nil
}

// Open reverses Seal
func (v *Vault) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", ErrEmptyValue
	}
	data, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length: %d bytes", len(data))
	}

	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(v.block, iv).CryptBlocks(plain, ciphertext)
	out, err := unpad(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Fingerprint is a keyed hash of the digits in value, so "123-45-6789" and "123456789" match
func (v *Vault) Fingerprint(value string) string {
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(nonDigit.ReplaceAllString(value, "")))
	return hex.EncodeToString(h.Sum(nil))
}

// MaskSSN keeps only the last four digits, e.g. "XXX-XX-9372"
func MaskSSN(ssn string) string {
	digits := nonDigit.ReplaceAllString(ssn, "")
	if len(digits) < 4 {
		return strings.Repeat("X", len(digits))
	}
	return "XXX-XX-" + digits[len(digits)-4:]
}

// pad applies PKCS#7 padding
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, fmt.Errorf("invalid padding value: %d", n)
	}
	if !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, fmt.Errorf("invalid padding bytes")
	}
	return b[:len(b)-n], nil
}
