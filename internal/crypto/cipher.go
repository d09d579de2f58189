// Package crypto implements the symmetric cipher used to protect stored
// mail-account credentials.
//
// Tokens are "hex(iv):hex(ciphertext)" produced by AES-256-CBC with PKCS#7
// padding. The format carries no authentication tag: a modified ciphertext
// may fail with ErrDecryption or may decrypt to garbage.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const keySize = 32

var (
	// ErrKeyNotSet is returned by NewCipher when the secret is empty.
	ErrKeyNotSet = errors.New("encryption key not configured: set COLDRM_ENCRYPTION_KEY")

	// ErrDecryption wraps every failure to turn a token back into plaintext.
	ErrDecryption = errors.New("decryption failed")
)

// Cipher encrypts and decrypts strings under a key derived once from the
// configured secret. It is safe for concurrent use.
type Cipher struct {
	block cipher.Block
	rand  io.Reader
}

// NewCipher derives the key from secret. A secret of exactly 64 hex digits is
// decoded into the 32-byte key; any other secret contributes its UTF-8 bytes,
// truncated or zero-padded to 32 bytes.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrKeyNotSet
	}

	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	return &Cipher{block: block, rand: rand.Reader}, nil
}

// DeriveKey returns the 32-byte key for secret. The derivation is fixed and
// unsalted so that tokens written by earlier deployments stay readable.
func DeriveKey(secret string) []byte {
	if len(secret) == 2*keySize {
		if key, err := hex.DecodeString(secret); err == nil {
			return key
		}
	}

	key := make([]byte, keySize)
	copy(key, secret)
	return key
}

// Encrypt encrypts plaintext under a fresh random IV.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("rand iv: %w", err)
	}

	padded := pad([]byte(plaintext))
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Malformed tokens, wrong IV lengths and invalid
// padding all return an error wrapping ErrDecryption.
func (c *Cipher) Decrypt(token string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(token, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing iv separator", ErrDecryption)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", ErrDecryption, err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv must be %d bytes, got %d", ErrDecryption, aes.BlockSize, len(iv))
	}

	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrDecryption, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d", ErrDecryption, len(ciphertext), aes.BlockSize)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, ciphertext)

	plain, err = unpad(plain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plain), nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("bad padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errors.New("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
