// Package envelope encrypts individual secret values under a caller-owned
// AES key.
//
// A ciphertext is self-describing: a 2-byte little-endian IV length, the
// IV, then the AES-CBC ciphertext of the PKCS#7-padded plaintext, all
// hex-encoded for transport. Keys are 16, 24 or 32 random bytes,
// hex-encoded.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
)

const (
	// DefaultKeyLength is the key size used when none is requested.
	DefaultKeyLength = 32

	ivSize     = aes.BlockSize
	prefixSize = 2
)

// ValidKeyLengths are the accepted raw key sizes in bytes.
var ValidKeyLengths = []int{16, 24, 32}

var (
	// ErrInvalidKeyLength indicates a key that is not 16, 24 or 32 bytes.
	ErrInvalidKeyLength = errors.New("invalid key length: must be 16, 24, or 32 bytes")

	// ErrInvalidKeyFormat indicates a key that is not valid hex.
	ErrInvalidKeyFormat = errors.New("invalid key format: must be hex-encoded")

	// ErrDecryption indicates a malformed ciphertext, bad padding or a
	// wrong key.
	ErrDecryption = errors.New("decryption failed")
)

// GenerateKey returns length random bytes, hex-encoded.
func GenerateKey(length int) (string, error) {
	if !slices.Contains(ValidKeyLengths, length) {
		return "", fmt.Errorf("%w: got %d", ErrInvalidKeyLength, length)
	}
	key := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("read random key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// IsValidKey reports whether hexKey decodes to 16, 24 or 32 bytes.
func IsValidKey(hexKey string) bool {
	_, err := decodeKey(hexKey)
	return err == nil
}

func decodeKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrInvalidKeyFormat
	}
	if !slices.Contains(ValidKeyLengths, len(key)) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(key))
	}
	return key, nil
}

// Cipher encrypts and decrypts values under one key. It is safe for
// concurrent use.
type Cipher struct {
	block cipher.Block
	rand  io.Reader
}

// New creates a Cipher for hexKey. The key is checked before any
// cryptographic work.
func New(hexKey string) (*Cipher, error) {
	key, err := decodeKey(hexKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &Cipher{block: block, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("read random iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, prefixSize+ivSize+len(padded))
	binary.LittleEndian.PutUint16(out, uint16(ivSize))
	copy(out[prefixSize:], iv)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[prefixSize+ivSize:], padded)

	return hex.EncodeToString(out), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Every failure wraps
// ErrDecryption; no partially decrypted text is ever returned.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	data, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not hex", ErrDecryption)
	}
	if len(data) < prefixSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}

	n := int(binary.LittleEndian.Uint16(data))
	if len(data) < prefixSize+n {
		return "", fmt.Errorf("%w: iv length %d exceeds ciphertext", ErrDecryption, n)
	}
	if n != c.block.BlockSize() {
		return "", fmt.Errorf("%w: unsupported iv length %d", ErrDecryption, n)
	}

	iv := data[prefixSize : prefixSize+n]
	body := data[prefixSize+n:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrDecryption)
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Encrypt seals plaintext under hexKey.
func Encrypt(hexKey, plaintext string) (string, error) {
	c, err := New(hexKey)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

// Decrypt opens ciphertext under hexKey. A bad key wraps both the key
// error and ErrDecryption.
func Decrypt(hexKey, ciphertext string) (string, error) {
	c, err := New(hexKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	return c.Decrypt(ciphertext)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(slices.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
		}
	}
	return b[:len(b)-n], nil
}
