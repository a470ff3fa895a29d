// Package cryptox implements the cryptographic core of SecureCloudX:
// per-file AES-256 encryption and ECDH-based key wrapping.
//
// File bytes are encrypted with AES-256 in CBC mode with PKCS#7 padding.
// A fresh random key is generated per file and a fresh random IV per
// encryption; the IV travels with the ciphertext and is not secret.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/securecloudx/securecloudx/internal/common"
)

const (
	// KeySize is the symmetric key length in bytes (AES-256).
	KeySize = 32

	// IVSize is the CBC initialization vector length in bytes.
	IVSize = aes.BlockSize
)

// EncryptedPayload carries a CBC ciphertext together with the IV it was
// produced with. Ciphertext length is always a multiple of the AES block
// size.
type EncryptedPayload struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

// GenerateKey returns a fresh random 256-bit symmetric key.
// Keys are never reused across files.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// Encrypt encrypts plaintext under key with AES-256-CBC and PKCS#7 padding,
// using a fresh random IV. Returns ErrKeyLength if the key is not KeySize
// bytes.
func Encrypt(plaintext, key []byte) (*EncryptedPayload, error) {
	iv := common.GenerateRandByteArray(IVSize)
	return encryptWithIV(plaintext, key, iv)
}

// encryptWithIV is the deterministic core of Encrypt, split out so tests can
// fix the IV. Production callers must use Encrypt: an IV must never repeat
// for a given key.
func encryptWithIV(plaintext, key, iv []byte) (*EncryptedPayload, error) {
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}
	// A wrong-length IV is a caller bug, not a data integrity failure.
	if len(iv) != IVSize {
		return nil, fmt.Errorf("invalid iv length %d, want %d", len(iv), IVSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return &EncryptedPayload{IV: iv, Ciphertext: ciphertext}, nil
}

// Decrypt reverses Encrypt. It returns ErrKeyLength if the key is not
// KeySize bytes, and ErrIntegrity if the payload is malformed or the
// padding is invalid after decryption (wrong key and corrupted data are
// never distinguished).
func Decrypt(payload *EncryptedPayload, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}
	if payload == nil || len(payload.IV) != IVSize {
		return nil, ErrIntegrity
	}
	if len(payload.Ciphertext) == 0 || len(payload.Ciphertext)%aes.BlockSize != 0 {
		return nil, ErrIntegrity
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := make([]byte, len(payload.Ciphertext))
	cipher.NewCBCDecrypter(block, payload.IV).CryptBlocks(padded, payload.Ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrIntegrity
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrIntegrity
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrIntegrity
		}
	}
	return data[:len(data)-n], nil
}
