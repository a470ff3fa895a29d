package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"

	"github.com/securecloudx/securecloudx/internal/common"
)

const (
	argonTime       = 3
	argonMemory     = 64 * 1024 // 64 MB
	argonThreads    = 4
	passwordKeyLen  = 32
	passwordSaltLen = 32
)

// HashPassword derives an argon2id digest from the password under a fresh
// random salt and returns salt||digest.
func HashPassword(password string) []byte {
	salt := common.GenerateRandByteArray(passwordSaltLen)
	digest := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, passwordKeyLen)
	result := make([]byte, 0, passwordSaltLen+passwordKeyLen)
	result = append(result, salt...)
	result = append(result, digest...)
	return result
}

// VerifyPassword re-derives the digest using the salt stored in hash and
// compares in constant time.
func VerifyPassword(password string, hash []byte) bool {
	if len(hash) != passwordSaltLen+passwordKeyLen {
		return false
	}
	salt := hash[:passwordSaltLen]
	candidate := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, passwordKeyLen)
	return subtle.ConstantTimeCompare(hash[passwordSaltLen:], candidate) == 1
}
