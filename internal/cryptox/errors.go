package cryptox

import "errors"

var (
	// ErrKeyLength is returned when a symmetric key is not exactly
	// KeySize bytes.
	ErrKeyLength = errors.New("invalid symmetric key length")

	// ErrIntegrity is returned when a payload cannot be decrypted: wrong
	// key and corrupted ciphertext are deliberately indistinguishable.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrUnwrap is returned when a key envelope cannot be opened with the
	// given private key.
	ErrUnwrap = errors.New("cannot unwrap key envelope")
)
