package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/securecloudx/securecloudx/internal/common"
	"golang.org/x/crypto/hkdf"
)

// Key agreement uses NIST P-256 ECDH with an ephemeral sender keypair per
// wrap. The raw shared secret is never used as a cipher key directly: it is
// fed through HKDF-SHA256 with a fresh random salt and a fixed context
// string, and the resulting wrapping key encrypts the file key with
// AES-256-GCM.
const (
	// wrapInfo is the HKDF context string, shared with the original
	// SecureCloudX deployment.
	wrapInfo = "aes-key-encryption"

	wrapSaltSize  = 32
	wrapNonceSize = 12
)

// KeyPair holds a user's P-256 keypair in PEM encoding: PKCS#8 for the
// private half, PKIX (SubjectPublicKeyInfo) for the public half. The private
// half is stored only server-side; the public half is distributed freely.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// Envelope is the encrypted, portable container for a symmetric key. It is
// the only form in which a file key may leave process memory or touch disk.
type Envelope struct {
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	Salt               []byte `json:"salt"`
	Nonce              []byte `json:"nonce"`
	Ciphertext         []byte `json:"ciphertext"`
}

// GenerateKeyPair generates a fresh P-256 keypair. The two halves are
// mathematically linked and must never be regenerated independently.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(priv.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
	}, nil
}

// DeriveSharedSecret performs ECDH between our private key and their public
// key. The result is high-entropy but non-uniform; callers must pass it
// through HKDF before using it as a cipher key.
func DeriveSharedSecret(priv *ecdh.PrivateKey, pub *ecdh.PublicKey) ([]byte, error) {
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}
	return secret, nil
}

// Wrap encrypts a symmetric key for the holder of recipientPublicPEM.
// A fresh ephemeral keypair per call gives forward secrecy: compromising
// one envelope's ephemeral key reveals nothing about other envelopes.
func Wrap(key []byte, recipientPublicPEM string) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}

	recipient, err := ParsePublicKey(recipientPublicPEM)
	if err != nil {
		return nil, err
	}

	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral keypair: %w", err)
	}

	secret, err := DeriveSharedSecret(ephemeral, recipient)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(secret)

	salt := common.GenerateRandByteArray(wrapSaltSize)
	wrappingKey, err := deriveWrappingKey(secret, salt)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(wrappingKey)

	aead, err := newGCM(wrappingKey)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(wrapNonceSize)
	ciphertext := aead.Seal(nil, nonce, key, nil)

	ephDER, err := x509.MarshalPKIXPublicKey(ephemeral.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("marshal ephemeral public key: %w", err)
	}

	return &Envelope{
		EphemeralPublicKey: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: ephDER})),
		Salt:               salt,
		Nonce:              nonce,
		Ciphertext:         ciphertext,
	}, nil
}

// Unwrap opens an envelope with the recipient's private key. Any failure,
// whether a malformed envelope, a wrong private key, or tampered ciphertext,
// is reported as ErrUnwrap without further detail.
func Unwrap(envelope *Envelope, privatePEM string) ([]byte, error) {
	if envelope == nil {
		return nil, ErrUnwrap
	}

	priv, err := ParsePrivateKey(privatePEM)
	if err != nil {
		return nil, ErrUnwrap
	}

	ephemeral, err := ParsePublicKey(envelope.EphemeralPublicKey)
	if err != nil {
		return nil, ErrUnwrap
	}

	secret, err := DeriveSharedSecret(priv, ephemeral)
	if err != nil {
		return nil, ErrUnwrap
	}
	defer common.WipeByteArray(secret)

	wrappingKey, err := deriveWrappingKey(secret, envelope.Salt)
	if err != nil {
		return nil, ErrUnwrap
	}
	defer common.WipeByteArray(wrappingKey)

	aead, err := newGCM(wrappingKey)
	if err != nil {
		return nil, ErrUnwrap
	}

	key, err := aead.Open(nil, envelope.Nonce, envelope.Ciphertext, nil)
	if err != nil {
		return nil, ErrUnwrap
	}
	return key, nil
}

// ParsePublicKey decodes a PEM-encoded PKIX P-256 public key.
func ParsePublicKey(pemData string) (*ecdh.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	switch k := parsed.(type) {
	case *ecdsa.PublicKey:
		return k.ECDH()
	case *ecdh.PublicKey:
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported public key type %T", parsed)
	}
}

// ParsePrivateKey decodes a PEM-encoded PKCS#8 P-256 private key.
func ParsePrivateKey(pemData string) (*ecdh.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in private key")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	switch k := parsed.(type) {
	case *ecdsa.PrivateKey:
		return k.ECDH()
	case *ecdh.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", parsed)
	}
}

func deriveWrappingKey(secret, salt []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, secret, salt, []byte(wrapInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
