// Package cryptox wraps the cryptographic primitives used by the key vault:
// CSPRNG draws, X25519 encryption keypairs, the argon2id key-derivation
// function, and the NaCl secretbox AEAD that protects the private key at rest.
//
// Sizes and parameter conventions are libsodium-compatible: 16-byte pwhash
// salt, 24-byte secretbox nonce, memory limits expressed in bytes.
package cryptox

import (
	"crypto/rand"
	"fmt"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// PersonalSecretSize is the size of the personal secret generated for a
	// fresh vault. The secret never leaves the client process.
	PersonalSecretSize = 32

	// SaltSize is the KDF salt length, matching crypto_pwhash_SALTBYTES.
	SaltSize = 16

	// KeySize is the derived key-encryption-key length.
	KeySize = 32

	// NonceSize is the secretbox nonce length (crypto_secretbox_NONCEBYTES).
	NonceSize = 24

	// Interactive argon2id limits, tuned for sub-second derivation on
	// commodity hardware. OpsLimit is the pass count; MemLimit is in bytes.
	// Both are persisted in the envelope so unlock always re-derives with
	// the exact parameters used at seal time.
	OpsLimitInteractive = 2
	MemLimitInteractive = 64 * 1024 * 1024
)

// GeneratePersonalSecret returns a fresh 32-byte personal secret. An error
// means the runtime has no usable CSPRNG and is fatal for the caller.
func GeneratePersonalSecret() ([]byte, error) {
	return common.GenerateRandBytes(PersonalSecretSize)
}

// GenerateKeypair returns an X25519 keypair suitable for public-key
// encryption (other parties encrypt *to* the public key). Not a signing key.
func GenerateKeypair() (publicKey, privateKey *[32]byte, err error) {
	publicKey, privateKey, err = box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("keypair generation: %w", err)
	}
	return publicKey, privateKey, nil
}

// DeriveKey stretches secret into a 32-byte key-encryption-key using argon2id.
// memLimit is in bytes (libsodium convention) and is converted to KiB for
// argon2. Parallelism is fixed at 1 so output matches crypto_pwhash.
func DeriveKey(secret, salt []byte, opsLimit, memLimit uint32) []byte {
	memoryKiB := memLimit / 1024
	if memoryKiB < 8 {
		memoryKiB = 8
	}
	if opsLimit < 1 {
		opsLimit = 1
	}
	return argon2.IDKey(secret, salt, opsLimit, memoryKiB, 1, KeySize)
}

// Seal encrypts plaintext with key using secretbox (XSalsa20-Poly1305) under
// a fresh random 24-byte nonce. The Poly1305 tag is part of the returned
// ciphertext and is checked on Open.
func Seal(plaintext, key []byte) (nonce, ciphertext []byte, err error) {
	if len(key) != KeySize {
		return nil, nil, fmt.Errorf("seal: key must be %d bytes", KeySize)
	}

	nonce, err = common.GenerateRandBytes(NonceSize)
	if err != nil {
		return nil, nil, err
	}

	var n [NonceSize]byte
	var k [KeySize]byte
	copy(n[:], nonce)
	copy(k[:], key)
	defer common.WipeByteArray(k[:])

	ciphertext = secretbox.Seal(nil, plaintext, &n, &k)
	return nonce, ciphertext, nil
}

// Open decrypts a secretbox ciphertext produced by Seal. A failed tag check
// returns common.ErrAuthenticationFailed; the comparison inside secretbox is
// constant-time and no additional checks are layered around it.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("open: key must be %d bytes", KeySize)
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("open: nonce must be %d bytes", NonceSize)
	}

	var n [NonceSize]byte
	var k [KeySize]byte
	copy(n[:], nonce)
	copy(k[:], key)
	defer common.WipeByteArray(k[:])

	plaintext, ok := secretbox.Open(nil, ciphertext, &n, &k)
	if !ok {
		return nil, common.ErrAuthenticationFailed
	}
	return plaintext, nil
}
