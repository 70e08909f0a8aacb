package vault

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/cryptox"
)

// BootstrapResult is everything a fresh vault produces. PublicKey and
// Envelope are safe to transmit; PersonalSecret is returned for one-time
// display to the user and is never stored by this package.
type BootstrapResult struct {
	PublicKey      []byte
	Envelope       *Envelope
	PersonalSecret []byte
}

// Bootstrap creates a new vault with interactive KDF parameters. The pipeline
// runs strictly in order: personal secret, keypair, salt, key derivation,
// seal. Derivation happens on its own goroutine so the caller's context can
// cancel a bootstrap mid-flight; on cancellation no secrets survive.
func Bootstrap(ctx context.Context) (*BootstrapResult, error) {
	return BootstrapWithParams(ctx, Params{
		OpsLimit: cryptox.OpsLimitInteractive,
		MemLimit: cryptox.MemLimitInteractive,
	})
}

// BootstrapWithParams is Bootstrap with explicit KDF cost parameters. The
// parameters are recorded in the envelope; Unlock always re-derives with the
// recorded values, never with current defaults.
func BootstrapWithParams(ctx context.Context, params Params) (*BootstrapResult, error) {
	secret, err := cryptox.GeneratePersonalSecret()
	if err != nil {
		return nil, fmt.Errorf("personal secret: %w", err)
	}

	publicKey, privateKey, err := cryptox.GenerateKeypair()
	if err != nil {
		common.WipeByteArray(secret)
		return nil, err
	}
	defer common.WipeByteArray(privateKey[:])

	salt, err := common.GenerateRandBytes(cryptox.SaltSize)
	if err != nil {
		common.WipeByteArray(secret)
		return nil, fmt.Errorf("salt: %w", err)
	}

	kek, err := deriveAsync(ctx, secret, salt, params.OpsLimit, params.MemLimit)
	if err != nil {
		common.WipeByteArray(secret)
		return nil, err
	}
	defer common.WipeByteArray(kek)

	nonce, ciphertext, err := cryptox.Seal(privateKey[:], kek)
	if err != nil {
		common.WipeByteArray(secret)
		return nil, err
	}

	return &BootstrapResult{
		PublicKey: publicKey[:],
		Envelope: &Envelope{
			Salt:       salt,
			Nonce:      nonce,
			Ciphertext: ciphertext,
			KDF:        Params{OpsLimit: params.OpsLimit, MemLimit: params.MemLimit},
		},
		PersonalSecret: secret,
	}, nil
}

// Unlock recovers the private key from an envelope given the personal secret.
// The key-encryption-key is re-derived from the envelope's stored salt and
// parameters. A wrong secret yields common.ErrAuthenticationFailed; malformed
// input yields an error wrapping common.ErrFormat.
func Unlock(ctx context.Context, env *Envelope, secret []byte) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", common.ErrFormat)
	}
	if len(env.Salt) < cryptox.SaltSize || len(env.Nonce) != cryptox.NonceSize {
		return nil, fmt.Errorf("%w: bad salt or nonce", common.ErrFormat)
	}
	if env.KDF.OpsLimit == 0 || env.KDF.MemLimit == 0 {
		return nil, fmt.Errorf("%w: kdf params out of range", common.ErrFormat)
	}

	kek, err := deriveAsync(ctx, secret, env.Salt, env.KDF.OpsLimit, env.KDF.MemLimit)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(kek)

	privateKey, err := cryptox.Open(env.Ciphertext, env.Nonce, kek)
	if err != nil {
		return nil, err
	}
	return privateKey, nil
}

// deriveAsync runs the memory-hard derivation off the calling goroutine so a
// UI thread stays responsive and the context can abandon the wait. The
// derivation itself is never interrupted; an abandoned result is wiped as
// soon as it lands. The goroutine works on private copies of secret and
// salt, so after an abandoned wait the caller may wipe its own buffers
// immediately without racing the still-running derivation.
func deriveAsync(ctx context.Context, secret, salt []byte, opsLimit, memLimit uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	secretCopy := append([]byte(nil), secret...)
	saltCopy := append([]byte(nil), salt...)

	done := make(chan []byte, 1)
	go func() {
		key := cryptox.DeriveKey(secretCopy, saltCopy, opsLimit, memLimit)
		common.WipeByteArray(secretCopy)
		done <- key
	}()

	select {
	case key := <-done:
		return key, nil
	case <-ctx.Done():
		go func() {
			common.WipeByteArray(<-done)
		}()
		return nil, ctx.Err()
	}
}
