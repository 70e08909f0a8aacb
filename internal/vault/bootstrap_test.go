package vault

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"
)

// cheap KDF costs so the suite stays fast; production uses the interactive
// constants in cryptox.
var testParams = Params{OpsLimit: 1, MemLimit: 8 * 1024 * 1024}

func TestBootstrap_Shape(t *testing.T) {
	res, err := BootstrapWithParams(context.Background(), testParams)
	require.NoError(t, err)

	assert.Len(t, res.PersonalSecret, cryptox.PersonalSecretSize)
	assert.Len(t, res.PublicKey, 32)
	assert.Len(t, res.Envelope.Salt, cryptox.SaltSize)
	assert.Len(t, res.Envelope.Nonce, cryptox.NonceSize)
	assert.NotEmpty(t, res.Envelope.Ciphertext)
	assert.Equal(t, testParams.OpsLimit, res.Envelope.KDF.OpsLimit)
	assert.Equal(t, testParams.MemLimit, res.Envelope.KDF.MemLimit)
}

func TestBootstrap_UnlockRoundTrip(t *testing.T) {
	ctx := context.Background()

	res, err := BootstrapWithParams(ctx, testParams)
	require.NoError(t, err)

	privateKey, err := Unlock(ctx, res.Envelope, res.PersonalSecret)
	require.NoError(t, err)
	require.Len(t, privateKey, 32)

	// the recovered scalar must correspond to the advertised public key
	derivedPub, err := curve25519.X25519(privateKey, curve25519.Basepoint)
	require.NoError(t, err)
	assert.Equal(t, res.PublicKey, derivedPub)
}

func TestBootstrap_UnlockThroughCodec(t *testing.T) {
	ctx := context.Background()

	res, err := BootstrapWithParams(ctx, testParams)
	require.NoError(t, err)

	wire, err := Encode(res.Envelope)
	require.NoError(t, err)
	decoded, err := Decode(wire)
	require.NoError(t, err)

	_, err = Unlock(ctx, decoded, res.PersonalSecret)
	assert.NoError(t, err)
}

func TestUnlock_WrongSecret(t *testing.T) {
	ctx := context.Background()

	res, err := BootstrapWithParams(ctx, testParams)
	require.NoError(t, err)

	wrong, err := cryptox.GeneratePersonalSecret()
	require.NoError(t, err)

	_, err = Unlock(ctx, res.Envelope, wrong)
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
	assert.NotErrorIs(t, err, common.ErrFormat, "wrong secret must not look like a malformed envelope")
}

func TestUnlock_UsesStoredParams(t *testing.T) {
	ctx := context.Background()

	res, err := BootstrapWithParams(ctx, testParams)
	require.NoError(t, err)

	// an envelope sealed under different costs must fail to open if the
	// stored params are altered, proving unlock derives from the envelope
	res.Envelope.KDF.OpsLimit = testParams.OpsLimit + 1
	_, err = Unlock(ctx, res.Envelope, res.PersonalSecret)
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
}

func TestUnlock_MalformedEnvelope(t *testing.T) {
	ctx := context.Background()
	secret := []byte("any")

	_, err := Unlock(ctx, nil, secret)
	assert.ErrorIs(t, err, common.ErrFormat)

	_, err = Unlock(ctx, &Envelope{Salt: []byte("short"), Nonce: make([]byte, cryptox.NonceSize), KDF: Params{OpsLimit: 1, MemLimit: 1 << 23}}, secret)
	assert.ErrorIs(t, err, common.ErrFormat)

	env := &Envelope{Salt: make([]byte, cryptox.SaltSize), Nonce: make([]byte, cryptox.NonceSize)}
	_, err = Unlock(ctx, env, secret)
	assert.ErrorIs(t, err, common.ErrFormat)
}

func TestBootstrap_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BootstrapWithParams(ctx, testParams)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnlock_Cancelled(t *testing.T) {
	res, err := BootstrapWithParams(context.Background(), testParams)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Unlock(ctx, res.Envelope, res.PersonalSecret)
	assert.ErrorIs(t, err, context.Canceled)
}

// Cancelling mid-derivation abandons a goroutine that is still reading the
// secret; the caller must be free to wipe its own buffer the moment the
// cancelled call returns. Run with -race to verify the derivation works on
// a private copy. The heavy memlimit keeps the derivation busy well past
// the cancellation.
func TestUnlock_CancelMidDerivationAllowsImmediateWipe(t *testing.T) {
	secret := make([]byte, cryptox.PersonalSecretSize)
	for i := range secret {
		secret[i] = byte(i)
	}

	env := &Envelope{
		Salt:       make([]byte, cryptox.SaltSize),
		Nonce:      make([]byte, cryptox.NonceSize),
		Ciphertext: make([]byte, 48),
		KDF:        Params{OpsLimit: 3, MemLimit: 256 * 1024 * 1024},
	}

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()

	_, err := Unlock(ctx, env, secret)
	require.ErrorIs(t, err, context.Canceled)

	common.WipeByteArray(secret)
}

func TestBootstrap_FreshMaterialPerCall(t *testing.T) {
	ctx := context.Background()

	a, err := BootstrapWithParams(ctx, testParams)
	require.NoError(t, err)
	b, err := BootstrapWithParams(ctx, testParams)
	require.NoError(t, err)

	assert.NotEqual(t, a.PersonalSecret, b.PersonalSecret)
	assert.NotEqual(t, a.PublicKey, b.PublicKey)
	assert.NotEqual(t, a.Envelope.Salt, b.Envelope.Salt)
	assert.NotEqual(t, a.Envelope.Nonce, b.Envelope.Nonce)
}
