// Package vault implements the client-side key vault: bootstrapping a fresh
// vault (personal secret, keypair, envelope-encrypted private key) and the
// codec for the envelope's wire format. The package performs no network or
// disk I/O; callers decide where the resulting values travel.
package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/cryptox"
)

// Params are the KDF cost parameters recorded in an envelope. MemLimit is in
// bytes, libsodium-style. Unknown kdf fields found while decoding are kept in
// extra and written back verbatim by Encode, so newer clients can add
// parameters without older envelopes losing them.
type Params struct {
	OpsLimit uint32
	MemLimit uint32

	extra map[string]json.RawMessage
}

// Envelope is the persisted form of an encrypted private key. Once produced
// it is immutable; a re-bootstrap replaces the whole envelope.
type Envelope struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
	KDF        Params
}

// secretbox overhead: the Poly1305 tag prepended to the box.
const sealOverhead = 16

type envelopeWire struct {
	Salt       string          `json:"salt"`
	Nonce      string          `json:"nonce"`
	Ciphertext string          `json:"ciphertext"`
	KDF        json.RawMessage `json:"kdf"`
}

// Encode serializes an envelope to its JSON wire form:
//
//	{"salt": b64, "nonce": b64, "ciphertext": b64, "kdf": {"opslimit": n, "memlimit": n, ...}}
func Encode(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", common.ErrFormat)
	}

	kdf := make(map[string]json.RawMessage, len(env.KDF.extra)+2)
	for k, v := range env.KDF.extra {
		kdf[k] = v
	}
	ops, err := json.Marshal(env.KDF.OpsLimit)
	if err != nil {
		return nil, err
	}
	mem, err := json.Marshal(env.KDF.MemLimit)
	if err != nil {
		return nil, err
	}
	kdf["opslimit"] = ops
	kdf["memlimit"] = mem

	kdfRaw, err := json.Marshal(kdf)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelopeWire{
		Salt:       base64.StdEncoding.EncodeToString(env.Salt),
		Nonce:      base64.StdEncoding.EncodeToString(env.Nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(env.Ciphertext),
		KDF:        kdfRaw,
	})
}

// Decode parses envelope wire bytes. Every failure wraps common.ErrFormat so
// callers can distinguish a malformed envelope from a wrong-secret failure
// during unlock.
func Decode(data []byte) (*Envelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFormat, err)
	}

	salt, err := base64.StdEncoding.DecodeString(wire.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt is not base64", common.ErrFormat)
	}
	nonce, err := base64.StdEncoding.DecodeString(wire.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce is not base64", common.ErrFormat)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(wire.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not base64", common.ErrFormat)
	}

	if len(salt) < cryptox.SaltSize {
		return nil, fmt.Errorf("%w: salt too short", common.ErrFormat)
	}
	if len(nonce) != cryptox.NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", common.ErrFormat, cryptox.NonceSize)
	}
	if len(ciphertext) < sealOverhead {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrFormat)
	}

	kdf, err := decodeParams(wire.KDF)
	if err != nil {
		return nil, err
	}

	return &Envelope{Salt: salt, Nonce: nonce, Ciphertext: ciphertext, KDF: kdf}, nil
}

func decodeParams(raw json.RawMessage) (Params, error) {
	if len(raw) == 0 {
		return Params{}, fmt.Errorf("%w: missing kdf params", common.ErrFormat)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Params{}, fmt.Errorf("%w: kdf params: %v", common.ErrFormat, err)
	}

	var p Params
	opsRaw, ok := fields["opslimit"]
	if !ok {
		return Params{}, fmt.Errorf("%w: kdf params missing opslimit", common.ErrFormat)
	}
	if err := json.Unmarshal(opsRaw, &p.OpsLimit); err != nil {
		return Params{}, fmt.Errorf("%w: kdf opslimit: %v", common.ErrFormat, err)
	}
	memRaw, ok := fields["memlimit"]
	if !ok {
		return Params{}, fmt.Errorf("%w: kdf params missing memlimit", common.ErrFormat)
	}
	if err := json.Unmarshal(memRaw, &p.MemLimit); err != nil {
		return Params{}, fmt.Errorf("%w: kdf memlimit: %v", common.ErrFormat, err)
	}
	if p.OpsLimit == 0 || p.MemLimit == 0 {
		return Params{}, fmt.Errorf("%w: kdf params out of range", common.ErrFormat)
	}

	delete(fields, "opslimit")
	delete(fields, "memlimit")
	if len(fields) > 0 {
		p.extra = fields
	}

	return p, nil
}
