package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"golang.org/x/crypto/argon2"
)

// Server-side password hashing parameters. Unlike the vault KDF these are not
// persisted separately per user: the full parameter set is encoded into the
// hash string itself, so verification always replays the original cost.
const (
	passwordSaltSize  = 16
	passwordKeyLen    = 32
	passwordTime      = 1
	passwordMemoryKiB = 64 * 1024
	passwordThreads   = 4
)

// HashPassword hashes a plaintext password with argon2id and encodes the
// result in PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt b64>$<hash b64>
func HashPassword(password []byte) (string, error) {
	salt, err := common.GenerateRandBytes(passwordSaltSize)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey(password, salt, passwordTime, passwordMemoryKiB, passwordThreads, passwordKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, passwordMemoryKiB, passwordTime, passwordThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))

	return encoded, nil
}

// VerifyPassword checks candidate against an encoded argon2id hash. The hash
// is recomputed with the parameters stored in the encoded string and compared
// in constant time. A malformed encoded hash is an error; a mismatch is not.
func VerifyPassword(encoded string, candidate []byte) (bool, error) {
	salt, hash, time, memoryKiB, threads, err := decodePasswordHash(encoded)
	if err != nil {
		return false, err
	}

	candidateHash := argon2.IDKey(candidate, salt, time, memoryKiB, threads, uint32(len(hash)))
	defer common.WipeByteArray(candidateHash)

	return subtle.ConstantTimeCompare(hash, candidateHash) == 1, nil
}

func decodePasswordHash(encoded string) (salt, hash []byte, time, memoryKiB uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("unsupported password hash format")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("password hash version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, 0, 0, 0, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKiB, &time, &threads); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("password hash params: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("password hash salt: %w", err)
	}
	if hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("password hash digest: %w", err)
	}

	return salt, hash, time, memoryKiB, threads, nil
}
