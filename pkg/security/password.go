package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

// legacyMaxPasswordBytes is the input cap inherited from an earlier bcrypt
// deployment. Argon2 has no such limit, but existing hashes were produced from
// truncated input, so the rule must survive the algorithm change.
const legacyMaxPasswordBytes = 72

// ErrMalformedHash reports a stored hash that cannot be parsed. A plain
// mismatch is not an error.
var ErrMalformedHash = fmt.Errorf("security: malformed password hash")

// Params are the argon2id cost settings, fixed at construction.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultParams mirrors the deployment's historical passlib configuration.
func DefaultParams() Params {
	return Params{
		Time:    10,
		Memory:  1024,
		Threads: 2,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// Hasher hashes and verifies passwords with argon2id.
type Hasher struct {
	params Params
}

// NewHasher builds a Hasher with the given cost parameters.
func NewHasher(params Params) *Hasher {
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		params = DefaultParams()
	}
	if params.SaltLen == 0 {
		params.SaltLen = 16
	}
	if params.KeyLen == 0 {
		params.KeyLen = 32
	}
	return &Hasher{params: params}
}

// Hash derives an argon2id hash in PHC string form.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("security: generate salt: %w", err)
	}

	password := truncateLegacy(plaintext)
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify checks the plaintext against a stored PHC hash. The boolean carries
// the match result; the error is non-nil only for malformed hashes.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	password := truncateLegacy(plaintext)
	candidate := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(key)))

	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

// truncateLegacy caps the password at 72 UTF-8 bytes, dropping any trailing
// partial multi-byte sequence left by the cut.
func truncateLegacy(plaintext string) string {
	if len(plaintext) <= legacyMaxPasswordBytes {
		return plaintext
	}
	b := []byte(plaintext)[:legacyMaxPasswordBytes]
	for len(b) > 0 {
		r, size := utf8.DecodeLastRune(b)
		if r == utf8.RuneError && size == 1 {
			b = b[:len(b)-1]
			continue
		}
		break
	}
	return string(b)
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, ErrMalformedHash
	}

	var params Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	if len(salt) == 0 || len(key) == 0 {
		return Params{}, nil, nil, ErrMalformedHash
	}

	return params, salt, key, nil
}
