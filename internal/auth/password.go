package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Upper bounds on argon2 cost parameters. Stored hashes above them are
// treated as malformed, so the hasher must never be configured past them.
const (
	MaxArgon2Memory  = 1024 * 1024 // 1 GiB in KiB
	MaxArgon2Time    = 64
	MaxArgon2Threads = 64
	MaxArgon2KeyLen  = 128
)

// Argon2Params are the argon2id cost parameters
type Argon2Params struct {
	Memory      uint32 `mapstructure:"memory"` // KiB
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// Validate checks params against the bounds Verify accepts. Zero fields are
// allowed since NewPasswordHasher replaces them with defaults.
func (p Argon2Params) Validate() error {
	if p.Memory > MaxArgon2Memory {
		return fmt.Errorf("argon2 memory %d KiB exceeds %d", p.Memory, MaxArgon2Memory)
	}
	if p.Iterations > MaxArgon2Time {
		return fmt.Errorf("argon2 iterations %d exceeds %d", p.Iterations, MaxArgon2Time)
	}
	if p.Parallelism > MaxArgon2Threads {
		return fmt.Errorf("argon2 parallelism %d exceeds %d", p.Parallelism, MaxArgon2Threads)
	}
	if p.KeyLength > MaxArgon2KeyLen {
		return fmt.Errorf("argon2 key length %d exceeds %d", p.KeyLength, MaxArgon2KeyLen)
	}
	return nil
}

// DefaultArgon2Params is 64 MiB, 3 passes, 2 lanes
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// PasswordHasher hashes and verifies passwords with argon2id.
// Hashes are self-describing, so changing params keeps old hashes valid.
type PasswordHasher struct {
	params Argon2Params
	rand   io.Reader
}

// NewPasswordHasher creates a hasher. Zero fields in params fall back to
// DefaultArgon2Params.
func NewPasswordHasher(params Argon2Params) *PasswordHasher {
	if params.Memory == 0 {
		params.Memory = DefaultArgon2Params.Memory
	}
	if params.Iterations == 0 {
		params.Iterations = DefaultArgon2Params.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultArgon2Params.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = DefaultArgon2Params.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = DefaultArgon2Params.KeyLength
	}
	return &PasswordHasher{params: params, rand: rand.Reader}
}

// Hash returns an encoded argon2id hash of password
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Malformed input is
// simply a mismatch.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	params, salt, key, ok := decodeHash(encoded)
	if !ok {
		return false
	}

	other := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	return subtle.ConstantTimeCompare(key, other) == 1
}

// NeedsRehash reports whether encoded was produced with other parameters
// than the hasher's current ones.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	params, _, _, ok := decodeHash(encoded)
	if !ok {
		return true
	}
	return params.Memory != h.params.Memory ||
		params.Iterations != h.params.Iterations ||
		params.Parallelism != h.params.Parallelism ||
		params.SaltLength != h.params.SaltLength ||
		params.KeyLength != h.params.KeyLength
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, bool) {
	var params Argon2Params

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params, nil, nil, false
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return params, nil, nil, false
	}

	var memory, iterations, parallelism uint64
	n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil || n != 3 || fmt.Sprintf("m=%d,t=%d,p=%d", memory, iterations, parallelism) != parts[3] {
		return params, nil, nil, false
	}
	if memory == 0 || memory > MaxArgon2Memory ||
		iterations == 0 || iterations > MaxArgon2Time ||
		parallelism == 0 || parallelism > MaxArgon2Threads {
		return params, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > MaxArgon2KeyLen {
		return params, nil, nil, false
	}

	params = Argon2Params{
		Memory:      uint32(memory),
		Iterations:  uint32(iterations),
		Parallelism: uint8(parallelism),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}
	return params, salt, key, true
}
