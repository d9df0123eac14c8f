package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// MinLength is the shortest password, in bytes, the hasher accepts.
const MinLength = 10

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

var (
	// ErrTooShort is returned by Hash for passwords under MinLength bytes.
	ErrTooShort = errors.New("password: shorter than 10 bytes")
	// ErrInvalidHash is returned when a stored hash is not a PHC argon2id string.
	ErrInvalidHash = errors.New("password: invalid PHC hash")
	// ErrInvalidConfig is returned by NewArgon2 for parameters below the floor.
	ErrInvalidConfig = errors.New("password: invalid argon2 config")
)

var phc = base64.RawStdEncoding

// Config holds Argon2id cost parameters.
type Config struct {
	Memory      uint32 `yaml:"memory_kb"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
}

// DefaultConfig returns interactive-login parameters (64 MiB, 3 passes).
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate reports parameters below the accepted floor.
func (c Config) Validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("%w: memory must be >= %d KB", ErrInvalidConfig, minMemoryKB)
	case c.Time < minTimeCost:
		return fmt.Errorf("%w: time must be >= %d", ErrInvalidConfig, minTimeCost)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("%w: parallelism must be >= %d", ErrInvalidConfig, minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt length must be >= %d", ErrInvalidConfig, minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key length must be >= %d", ErrInvalidConfig, minKeyLength)
	}
	return nil
}

// Argon2 hashes and verifies passwords as PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// An Argon2 is immutable and safe for concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher using it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a new salted hash of password. Password bytes are used
// exactly as given, with no Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < MinLength {
		return "", ErrTooShort
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		a.config.Memory, a.config.Time, a.config.Parallelism,
		phc.EncodeToString(salt), phc.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. The parameters embedded
// in encoded are used, not the hasher's own.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), h.salt, h.params.Time, h.params.Memory, h.params.Parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker or
// different parameters than the hasher's current ones.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	stale := a.config.Memory > h.params.Memory ||
		a.config.Time > h.params.Time ||
		a.config.Parallelism > h.params.Parallelism ||
		a.config.KeyLength != uint32(len(h.key))
	return stale, nil
}

type decodedHash struct {
	params Config
	salt   []byte
	key    []byte
}

func decodePHC(encoded string) (*decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrInvalidHash
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}

	params, err := decodeParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := phc.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	key, err := phc.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}

	return &decodedHash{params: params, salt: salt, key: key}, nil
}

func decodeParams(s string) (Config, error) {
	var (
		cfg  Config
		seen = map[string]bool{}
	)

	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return Config{}, fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, pair)
		}
		seen[name] = true

		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, pair)
		}

		switch name {
		case "m":
			if uint32(n) < minMemoryKB {
				return Config{}, fmt.Errorf("%w: memory below floor", ErrInvalidHash)
			}
			cfg.Memory = uint32(n)
		case "t":
			if uint32(n) < minTimeCost {
				return Config{}, fmt.Errorf("%w: time below floor", ErrInvalidHash)
			}
			cfg.Time = uint32(n)
		case "p":
			if n < uint64(minParallelism) || n > 255 {
				return Config{}, fmt.Errorf("%w: parallelism out of range", ErrInvalidHash)
			}
			cfg.Parallelism = uint8(n)
		default:
			return Config{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, name)
		}
	}

	if len(seen) != 3 {
		return Config{}, fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}
	return cfg, nil
}
