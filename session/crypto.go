package session

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the minimum length of a system key and the exact length of a
// generated session key.
const KeySize = 32

var encoding = base64.RawURLEncoding

type keyPair struct {
	enc []byte
	mac []byte
}

func deriveKeys(master []byte, purpose string) (keyPair, error) {
	if len(master) < KeySize {
		return keyPair{}, ErrKeyTooShort
	}

	buf := make([]byte, 2*KeySize)
	r := hkdf.New(sha256.New, master, nil, []byte("gogate/"+purpose))
	if _, err := io.ReadFull(r, buf); err != nil {
		return keyPair{}, fmt.Errorf("session: derive keys: %w", err)
	}

	return keyPair{enc: buf[:KeySize], mac: buf[KeySize:]}, nil
}

// NewSessionKey returns fresh random key material for an authentication record.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func seal(key, plaintext, ad []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return encoding.EncodeToString(aead.Seal(nonce, nonce, plaintext, ad)), nil
}

func open(key []byte, sealed string, ad []byte) ([]byte, error) {
	raw, err := encoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrMalformed
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}

	n := aead.NonceSize()
	plaintext, err := aead.Open(nil, raw[:n], raw[n:], ad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func sum(key []byte, parts ...[]byte) string {
	h, err := blake2b.New256(key)
	if err != nil {
		// Only reachable with a key longer than 64 bytes; derived keys are 32.
		panic(err)
	}
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	return encoding.EncodeToString(h.Sum(nil))
}

func verify(key []byte, data string, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(sum(key, []byte(data))), []byte(expected)) == 1
}

// Sealer seals and opens arbitrary payloads under keys derived from one
// master key. It is used for values outside the cookie set, such as
// recovery tokens, that must stop opening once the master key rotates.
type Sealer struct {
	keys    keyPair
	purpose []byte
}

// NewSealer derives a Sealer for purpose from master.
func NewSealer(master []byte, purpose string) (*Sealer, error) {
	keys, err := deriveKeys(master, purpose)
	if err != nil {
		return nil, err
	}
	return &Sealer{keys: keys, purpose: []byte(purpose)}, nil
}

// Seal encrypts and authenticates payload.
func (s *Sealer) Seal(payload []byte) (string, error) {
	return seal(s.keys.enc, payload, s.purpose)
}

// Open reverses Seal. It returns ErrDecrypt when the value was sealed under a
// different master key or was modified.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	return open(s.keys.enc, sealed, s.purpose)
}

// SigningKey returns the MAC sub-key, suitable for signing payloads before
// they are sealed.
func (s *Sealer) SigningKey() []byte {
	out := make([]byte, len(s.keys.mac))
	copy(out, s.keys.mac)
	return out
}
