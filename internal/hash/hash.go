// Package hash implements the legacy membership password scheme: a salted
// keyed SHA-1 digest over the UTF-16LE bytes of the password, persisted as
// base64 of [formatByte][16-byte salt][digest]. It exists to keep a password
// corpus hashed by a retired framework verifiable, and to let credentials be
// folded forward to a fresh salt as users log in, without a bulk migration.
package hash

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
)

const (
	// FormatLegacy is the only credential format byte this engine verifies.
	FormatLegacy byte = 0x00

	saltSize = 16

	// The legacy runtime sized keyed-hash keys to the SHA-1 block length.
	// Salts shorter than this are tiled to fill it, longer ones truncated.
	keySize = 64

	minDigestSize = 20
)

var ErrEmptyPassword = errors.New("hash: empty password")

// VerificationResult is the closed outcome set of a credential check.
// Verify itself only ever reports Failed or Success; upgrading Success to
// SuccessRehashNeeded is a policy decision left to the caller.
type VerificationResult int

const (
	VerificationFailed VerificationResult = iota
	VerificationSuccess
	VerificationSuccessRehashNeeded
)

func (r VerificationResult) String() string {
	switch r {
	case VerificationSuccess:
		return "success"
	case VerificationSuccessRehashNeeded:
		return "success-rehash-needed"
	default:
		return "failed"
	}
}

// NewSalt returns a fresh cryptographically random 16-byte salt, base64.
func NewSalt() string {
	buf := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// Hash encodes password under a fresh random salt and returns both parts
// base64 encoded. Refuses an empty password; everything downstream treats an
// empty stored digest as "no credential".
func Hash(password string) (digest, salt string, err error) {
	if password == "" {
		return "", "", ErrEmptyPassword
	}
	salt = NewSalt()
	digest, err = EncodePassword(password, salt)
	if err != nil {
		return "", "", err
	}
	return digest, salt, nil
}

// EncodePassword computes the legacy digest of password under salt (both
// base64 in, base64 out). Fails only on an undecodable salt.
func EncodePassword(password, salt string) (string, error) {
	bSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("hash: decode salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(digest(password, bSalt)), nil
}

// EncodeCredential assembles the portable credential blob
// [version][salt][digest] and returns it base64 encoded.
func EncodeCredential(version byte, salt, digest string) (string, error) {
	bSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("hash: decode salt: %w", err)
	}
	bDigest, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return "", fmt.Errorf("hash: decode digest: %w", err)
	}
	all := make([]byte, 1+len(bSalt)+len(bDigest))
	all[0] = version
	copy(all[1:], bSalt)
	copy(all[1+len(bSalt):], bDigest)
	return base64.StdEncoding.EncodeToString(all), nil
}

// Verify decodes a base64 credential blob and checks password against it.
// Any structural defect (wrong format byte, payload shorter than a salt plus
// a SHA-1 digest, bad base64) yields VerificationFailed.
func Verify(storedBlob, password string) VerificationResult {
	decoded, err := base64.StdEncoding.DecodeString(storedBlob)
	if err != nil {
		return VerificationFailed
	}
	if len(decoded) == 0 || decoded[0] != FormatLegacy {
		return VerificationFailed
	}
	if len(decoded) < 1+saltSize+minDigestSize {
		return VerificationFailed
	}
	salt := decoded[1 : 1+saltSize]
	stored := decoded[1+saltSize:]
	if bytesEqual(digest(password, salt), stored) {
		return VerificationSuccess
	}
	return VerificationFailed
}

func digest(password string, salt []byte) []byte {
	mac := hmac.New(sha1.New, deriveKey(salt))
	mac.Write(utf16leBytes(password))
	return mac.Sum(nil)
}

// deriveKey folds a salt into a keyed-hash key of the legacy key length:
// longer salts are truncated, shorter ones repeated until the key is full.
func deriveKey(salt []byte) []byte {
	key := make([]byte, keySize)
	if len(salt) == 0 {
		return key
	}
	if len(salt) >= keySize {
		copy(key, salt[:keySize])
		return key
	}
	for i := 0; i < keySize; i += len(salt) {
		copy(key[i:], salt)
	}
	return key
}

// utf16leBytes mirrors the retired framework's password byte encoding.
func utf16leBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(units))
	for i, u := range units {
		b[2*i] = byte(u)
		b[2*i+1] = byte(u >> 8)
	}
	return b
}

// bytesEqual compares every byte pair regardless of where the first mismatch
// occurs so that comparison time does not depend on the inputs.
//
//go:noinline
func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	same := true
	for i := range a {
		eq := a[i] == b[i]
		same = same && eq
	}
	return same
}
