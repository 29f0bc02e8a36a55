package hash_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membercore/internal/hash"
)

func TestEncodePassword_KnownAnswer(t *testing.T) {
	t.Parallel()

	// Vector produced by the retired framework's scheme: HMAC-SHA1 keyed by
	// the 16-byte salt 000102..0f tiled to 64 bytes, over the UTF-16LE bytes
	// of the password.
	salt := "AAECAwQFBgcICQoLDA0ODw=="
	digest, err := hash.EncodePassword("SecretPassword!", salt)
	require.NoError(t, err)
	assert.Equal(t, "sllIaneBqF+pViAUJjJLhMLcyzA=", digest)
}

func TestHash(t *testing.T) {
	t.Parallel()

	digest, salt, err := hash.Hash("SecretPassword!")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	require.NotEmpty(t, salt)

	recomputed, err := hash.EncodePassword("SecretPassword!", salt)
	require.NoError(t, err)
	assert.Equal(t, digest, recomputed)

	// fresh salt every call, so digests diverge too
	digest2, salt2, err := hash.Hash("SecretPassword!")
	require.NoError(t, err)
	assert.NotEqual(t, salt, salt2)
	assert.NotEqual(t, digest, digest2)

	_, _, err = hash.Hash("")
	assert.ErrorIs(t, err, hash.ErrEmptyPassword)
}

func TestEncodePassword_BadSalt(t *testing.T) {
	t.Parallel()

	_, err := hash.EncodePassword("pw", "not base64 !!!")
	require.Error(t, err)
}

func TestVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	passwords := []string{"SecretPassword!", "a", "päss wörd", "正しいパスワード", ""}
	for _, pw := range passwords {
		salt := hash.NewSalt()
		digest, err := hash.EncodePassword(pw, salt)
		require.NoError(t, err)
		blob, err := hash.EncodeCredential(hash.FormatLegacy, salt, digest)
		require.NoError(t, err)

		assert.Equal(t, hash.VerificationSuccess, hash.Verify(blob, pw), "password %q", pw)
		assert.Equal(t, hash.VerificationFailed, hash.Verify(blob, pw+"x"), "password %q", pw)
	}
}

func TestVerify_KnownBlob(t *testing.T) {
	t.Parallel()

	blob := "AAABAgMEBQYHCAkKCwwNDg+yWUhqd4GoX6lWIBQmMkuEwtzLMA=="
	assert.Equal(t, hash.VerificationSuccess, hash.Verify(blob, "SecretPassword!"))
	assert.Equal(t, hash.VerificationFailed, hash.Verify(blob, "secretpassword!"))
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	salt := hash.NewSalt()
	digest, err := hash.EncodePassword("pw", salt)
	require.NoError(t, err)

	wrongFormat, err := hash.EncodeCredential(0x01, salt, digest)
	require.NoError(t, err)

	shortPayload := base64.StdEncoding.EncodeToString(make([]byte, 1+16+19))

	tests := []struct {
		name string
		blob string
	}{
		{name: "not base64", blob: "%%%"},
		{name: "empty", blob: ""},
		{name: "wrong format byte", blob: wrongFormat},
		{name: "payload too short", blob: shortPayload},
		{name: "salt only", blob: base64.StdEncoding.EncodeToString(make([]byte, 17))},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, hash.VerificationFailed, hash.Verify(tt.blob, "pw"))
		})
	}
}

func TestNewSalt_DecodesTo16Bytes(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		salt := hash.NewSalt()
		raw, err := base64.StdEncoding.DecodeString(salt)
		require.NoError(t, err)
		assert.Len(t, raw, 16)
		assert.False(t, seen[salt], "salt repeated")
		seen[salt] = true
	}
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()

	salt := make([]byte, 16)
	for i := range salt {
		salt[i] = byte(i)
	}
	key := hash.DeriveKey(salt)
	require.Len(t, key, 64)
	// a 16-byte salt tiles four times
	for i, b := range key {
		assert.Equal(t, byte(i%16), b)
	}

	long := make([]byte, 80)
	for i := range long {
		long[i] = byte(i)
	}
	key = hash.DeriveKey(long)
	require.Len(t, key, 64)
	assert.Equal(t, long[:64], key)
}

func TestBytesEqual(t *testing.T) {
	t.Parallel()

	a := []byte{1, 2, 3, 4}
	assert.True(t, hash.BytesEqual(a, []byte{1, 2, 3, 4}))
	// mismatch position must not change the outcome path
	assert.False(t, hash.BytesEqual(a, []byte{0, 2, 3, 4}))
	assert.False(t, hash.BytesEqual(a, []byte{1, 2, 3, 0}))
	assert.False(t, hash.BytesEqual(a, []byte{1, 2, 3}))
	assert.True(t, hash.BytesEqual(nil, nil))
	assert.True(t, hash.BytesEqual([]byte{}, nil))
}
