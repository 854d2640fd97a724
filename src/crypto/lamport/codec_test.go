package lamport

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecPreservesKeysAndSignatures(t *testing.T) {
	sk, vk := newPair(t, RIPEMD160)

	skBytes, err := sk.MarshalBinary()
	require.NoError(t, err)
	restored, err := ParseSigningKey(skBytes)
	require.NoError(t, err)
	assert.False(t, restored.Spent())
	assert.True(t, vk.Equal(restored.VerifyingKey()))

	vkBytes, err := vk.MarshalBinary()
	require.NoError(t, err)
	vk2, err := ParseVerifyingKey(vkBytes)
	require.NoError(t, err)
	assert.True(t, vk.Equal(vk2))

	sig, err := restored.Sign([]byte("encoded"))
	require.NoError(t, err)
	sigBytes, err := sig.MarshalBinary()
	require.NoError(t, err)
	sig2, err := ParseSignature(sigBytes)
	require.NoError(t, err)
	assert.True(t, vk2.Verify([]byte("encoded"), sig2))
}

func TestSpentStateSurvivesEncoding(t *testing.T) {
	sk, _ := newPair(t, SHA256)
	_, err := sk.Sign([]byte("once"))
	require.NoError(t, err)

	data, err := sk.MarshalBinary()
	require.NoError(t, err)
	restored, err := ParseSigningKey(data)
	require.NoError(t, err)
	assert.True(t, restored.Spent())

	_, err = restored.Sign([]byte("twice"))
	assert.ErrorIs(t, err, ErrKeyAlreadySpent)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	sk, vk := newPair(t, SHA256)
	vkBytes, err := vk.MarshalBinary()
	require.NoError(t, err)
	skBytes, err := sk.MarshalBinary()
	require.NoError(t, err)

	cases := map[string]func() error{
		"empty verifying key": func() error { _, err := ParseVerifyingKey(nil); return err },
		"truncated verifying key": func() error {
			_, err := ParseVerifyingKey(vkBytes[:len(vkBytes)-1])
			return err
		},
		"signing key as verifying key": func() error { _, err := ParseVerifyingKey(skBytes); return err },
		"bad spent byte": func() error {
			bad := append([]byte(nil), skBytes...)
			bad[3+len(SHA256)+4] = 7
			_, err := ParseSigningKey(bad)
			return err
		},
		"bad version": func() error {
			bad := append([]byte(nil), vkBytes...)
			bad[1] = 9
			_, err := ParseVerifyingKey(bad)
			return err
		},
		"signature header": func() error { _, err := ParseSignature([]byte{tagSignature, 0}); return err },
		"signature payload": func() error {
			_, err := ParseSignature([]byte{tagSignature, 0, 2, 0, 4, 1, 2, 3})
			return err
		},
	}
	for name, decode := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, decode(), ErrMalformed)
		})
	}
}

func TestDecodeUnknownDigest(t *testing.T) {
	_, vk := newPair(t, SHA256)
	data, err := vk.MarshalBinary()
	require.NoError(t, err)

	// Rename "sha256" to "sha257" in place.
	data[3+len(SHA256)-1] = '7'
	_, err = ParseVerifyingKey(data)
	assert.ErrorIs(t, err, ErrUnknownDigest)
}

func TestDecodeBitsMismatch(t *testing.T) {
	_, vk := newPair(t, SHA256)
	data, err := vk.MarshalBinary()
	require.NoError(t, err)

	// B lives right after the digest name.
	data[3+len(SHA256)+1] = 0x80
	_, err = ParseVerifyingKey(data)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	t.Run("digest name", func(t *testing.T) {
		d := NewHashDigest(strings.Repeat("d", 256), sha256.New)
		sk, vk, err := GenerateKeyPair(nil, d)
		require.NoError(t, err)

		_, err = sk.MarshalBinary()
		assert.ErrorIs(t, err, ErrMalformed)
		_, err = vk.MarshalBinary()
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("longest name fits", func(t *testing.T) {
		d := NewHashDigest(strings.Repeat("d", 255), sha256.New)
		_, vk, err := GenerateKeyPair(nil, d)
		require.NoError(t, err)
		_, err = vk.MarshalBinary()
		assert.NoError(t, err)
	})

	t.Run("signature element count", func(t *testing.T) {
		sig := NewSignature(make([][]byte, 1<<16))
		_, err := sig.MarshalBinary()
		assert.ErrorIs(t, err, ErrMalformed)
	})
}
