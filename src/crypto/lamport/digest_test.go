package lamport

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func TestBuiltinDigestSizes(t *testing.T) {
	sizes := map[string]int{
		SHA256:      32,
		SHA512_256:  32,
		SHA3_256:    32,
		SHAKE256:    32,
		BLAKE2b256:  32,
		BLAKE2Xb256: 32,
		RIPEMD160:   20,
	}
	for name, size := range sizes {
		d := mustDigest(t, name)
		assert.Equal(t, name, d.Name())
		assert.Equal(t, size, d.Size(), name)
		assert.Len(t, d.Sum([]byte("abc")), size, name)
		assert.Equal(t, d.Sum([]byte("abc")), d.Sum([]byte("abc")), name)
		assert.NotEqual(t, d.Sum([]byte("abc")), d.Sum([]byte("abd")), name)
	}
}

func TestSHA256KnownAnswer(t *testing.T) {
	got := mustDigest(t, SHA256).Sum([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hex.EncodeToString(got))
}

func TestLookupUnknownDigest(t *testing.T) {
	_, err := LookupDigest("md5")
	assert.ErrorIs(t, err, ErrUnknownDigest)
}

func TestRegisterDigest(t *testing.T) {
	d := NewHashDigest("sha256-alias", sha256.New)
	RegisterDigest(d)

	got, err := LookupDigest("sha256-alias")
	require.NoError(t, err)
	assert.Same(t, d, got)
	assert.Contains(t, Digests(), "sha256-alias")
	assert.IsIncreasing(t, Digests())
}

func TestBitOrderIsMSBFirst(t *testing.T) {
	h := []byte{0x80, 0x01}
	assert.Equal(t, byte(1), bit(h, 0))
	assert.Equal(t, byte(0), bit(h, 1))
	assert.Equal(t, byte(0), bit(h, 8))
	assert.Equal(t, byte(1), bit(h, 15))
}

func TestCustomXOFDigest(t *testing.T) {
	d := NewXOFDigest("shake128-256", 32, func() XOF { return sha3.NewShake128() })
	assert.Equal(t, 32, d.Size())

	want := make([]byte, 32)
	sha3.ShakeSum128(want, []byte("abc"))
	assert.Equal(t, want, d.Sum([]byte("abc")))

	sk, vk, err := GenerateKeyPair(nil, d)
	require.NoError(t, err)
	sig, err := sk.Sign([]byte("abc"))
	require.NoError(t, err)
	assert.True(t, vk.Verify([]byte("abc"), sig))
}
