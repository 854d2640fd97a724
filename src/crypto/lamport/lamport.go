// MIT License
//
// Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package lamport

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
)

// GenerateKey draws 2*B secret preimages from r. A nil r uses crypto/rand and
// a nil d uses SHA-256. Any read failure is returned wrapped in ErrGeneration.
func GenerateKey(r io.Reader, d Digest) (*SigningKey, error) {
	if r == nil {
		r = rand.Reader
	}
	if d == nil {
		d, _ = LookupDigest(DefaultDigest)
	}
	params := NewParams(d)

	// One read for all preimages, then slice it up per position.
	buf := make([]byte, 2*params.Bits*params.SecretSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	sk := &SigningKey{
		params: params,
		zero:   make([][]byte, params.Bits),
		one:    make([][]byte, params.Bits),
	}
	for i := 0; i < params.Bits; i++ {
		off := 2 * i * params.SecretSize
		sk.zero[i] = buf[off : off+params.SecretSize : off+params.SecretSize]
		sk.one[i] = buf[off+params.SecretSize : off+2*params.SecretSize : off+2*params.SecretSize]
	}
	return sk, nil
}

// GenerateKeyPair generates a signing key and derives its verifying key.
func GenerateKeyPair(r io.Reader, d Digest) (*SigningKey, *VerifyingKey, error) {
	sk, err := GenerateKey(r, d)
	if err != nil {
		return nil, nil, err
	}
	return sk, NewVerifyingKey(sk), nil
}

// NewVerifyingKey hashes every preimage of sk, keeping position and zero/one
// membership. The same sk always yields an identical key, spent or not.
func NewVerifyingKey(sk *SigningKey) *VerifyingKey {
	d := sk.params.Digest
	vk := &VerifyingKey{
		params: sk.params,
		zero:   make([][]byte, len(sk.zero)),
		one:    make([][]byte, len(sk.one)),
	}
	for i := range sk.zero {
		vk.zero[i] = d.Sum(sk.zero[i])
		vk.one[i] = d.Sum(sk.one[i])
	}
	return vk
}

// VerifyingKey derives the public half of sk.
func (sk *SigningKey) VerifyingKey() *VerifyingKey {
	return NewVerifyingKey(sk)
}

// Params returns the key parameters.
func (sk *SigningKey) Params() Params { return sk.params }

// Spent reports whether Sign has already been called on sk.
func (sk *SigningKey) Spent() bool { return sk.spent.Load() }

// Sign discloses one preimage per bit of D(message). The key moves from fresh
// to spent atomically before anything is disclosed, so of any number of
// concurrent callers exactly one gets a signature and the rest get
// ErrKeyAlreadySpent.
func (sk *SigningKey) Sign(message []byte) (*Signature, error) {
	if !sk.spent.CompareAndSwap(false, true) {
		return nil, ErrKeyAlreadySpent
	}

	bits := messageBits(sk.params.Digest, message)
	preimages := make([][]byte, sk.params.Bits)
	for i, b := range bits {
		src := sk.zero[i]
		if b == 1 {
			src = sk.one[i]
		}
		preimages[i] = append([]byte(nil), src...)
	}
	return &Signature{preimages: preimages}, nil
}

// Params returns the key parameters.
func (vk *VerifyingKey) Params() Params { return vk.params }

// Equal reports whether vk and other are bit-identical keys over the same digest.
func (vk *VerifyingKey) Equal(other *VerifyingKey) bool {
	if vk == nil || other == nil {
		return vk == other
	}
	if vk.params.Digest == nil || other.params.Digest == nil {
		return vk.params.Digest == other.params.Digest && len(vk.zero) == 0 && len(other.zero) == 0
	}
	if vk.params.Digest.Name() != other.params.Digest.Name() || len(vk.zero) != len(other.zero) {
		return false
	}
	for i := range vk.zero {
		if !bytes.Equal(vk.zero[i], other.zero[i]) || !bytes.Equal(vk.one[i], other.one[i]) {
			return false
		}
	}
	return true
}

// Verify reports whether sig is a valid signature of message under vk.
//
// A zero-value key, a nil or wrong-length signature, a preimage of the wrong size, and a digest
// whose output does not cover exactly B bits all return false, the same as a
// mismatching preimage. Every position is checked; the expected digest is
// picked with constant-time selection so timing does not depend on which half
// of the key a bit refers to.
func (vk *VerifyingKey) Verify(message []byte, sig *Signature) bool {
	if vk == nil || vk.params.Digest == nil || sig == nil || len(sig.preimages) != vk.params.Bits {
		return false
	}
	for _, p := range sig.preimages {
		if len(p) != vk.params.SecretSize {
			return false
		}
	}

	d := vk.params.Digest
	bits := messageBits(d, message)
	if len(bits) != vk.params.Bits {
		return false
	}

	want := make([]byte, d.Size())
	ok := 1
	for i, b := range bits {
		got := d.Sum(sig.preimages[i])
		if len(got) != len(want) || len(vk.zero[i]) != len(want) || len(vk.one[i]) != len(want) {
			return false
		}
		subtle.ConstantTimeCopy(int(1-b), want, vk.zero[i])
		subtle.ConstantTimeCopy(int(b), want, vk.one[i])
		ok &= subtle.ConstantTimeCompare(got, want)
	}
	return ok == 1
}

// NewSignature builds a signature from raw preimages, copying them.
func NewSignature(preimages [][]byte) *Signature {
	return &Signature{preimages: cloneAll(preimages)}
}

// Len returns the number of preimages in sig.
func (sig *Signature) Len() int { return len(sig.preimages) }

// Preimages returns a copy of the disclosed preimages in bit order.
func (sig *Signature) Preimages() [][]byte { return cloneAll(sig.preimages) }
