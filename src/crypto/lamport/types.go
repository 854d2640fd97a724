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
	"errors"
	"sync/atomic"
)

var (
	// ErrGeneration reports that the random source failed during key generation.
	ErrGeneration = errors.New("lamport: key generation failed")
	// ErrKeyAlreadySpent is returned by Sign on a key that already produced a signature.
	ErrKeyAlreadySpent = errors.New("lamport: signing key already spent")
	// ErrMalformed reports an encoding that cannot be decoded.
	ErrMalformed = errors.New("lamport: malformed encoding")
	// ErrUnknownDigest reports a digest name missing from the registry.
	ErrUnknownDigest = errors.New("lamport: unknown digest")
)

// Params describes the shape of a key pair for one digest.
type Params struct {
	Digest     Digest
	Bits       int // B, number of signed digest bits (8 * Digest.Size())
	SecretSize int // S, length of each secret preimage in bytes
}

// SigningKey holds the 2*B secret preimages. It signs at most once.
type SigningKey struct {
	params Params
	zero   [][]byte // preimages disclosed for 0 bits
	one    [][]byte // preimages disclosed for 1 bits
	spent  atomic.Bool
}

// VerifyingKey holds the digests of every preimage of a SigningKey. It is
// never mutated after derivation and may be shared between goroutines.
type VerifyingKey struct {
	params Params
	zero   [][]byte
	one    [][]byte
}

// Signature is the ordered disclosure of one preimage per message-digest bit.
type Signature struct {
	preimages [][]byte
}
