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
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"sort"
	"sync"

	"github.com/cloudflare/circl/xof"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// Digest is the fixed-output-length hash function a Lamport key is built on.
// Size is the output length L in bytes; a key signs B = 8*L digest bits.
type Digest interface {
	Name() string
	Size() int
	Sum(data []byte) []byte
}

// Names of the built-in digests.
const (
	SHA256      = "sha256"
	SHA512_256  = "sha512-256"
	SHA3_256    = "sha3-256"
	SHAKE256    = "shake256-256"
	BLAKE2b256  = "blake2b-256"
	BLAKE2Xb256 = "blake2xb-256"
	RIPEMD160   = "ripemd160"

	// DefaultDigest matches the SHA-256 instantiation of the scheme.
	DefaultDigest = SHA256
)

// HashDigest adapts a hash.Hash constructor to a Digest.
type HashDigest struct {
	name    string
	size    int
	newHash func() hash.Hash
}

// NewHashDigest wraps newHash under the given name. The output length is taken
// from the constructed hash.
func NewHashDigest(name string, newHash func() hash.Hash) *HashDigest {
	return &HashDigest{name: name, size: newHash().Size(), newHash: newHash}
}

func (d *HashDigest) Name() string { return d.name }

func (d *HashDigest) Size() int { return d.size }

// Sum returns the digest of data.
func (d *HashDigest) Sum(data []byte) []byte {
	h := d.newHash()
	h.Write(data)
	return h.Sum(nil)
}

// XOF is the subset of an extendable-output function a digest needs.
// sha3.ShakeHash and circl's xof.XOF both satisfy it.
type XOF interface {
	io.Writer
	io.Reader
}

// XOFDigest adapts an extendable-output function read to a fixed length.
type XOFDigest struct {
	name   string
	size   int
	newXOF func() XOF
}

// NewXOFDigest wraps newXOF, truncating its output stream to size bytes.
func NewXOFDigest(name string, size int, newXOF func() XOF) *XOFDigest {
	return &XOFDigest{name: name, size: size, newXOF: newXOF}
}

func (d *XOFDigest) Name() string { return d.name }

func (d *XOFDigest) Size() int { return d.size }

// Sum absorbs data and squeezes Size bytes of output.
func (d *XOFDigest) Sum(data []byte) []byte {
	x := d.newXOF()
	x.Write(data)
	out := make([]byte, d.size)
	if _, err := io.ReadFull(x, out); err != nil {
		// Both SHAKE and BLAKE2X produce far more than 32 bytes; a short read
		// means the XOF implementation is broken.
		panic(fmt.Sprintf("lamport: %s squeeze failed: %v", d.name, err))
	}
	return out
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Digest{}
)

func init() {
	for _, d := range []Digest{
		NewHashDigest(SHA256, sha256.New),
		NewHashDigest(SHA512_256, sha512.New512_256),
		NewHashDigest(SHA3_256, sha3.New256),
		NewXOFDigest(SHAKE256, 32, func() XOF { return sha3.NewShake256() }),
		NewHashDigest(BLAKE2b256, newBlake2b256),
		NewXOFDigest(BLAKE2Xb256, 32, func() XOF { return xof.BLAKE2XB.New() }),
		NewHashDigest(RIPEMD160, ripemd160.New),
	} {
		registry[d.Name()] = d
	}
}

func newBlake2b256() hash.Hash {
	// Only a non-nil key with more than 64 bytes can make New256 fail.
	h, _ := blake2b.New256(nil)
	return h
}

// RegisterDigest makes d available to LookupDigest under d.Name(). A digest
// registered twice under the same name replaces the earlier one.
func RegisterDigest(d Digest) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name()] = d
}

// LookupDigest returns the registered digest called name.
func LookupDigest(name string) (Digest, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDigest, name)
	}
	return d, nil
}

// Digests lists the registered digest names in sorted order.
func Digests() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
