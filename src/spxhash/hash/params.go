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

package spxhash

// SIPS-0001 https://github.com/sphinx-core/sips/wiki/SIPS-0001

// Define prime constants for hash calculations.
const (
	prime32  = 0x9e3779b9 // mixing constant for the diffusion rounds
	saltSize = 16         // Size of salt in bytes (128 bits = 16 bytes)

	// DefaultCacheSize is the number of digests an LRUCache keeps.
	DefaultCacheSize = 1024
)

// DefaultParams keeps a single evaluation in the low milliseconds so that a
// Lamport key, which needs one evaluation per preimage, stays practical.
// Argon2id memory is in KiB: 64 means 64 KiB.
var DefaultParams = Params{
	Memory:      64,
	Iterations:  2,
	Parallelism: 1,
	Rounds:      2000,
}

// Size returns the number of bytes in the hash based on the bit size.
func (s *SphinxHash) Size() int {
	switch s.bitSize {
	case 384:
		return 48
	case 512:
		return 64
	default:
		return 32
	}
}

// BlockSize returns the SHA-512 block size, the inner compression function.
func (s *SphinxHash) BlockSize() int {
	return 128
}
