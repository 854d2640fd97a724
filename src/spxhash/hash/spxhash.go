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

import (
	"bytes"
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"io"

	"github.com/minio/highwayhash"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/sha3"
)

// SIPS-0001 https://github.com/sphinx-core/sips/wiki/SIPS-0001

// NewLRUCache initializes a new LRU cache keyed by a HighwayHash of the input
// under a random per-cache key.
func NewLRUCache(capacity int) *LRUCache {
	hashKey := make([]byte, highwayhash.Size)
	if _, err := rand.Read(hashKey); err != nil {
		panic(err)
	}
	return &LRUCache{
		capacity: capacity,
		hashKey:  hashKey,
		cache:    make(map[cacheKey]*Node),
	}
}

// keyOf maps a full input to its cache key. Two inputs share a key only on a
// HighwayHash-256 collision.
func (l *LRUCache) keyOf(data []byte) cacheKey {
	return highwayhash.Sum(data, l.hashKey)
}

// Get retrieves a value from the cache.
func (l *LRUCache) Get(key cacheKey) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if node, found := l.cache[key]; found {
		l.moveToFront(node) // most recently used
		return node.value, true
	}
	return nil, false
}

// Put inserts a value into the cache.
func (l *LRUCache) Put(key cacheKey, value []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if node, found := l.cache[key]; found {
		node.value = value
		l.moveToFront(node)
		return
	}

	node := &Node{key: key, value: value}
	l.cache[key] = node
	if l.head == nil {
		l.head = node
		l.tail = node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}

	if len(l.cache) > l.capacity {
		l.evict()
	}
}

// Len returns the number of cached entries.
func (l *LRUCache) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

// evict removes the least recently used item from the cache.
func (l *LRUCache) evict() {
	if l.tail == nil {
		return
	}
	delete(l.cache, l.tail.key)
	l.tail = l.tail.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
}

// moveToFront moves a node to the front of the linked list.
func (l *LRUCache) moveToFront(node *Node) {
	if node == l.head {
		return
	}
	if node.prev != nil {
		node.prev.next = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	}
	if node == l.tail {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = l.head
	l.head.prev = node
	l.head = node
}

// NewSphinxHash creates a new SphinxHash with a specific bit size for the hash.
func NewSphinxHash(bitSize int, params Params) *SphinxHash {
	return &SphinxHash{
		bitSize: bitSize,
		params:  params,
		cache:   NewLRUCache(DefaultCacheSize),
	}
}

// generateSalt derives a deterministic salt from the input with Argon2id.
func (s *SphinxHash) generateSalt(data []byte) []byte {
	p := s.params
	return argon2.IDKey(data, data, p.Iterations, p.Memory, p.Parallelism, saltSize)
}

// GetHash retrieves or calculates the hash of the given data. It does not
// touch the data accumulated through Write, so one SphinxHash may serve
// concurrent GetHash calls.
func (s *SphinxHash) GetHash(data []byte) []byte {
	key := s.cache.keyOf(data)
	if cached, found := s.cache.Get(key); found {
		return append([]byte(nil), cached...)
	}

	hash := s.hashData(data)
	s.cache.Put(key, hash)
	return append([]byte(nil), hash...)
}

// Read reads the hash of the written data into p.
func (s *SphinxHash) Read(p []byte) (n int, err error) {
	hash := s.GetHash(s.data)
	n = copy(p, hash)
	if n < len(hash) {
		return n, io.EOF // p is shorter than the hash
	}
	return n, nil
}

// Write adds data to the hash.
func (s *SphinxHash) Write(p []byte) (n int, err error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

// Sum appends the current hash to b and returns the resulting slice.
func (s *SphinxHash) Sum(b []byte) []byte {
	return append(b, s.GetHash(s.data)...)
}

// Reset discards written data. Cached digests are kept.
func (s *SphinxHash) Reset() {
	s.data = s.data[:0]
}

// hashData calculates the combined hash of data using multiple hash functions based on the bit size.
func (s *SphinxHash) hashData(data []byte) []byte {
	salt := s.generateSalt(data)

	// Key stretching with Argon2id over data || salt.
	combined := make([]byte, 0, len(data)+len(salt))
	combined = append(append(combined, data...), salt...)
	p := s.params
	stretchedKey := argon2.IDKey(combined, salt, p.Iterations, p.Memory, p.Parallelism, 64)

	// Step 1: SHA-512/256 of the stretched key.
	sha2Hash := sha512.Sum512_256(stretchedKey)

	// Step 2: SHAKE256 of the stretched key, read to 32 bytes.
	shakeHash := make([]byte, len(sha2Hash))
	sha3.ShakeSum256(shakeHash, stretchedKey)

	// Step 3: combine and mix, then squeeze the configured output size.
	return s.sphinxHash(sha2Hash[:], shakeHash, prime32)
}

// sphinxHash combines two equal-length hashes with chaining (H0(H1(x))) and
// concatenation (H0(x)|H1(x)), runs the diffusion rounds and expands the
// result to Size bytes.
func (s *SphinxHash) sphinxHash(hash1, hash2 []byte, primeConstant uint64) []byte {
	if len(hash1) != len(hash2) {
		panic("hash1 and hash2 must have the same length")
	}

	// Chain: SHAKE256(SHA-512/256(hash1)).
	chain1 := sha512.Sum512_256(hash1)
	chain2 := make([]byte, len(chain1))
	sha3.ShakeSum256(chain2, chain1[:])

	// Concatenate both chain results with the second input and rehash.
	combined := bytes.Join([][]byte{chain1[:], chain2, hash2}, nil)
	state := sha512.Sum512_256(combined)
	mixed := state[:]

	for round := 0; round < s.params.Rounds; round++ {
		for i := range mixed {
			mixed[i] = (mixed[i] << 3) | (mixed[i] >> 5)
			mixed[i] ^= byte(primeConstant >> (round % 64))
		}
		next := sha512.Sum512_256(mixed)
		mixed = next[:]
	}

	// Add the prime constant to each 64-bit word.
	for off := 0; off+8 <= len(mixed); off += 8 {
		val := binary.LittleEndian.Uint64(mixed[off : off+8])
		binary.LittleEndian.PutUint64(mixed[off:off+8], val+primeConstant)
	}

	out := make([]byte, s.Size())
	sha3.ShakeSum256(out, mixed)
	return out
}
