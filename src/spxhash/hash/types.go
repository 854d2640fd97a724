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
	"sync"
)

// SIPS-0001 https://github.com/sphinx-core/sips/wiki/SIPS-0001

// Params tunes the cost of a SphinxHash evaluation.
type Params struct {
	Memory      uint32 // Argon2id memory cost in KiB
	Iterations  uint32 // Argon2id passes
	Parallelism uint8  // Argon2id lanes
	Rounds      int    // rotate/xor/rehash diffusion rounds
}

// SphinxHash implements hashing based on SIP-0001 draft.
type SphinxHash struct {
	bitSize int       // 256, 384 or 512
	params  Params    // cost parameters
	data    []byte    // input accumulated through Write
	cache   *LRUCache // previously computed hashes, shared with copies
}

// cacheKey is the HighwayHash-256 of a full input.
type cacheKey [32]byte

// LRUCache is a struct for the LRU cache implementation.
type LRUCache struct {
	capacity int                // Maximum capacity of the cache
	mu       sync.Mutex         // Mutex for concurrent access
	hashKey  []byte             // HighwayHash key, random per cache
	cache    map[cacheKey]*Node // Maps keys to their corresponding nodes in the cache
	head     *Node              // Pointer to the most recently used node
	tail     *Node              // Pointer to the least recently used node
}

// Node is a doubly linked list node for the LRU cache.
type Node struct {
	key   cacheKey
	value []byte
	prev  *Node
	next  *Node
}
