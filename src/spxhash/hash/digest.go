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

import "fmt"

// DigestName is the registry name of the 256-bit SphinxHash digest.
const DigestName = "spx256"

// Digest exposes a SphinxHash as a fixed-length Lamport digest. It is safe for
// concurrent use.
type Digest struct {
	name string
	h    *SphinxHash
}

// NewDigest returns a 256-bit SphinxHash digest with the given cost parameters.
func NewDigest(params Params) *Digest {
	return &Digest{name: DigestName, h: NewSphinxHash(256, params)}
}

// NewDigestSize returns a SphinxHash digest of bitSize bits named "spx<bits>".
func NewDigestSize(bitSize int, params Params) (*Digest, error) {
	switch bitSize {
	case 256, 384, 512:
	default:
		return nil, fmt.Errorf("spxhash: unsupported bit size %d", bitSize)
	}
	return &Digest{name: fmt.Sprintf("spx%d", bitSize), h: NewSphinxHash(bitSize, params)}, nil
}

func (d *Digest) Name() string { return d.name }

func (d *Digest) Size() int { return d.h.Size() }

func (d *Digest) Sum(data []byte) []byte { return d.h.GetHash(data) }
