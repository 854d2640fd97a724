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

// NewParams returns the parameters of a key pair over d. Secret preimages are
// as long as the digest output.
func NewParams(d Digest) Params {
	return Params{
		Digest:     d,
		Bits:       8 * d.Size(),
		SecretSize: d.Size(),
	}
}

// bit returns bit i of h, most significant bit of h[0] first.
func bit(h []byte, i int) byte {
	return (h[i/8] >> (7 - uint(i%8))) & 1
}

// messageBits hashes message and expands the digest into one byte per bit.
func messageBits(d Digest, message []byte) []byte {
	h := d.Sum(message)
	bits := make([]byte, 8*len(h))
	for i := range bits {
		bits[i] = bit(h, i)
	}
	return bits
}

func cloneAll(src [][]byte) [][]byte {
	dst := make([][]byte, len(src))
	for i, b := range src {
		dst[i] = append([]byte(nil), b...)
	}
	return dst
}
