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
	"encoding/binary"
	"fmt"
	"math"
)

// Encoding tags and version.
const (
	tagSigningKey   = 'S'
	tagVerifyingKey = 'V'
	tagSignature    = 'G'
	codecVersion    = 1
)

// header is the common prefix of encoded keys:
// tag(1) | version(1) | len(name)(1) | name | B(2) | S(2)
type header struct {
	tag        byte
	digest     string
	bits       int
	secretSize int
}

// append encodes h onto b. Values that do not fit their fields are rejected.
func (h header) append(b []byte) ([]byte, error) {
	if len(h.digest) > math.MaxUint8 {
		return nil, fmt.Errorf("%w: digest name is %d bytes, at most %d fit", ErrMalformed, len(h.digest), math.MaxUint8)
	}
	if h.bits > math.MaxUint16 || h.secretSize > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d bits of %d bytes exceed the encodable range", ErrMalformed, h.bits, h.secretSize)
	}
	b = append(b, h.tag, codecVersion, byte(len(h.digest)))
	b = append(b, h.digest...)
	b = binary.BigEndian.AppendUint16(b, uint16(h.bits))
	return binary.BigEndian.AppendUint16(b, uint16(h.secretSize)), nil
}

func readHeader(data []byte, tag byte) (header, []byte, error) {
	if len(data) < 3 {
		return header{}, nil, fmt.Errorf("%w: short header", ErrMalformed)
	}
	if data[0] != tag {
		return header{}, nil, fmt.Errorf("%w: tag %q, want %q", ErrMalformed, data[0], tag)
	}
	if data[1] != codecVersion {
		return header{}, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, data[1])
	}
	n := int(data[2])
	data = data[3:]
	if len(data) < n+4 {
		return header{}, nil, fmt.Errorf("%w: short header", ErrMalformed)
	}
	h := header{
		tag:        tag,
		digest:     string(data[:n]),
		bits:       int(binary.BigEndian.Uint16(data[n:])),
		secretSize: int(binary.BigEndian.Uint16(data[n+2:])),
	}
	return h, data[n+4:], nil
}

// params resolves the header digest and checks it agrees with B.
func (h header) params() (Params, error) {
	d, err := LookupDigest(h.digest)
	if err != nil {
		return Params{}, err
	}
	if h.bits != 8*d.Size() {
		return Params{}, fmt.Errorf("%w: %d bits does not match %s", ErrMalformed, h.bits, d.Name())
	}
	if h.secretSize == 0 {
		return Params{}, fmt.Errorf("%w: zero secret size", ErrMalformed)
	}
	return Params{Digest: d, Bits: h.bits, SecretSize: h.secretSize}, nil
}

// splitN cuts data into count chunks of size bytes each.
func splitN(data []byte, count, size int) [][]byte {
	out := make([][]byte, count)
	for i := range out {
		out[i] = append([]byte(nil), data[i*size:(i+1)*size]...)
	}
	return out
}

func appendAll(b []byte, parts [][]byte) []byte {
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

// MarshalBinary encodes the verifying key.
func (vk *VerifyingKey) MarshalBinary() ([]byte, error) {
	size := vk.params.Digest.Size()
	h := header{tag: tagVerifyingKey, digest: vk.params.Digest.Name(), bits: vk.params.Bits, secretSize: vk.params.SecretSize}
	b, err := h.append(make([]byte, 0, 8+len(h.digest)+2*vk.params.Bits*size))
	if err != nil {
		return nil, err
	}
	b = appendAll(b, vk.zero)
	return appendAll(b, vk.one), nil
}

// UnmarshalBinary decodes a key produced by MarshalBinary.
func (vk *VerifyingKey) UnmarshalBinary(data []byte) error {
	h, rest, err := readHeader(data, tagVerifyingKey)
	if err != nil {
		return err
	}
	params, err := h.params()
	if err != nil {
		return err
	}
	size := params.Digest.Size()
	if len(rest) != 2*params.Bits*size {
		return fmt.Errorf("%w: verifying key payload is %d bytes", ErrMalformed, len(rest))
	}
	vk.params = params
	vk.zero = splitN(rest, params.Bits, size)
	vk.one = splitN(rest[params.Bits*size:], params.Bits, size)
	return nil
}

// ParseVerifyingKey decodes an encoded verifying key.
func ParseVerifyingKey(data []byte) (*VerifyingKey, error) {
	vk := new(VerifyingKey)
	if err := vk.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return vk, nil
}

// MarshalBinary encodes the signing key, including its spent state.
func (sk *SigningKey) MarshalBinary() ([]byte, error) {
	h := header{tag: tagSigningKey, digest: sk.params.Digest.Name(), bits: sk.params.Bits, secretSize: sk.params.SecretSize}
	b, err := h.append(make([]byte, 0, 9+len(h.digest)+2*sk.params.Bits*sk.params.SecretSize))
	if err != nil {
		return nil, err
	}
	var spent byte
	if sk.Spent() {
		spent = 1
	}
	b = append(b, spent)
	b = appendAll(b, sk.zero)
	return appendAll(b, sk.one), nil
}

// UnmarshalBinary decodes a key produced by MarshalBinary. A key that was
// spent when encoded stays spent.
func (sk *SigningKey) UnmarshalBinary(data []byte) error {
	h, rest, err := readHeader(data, tagSigningKey)
	if err != nil {
		return err
	}
	params, err := h.params()
	if err != nil {
		return err
	}
	if len(rest) != 1+2*params.Bits*params.SecretSize || rest[0] > 1 {
		return fmt.Errorf("%w: signing key payload is %d bytes", ErrMalformed, len(rest))
	}
	sk.params = params
	sk.spent.Store(rest[0] == 1)
	rest = rest[1:]
	sk.zero = splitN(rest, params.Bits, params.SecretSize)
	sk.one = splitN(rest[params.Bits*params.SecretSize:], params.Bits, params.SecretSize)
	return nil
}

// ParseSigningKey decodes an encoded signing key.
func ParseSigningKey(data []byte) (*SigningKey, error) {
	sk := new(SigningKey)
	if err := sk.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return sk, nil
}

// MarshalBinary encodes the signature as tag | B(2) | S(2) | preimages.
// Every preimage must have the same length.
func (sig *Signature) MarshalBinary() ([]byte, error) {
	size := 0
	if len(sig.preimages) > 0 {
		size = len(sig.preimages[0])
	}
	if len(sig.preimages) > math.MaxUint16 || size > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d preimages of %d bytes exceed the encodable range", ErrMalformed, len(sig.preimages), size)
	}
	b := make([]byte, 0, 5+len(sig.preimages)*size)
	b = append(b, tagSignature)
	b = binary.BigEndian.AppendUint16(b, uint16(len(sig.preimages)))
	b = binary.BigEndian.AppendUint16(b, uint16(size))
	for i, p := range sig.preimages {
		if len(p) != size {
			return nil, fmt.Errorf("%w: preimage %d is %d bytes, want %d", ErrMalformed, i, len(p), size)
		}
		b = append(b, p...)
	}
	return b, nil
}

// UnmarshalBinary decodes a signature. The element count is not checked
// against any key; Verify rejects a count that does not match.
func (sig *Signature) UnmarshalBinary(data []byte) error {
	if len(data) < 5 || data[0] != tagSignature {
		return fmt.Errorf("%w: bad signature header", ErrMalformed)
	}
	count := int(binary.BigEndian.Uint16(data[1:]))
	size := int(binary.BigEndian.Uint16(data[3:]))
	rest := data[5:]
	if len(rest) != count*size {
		return fmt.Errorf("%w: signature payload is %d bytes, want %d", ErrMalformed, len(rest), count*size)
	}
	sig.preimages = splitN(rest, count, size)
	return nil
}

// ParseSignature decodes an encoded signature.
func ParseSignature(data []byte) (*Signature, error) {
	sig := new(Signature)
	if err := sig.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return sig, nil
}
