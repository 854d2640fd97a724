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

// Package address derives short, printable identifiers for Lamport verifying
// keys: base58(prefix || RIPEMD-160(SHA-256(encoded key))).
package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/ripemd160"

	"github.com/sphinx-core/lamport/src/crypto/lamport"
)

const prefixByte = 0x4c // ASCII 'L'

// ErrInvalid reports a string that is not a key identifier.
var ErrInvalid = errors.New("address: invalid key identifier")

func keyHash(encoded []byte) []byte {
	first := sha256.Sum256(encoded)
	h := ripemd160.New()
	h.Write(first[:])
	return h.Sum(nil)
}

// FromBytes returns the identifier of an encoded verifying key.
func FromBytes(encoded []byte) string {
	return base58.Encode(append([]byte{prefixByte}, keyHash(encoded)...))
}

// FromVerifyingKey returns the identifier of vk.
func FromVerifyingKey(vk *lamport.VerifyingKey) (string, error) {
	encoded, err := vk.MarshalBinary()
	if err != nil {
		return "", err
	}
	return FromBytes(encoded), nil
}

// Decode returns the 20-byte key hash carried by id.
func Decode(id string) ([]byte, error) {
	raw := base58.Decode(id)
	if len(raw) != 1+ripemd160.Size {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, id)
	}
	if raw[0] != prefixByte {
		return nil, fmt.Errorf("%w: prefix 0x%02x", ErrInvalid, raw[0])
	}
	return raw[1:], nil
}

// Validate reports whether id names vk.
func Validate(id string, vk *lamport.VerifyingKey) (bool, error) {
	if _, err := Decode(id); err != nil {
		return false, err
	}
	want, err := FromVerifyingKey(vk)
	if err != nil {
		return false, err
	}
	return want == id, nil
}
