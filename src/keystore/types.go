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

// go/src/keystore/types.go
package keystore

import (
	"errors"
	"time"
)

// ErrNotFound is returned for an unknown key id.
var ErrNotFound = errors.New("keystore: key not found")

// State is the lifecycle state of a stored signing key.
type State string

const (
	StateFresh State = "fresh" // never signed
	StateSpent State = "spent" // signed once, secret material erased
)

// Entry is the stored record of one key pair.
type Entry struct {
	ID           string     `json:"id"`
	Digest       string     `json:"digest"`
	State        State      `json:"state"`
	VerifyingKey []byte     `json:"verifying_key"`
	SigningKey   []byte     `json:"signing_key,omitempty"`
	Signature    []byte     `json:"signature,omitempty"`
	MessageHash  []byte     `json:"message_hash,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	SpentAt      *time.Time `json:"spent_at,omitempty"`
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	c := *e
	c.VerifyingKey = append([]byte(nil), e.VerifyingKey...)
	c.SigningKey = append([]byte(nil), e.SigningKey...)
	c.Signature = append([]byte(nil), e.Signature...)
	c.MessageHash = append([]byte(nil), e.MessageHash...)
	if e.SpentAt != nil {
		t := *e.SpentAt
		c.SpentAt = &t
	}
	return &c
}

// Public returns a copy of e without the signing key.
func (e *Entry) Public() *Entry {
	c := e.Clone()
	c.SigningKey = nil
	return c
}

// Backend persists entries. Implementations must be safe for concurrent use;
// the Store serializes state transitions on top of them.
type Backend interface {
	Put(e *Entry) error
	Get(id string) (*Entry, error)
	List() ([]*Entry, error)
	Close() error
}
