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

// go/src/keystore/store.go
package keystore

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sphinx-core/lamport/src/address"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
	logger "github.com/sphinx-core/lamport/src/log"
	"github.com/sphinx-core/lamport/src/metrics"
)

// Store manages one-time key pairs on top of a Backend. All state changes go
// through a single mutex, so a key is spent exactly once even when many
// callers sign with the same id concurrently.
type Store struct {
	mu      sync.Mutex
	backend Backend
	rand    io.Reader
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRand sets the entropy source for key generation.
func WithRand(r io.Reader) Option { return func(s *Store) { s.rand = r } }

// WithMetrics records operations on m.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

// WithLogger replaces the component logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New returns a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     logger.Named("keystore"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate creates a fresh key pair over the named digest and persists it.
func (s *Store) Generate(digestName string) (*Entry, error) {
	start := s.now()
	d, err := lamport.LookupDigest(digestName)
	if err != nil {
		return nil, err
	}
	sk, vk, err := lamport.GenerateKeyPair(s.rand, d)
	if err != nil {
		return nil, err
	}
	skBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, err
	}
	vkBytes, err := vk.MarshalBinary()
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:           address.FromBytes(vkBytes),
		Digest:       d.Name(),
		State:        StateFresh,
		VerifyingKey: vkBytes,
		SigningKey:   skBytes,
		CreatedAt:    s.now().UTC(),
	}

	s.mu.Lock()
	err = s.backend.Put(e)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.KeysGenerated.WithLabelValues(d.Name()).Inc()
		s.metrics.Since("generate", start)
	}
	s.log.Info("key generated", zap.String("key_id", e.ID), zap.String("digest", e.Digest))
	return e.Public(), nil
}

// Get returns the public view of the entry for id.
func (s *Store) Get(id string) (*Entry, error) {
	e, err := s.backend.Get(id)
	if err != nil {
		return nil, err
	}
	return e.Public(), nil
}

// List returns the public view of every entry.
func (s *Store) List() ([]*Entry, error) {
	entries, err := s.backend.List()
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		entries[i] = e.Public()
	}
	return entries, nil
}

// VerifyingKey decodes the verifying key stored for id.
func (s *Store) VerifyingKey(id string) (*lamport.VerifyingKey, error) {
	e, err := s.backend.Get(id)
	if err != nil {
		return nil, err
	}
	return lamport.ParseVerifyingKey(e.VerifyingKey)
}

// Sign signs message with the key stored under id. The entry is written back
// as spent, with its secret preimages erased, before the signature is
// returned; if that write fails no signature is returned. Signing a spent key
// fails with lamport.ErrKeyAlreadySpent.
func (s *Store) Sign(id string, message []byte) (*lamport.Signature, *Entry, error) {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.backend.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if e.State == StateSpent || len(e.SigningKey) == 0 {
		if s.metrics != nil {
			s.metrics.SpentRejections.Inc()
		}
		s.log.Warn("sign refused, key already spent", zap.String("key_id", id))
		return nil, nil, fmt.Errorf("%w: %s", lamport.ErrKeyAlreadySpent, id)
	}

	sk, err := lamport.ParseSigningKey(e.SigningKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode signing key %s: %w", id, err)
	}
	sig, err := sk.Sign(message)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, id)
	}
	sigBytes, err := sig.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}

	spentAt := s.now().UTC()
	e.State = StateSpent
	e.SigningKey = nil
	e.Signature = sigBytes
	e.MessageHash = sk.Params().Digest.Sum(message)
	e.SpentAt = &spentAt
	if err := s.backend.Put(e); err != nil {
		return nil, nil, fmt.Errorf("failed to record spent key %s: %w", id, err)
	}

	if s.metrics != nil {
		s.metrics.Signatures.WithLabelValues(e.Digest).Inc()
		s.metrics.Since("sign", start)
	}
	s.log.Info("message signed", zap.String("key_id", id), zap.Int("preimages", sig.Len()))
	return sig, e.Public(), nil
}

// Verify checks sig against message under the key stored for id. The error is
// non-nil only when the key cannot be loaded; an invalid signature is false.
func (s *Store) Verify(id string, message []byte, sig *lamport.Signature) (bool, error) {
	start := s.now()
	vk, err := s.VerifyingKey(id)
	if err != nil {
		return false, err
	}
	valid := vk.Verify(message, sig)
	if s.metrics != nil {
		s.metrics.ObserveVerify(valid)
		s.metrics.Since("verify", start)
	}
	s.log.Debug("signature verified", zap.String("key_id", id), zap.Bool("valid", valid))
	return valid, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
