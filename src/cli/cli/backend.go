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

// go/src/cli/cli/backend.go
package cli

import (
	"context"
	"fmt"

	"github.com/sphinx-core/lamport/src/common"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
	lhttp "github.com/sphinx-core/lamport/src/http"
	"github.com/sphinx-core/lamport/src/keystore"
)

// backend is what the key commands run against: the local keystore or a
// remote server.
type backend interface {
	Generate(ctx context.Context, digest string) (*lhttp.KeyResponse, error)
	Keys(ctx context.Context) ([]lhttp.KeyResponse, error)
	Key(ctx context.Context, id string) (*lhttp.KeyResponse, error)
	Sign(ctx context.Context, id string, message []byte) (*lhttp.SignResponse, error)
	Verify(ctx context.Context, req lhttp.VerifyRequest) (bool, error)
	Digests(ctx context.Context) ([]string, error)
	Close() error
}

type remoteBackend struct {
	*lhttp.Client
}

func (remoteBackend) Close() error { return nil }

type localBackend struct {
	store *keystore.Store
}

// openBackend returns the backend selected by the configuration.
func (a *app) openBackend() (backend, error) {
	if a.cfg.Remote != "" {
		return remoteBackend{lhttp.NewClient(a.cfg.Remote)}, nil
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return localBackend{store: store}, nil
}

func (a *app) openStore(opts ...keystore.Option) (*keystore.Store, error) {
	var be keystore.Backend
	switch a.cfg.Keystore {
	case KeystoreMemory:
		be = keystore.NewMemory()
	default:
		db, err := keystore.OpenLevelDB(common.GetLevelDBPath(a.cfg.DataDir))
		if err != nil {
			return nil, err
		}
		be = db
	}
	return keystore.New(be, opts...), nil
}

func (l localBackend) Generate(_ context.Context, digest string) (*lhttp.KeyResponse, error) {
	e, err := l.store.Generate(digest)
	if err != nil {
		return nil, err
	}
	r := lhttp.NewKeyResponse(e)
	return &r, nil
}

func (l localBackend) Keys(context.Context) ([]lhttp.KeyResponse, error) {
	entries, err := l.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]lhttp.KeyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, lhttp.NewKeyResponse(e))
	}
	return out, nil
}

func (l localBackend) Key(_ context.Context, id string) (*lhttp.KeyResponse, error) {
	e, err := l.store.Get(id)
	if err != nil {
		return nil, err
	}
	r := lhttp.NewKeyResponse(e)
	return &r, nil
}

func (l localBackend) Sign(_ context.Context, id string, message []byte) (*lhttp.SignResponse, error) {
	sig, _, err := l.store.Sign(id, message)
	if err != nil {
		return nil, err
	}
	raw, err := sig.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &lhttp.SignResponse{KeyID: id, Signature: common.Bytes2Hex(raw), Preimages: sig.Len()}, nil
}

// Verify mirrors POST /verify: a signature that does not decode is invalid,
// not an error.
func (l localBackend) Verify(_ context.Context, req lhttp.VerifyRequest) (bool, error) {
	msg, err := common.Hex2Bytes(req.MessageHex)
	if err != nil {
		return false, fmt.Errorf("message: %w", err)
	}
	var sig *lamport.Signature
	if raw, err := common.Hex2Bytes(req.Signature); err == nil {
		sig, _ = lamport.ParseSignature(raw)
	}

	if req.KeyID != "" {
		return l.store.Verify(req.KeyID, msg, sig)
	}

	raw, err := common.Hex2Bytes(req.VerifyingKey)
	if err != nil {
		return false, fmt.Errorf("verifying key: %w", err)
	}
	vk, err := lamport.ParseVerifyingKey(raw)
	if err != nil {
		return false, err
	}
	return vk.Verify(msg, sig), nil
}

func (localBackend) Digests(context.Context) ([]string, error) {
	return lamport.Digests(), nil
}

func (l localBackend) Close() error {
	return l.store.Close()
}
