// transport/session.go
package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/sphinx-core/lamport/src/address"
	"github.com/sphinx-core/lamport/src/common"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
	"github.com/sphinx-core/lamport/src/metrics"
)

var (
	errNoKey       = errors.New("no key pair; send generate first")
	errNoSignature = errors.New("nothing signed yet")
)

func errorFrame(err error) Response {
	return Response{Type: TypeError, Error: err.Error()}
}

// handle applies one request to the session and returns the reply.
func (s *session) handle(req Request, m *metrics.Metrics) Response {
	switch req.Type {
	case TypeGenerate:
		return s.generate(req.Digest, m)
	case TypeSetText:
		s.text = req.Text
		return Response{Type: TypeSetText, Text: s.text}
	case TypeSign:
		return s.sign(m)
	case TypeVerify:
		return s.verify(m)
	default:
		return Response{Type: TypeError, Error: fmt.Sprintf("unknown frame type %q", req.Type)}
	}
}

func (s *session) generate(name string, m *metrics.Metrics) Response {
	start := time.Now()
	if name == "" {
		name = s.digest
	}
	d, err := lamport.LookupDigest(name)
	if err != nil {
		return errorFrame(err)
	}
	sk, vk, err := lamport.GenerateKeyPair(nil, d)
	if err != nil {
		return errorFrame(err)
	}
	vkBytes, err := vk.MarshalBinary()
	if err != nil {
		return errorFrame(err)
	}

	s.sk, s.vk = sk, vk
	s.keyID = address.FromBytes(vkBytes)
	s.signature = nil
	if m != nil {
		m.KeysGenerated.WithLabelValues(d.Name()).Inc()
		m.Since("generate", start)
	}
	return Response{
		Type:         TypeGenerate,
		KeyID:        s.keyID,
		Digest:       d.Name(),
		VerifyingKey: common.Bytes2Hex(vkBytes),
	}
}

func (s *session) sign(m *metrics.Metrics) Response {
	start := time.Now()
	if s.sk == nil {
		return errorFrame(errNoKey)
	}
	sig, err := s.sk.Sign([]byte(s.text))
	if err != nil {
		if errors.Is(err, lamport.ErrKeyAlreadySpent) && m != nil {
			m.SpentRejections.Inc()
		}
		return errorFrame(err)
	}
	sigBytes, err := sig.MarshalBinary()
	if err != nil {
		return errorFrame(err)
	}
	s.signature = sig
	if m != nil {
		m.Signatures.WithLabelValues(s.sk.Params().Digest.Name()).Inc()
		m.Since("sign", start)
	}
	return Response{Type: TypeSign, KeyID: s.keyID, Text: s.text, Signature: common.Bytes2Hex(sigBytes)}
}

// verify checks the last signature against the current text, so editing the
// text after signing makes it fail.
func (s *session) verify(m *metrics.Metrics) Response {
	start := time.Now()
	if s.vk == nil {
		return errorFrame(errNoKey)
	}
	if s.signature == nil {
		return errorFrame(errNoSignature)
	}
	valid := s.vk.Verify([]byte(s.text), s.signature)
	if m != nil {
		m.ObserveVerify(valid)
		m.Since("verify", start)
	}
	return Response{Type: TypeVerify, KeyID: s.keyID, Text: s.text, Valid: &valid}
}
