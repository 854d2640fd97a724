package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sphinx-core/lamport/src/crypto/lamport"
	lhttp "github.com/sphinx-core/lamport/src/http"
	"github.com/sphinx-core/lamport/src/keystore"
)

type runner struct {
	t    *testing.T
	base []string
}

func newRunner(t *testing.T, extra ...string) *runner {
	t.Helper()
	base := append([]string{"--datadir", t.TempDir(), "--log-level", "error"}, extra...)
	return &runner{t: t, base: base}
}

func (r *runner) run(stdin string, args ...string) (string, error) {
	r.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(append([]string{}, r.base...), args...))
	err := cmd.Execute()
	return out.String(), err
}

func (r *runner) keygen(args ...string) lhttp.KeyResponse {
	r.t.Helper()
	out, err := r.run("", append([]string{"keygen", "--json"}, args...)...)
	require.NoError(r.t, err)
	var key lhttp.KeyResponse
	require.NoError(r.t, json.Unmarshal([]byte(out), &key), out)
	return key
}

func TestKeygenSignVerify(t *testing.T) {
	r := newRunner(t)
	key := r.keygen()
	assert.Equal(t, lamport.DefaultDigest, key.Digest)
	assert.Equal(t, "fresh", key.State)

	out, err := r.run("", "sign", key.ID, "Hello, World!")
	require.NoError(t, err)
	sig := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(sig, "0x"))

	out, err = r.run("", "verify", key.ID, "Hello, World!", sig)
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	out, err = r.run("", "verify", key.VerifyingKey, "Hello, World!", sig)
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	out, err = r.run("", "verify", key.ID, "Hello, World?", sig)
	assert.ErrorIs(t, err, errInvalidSignature)
	assert.Equal(t, "invalid\n", out)

	_, err = r.run("", "verify", key.ID, "Hello, World!", "0xbad0")
	assert.ErrorIs(t, err, errInvalidSignature)

	_, err = r.run("", "sign", key.ID, "Hello again")
	assert.ErrorIs(t, err, lamport.ErrKeyAlreadySpent)

	out, err = r.run("", "show", "--json", key.ID)
	require.NoError(t, err)
	var shown lhttp.KeyResponse
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "spent", shown.State)
	assert.Equal(t, sig, shown.Signature)

	out, err = r.run("", "show", key.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "state:         spent")

	out, err = r.run("", "list")
	require.NoError(t, err)
	assert.Contains(t, out, key.ID)
}

func TestSignatureFileAndStdin(t *testing.T) {
	r := newRunner(t)
	key := r.keygen("--digest", lamport.RIPEMD160)
	assert.Equal(t, 160, key.Bits)

	sigPath := filepath.Join(t.TempDir(), "msg.sig")
	out, err := r.run("payload from stdin", "sign", key.ID, "-", "-o", sigPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = r.run("", "verify", key.ID, "payload from stdin", "@"+sigPath)
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	out, err = r.run("", "verify", "--hex", key.ID, fmt.Sprintf("%x", "payload from stdin"), "@"+sigPath)
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)
}

func TestShowUnknownKey(t *testing.T) {
	r := newRunner(t)
	_, err := r.run("", "show", "missing")
	assert.ErrorIs(t, err, keystore.ErrNotFound)
}

func TestDigestSelection(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		t.Setenv("LAMPORT_DIGEST", lamport.SHA3_256)
		key := newRunner(t).keygen()
		assert.Equal(t, lamport.SHA3_256, key.Digest)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lamport.yaml")
		require.NoError(t, os.WriteFile(path, []byte("digest: blake2b-256\nkeystore: memory\n"), 0o600))
		key := newRunner(t, "--config", path).keygen()
		assert.Equal(t, lamport.BLAKE2b256, key.Digest)
	})

	t.Run("flag beats environment", func(t *testing.T) {
		t.Setenv("LAMPORT_DIGEST", lamport.SHA3_256)
		key := newRunner(t).keygen("--digest", lamport.SHA512_256)
		assert.Equal(t, lamport.SHA512_256, key.Digest)
	})

	t.Run("unknown digest", func(t *testing.T) {
		_, err := newRunner(t).run("", "keygen", "--digest", "crc32")
		assert.ErrorIs(t, err, lamport.ErrUnknownDigest)
	})
}

func TestConfig(t *testing.T) {
	r := newRunner(t, "--keystore", "memory")
	out, err := r.run("", "config")
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, KeystoreMemory, cfg.Keystore)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)

	path := filepath.Join(t.TempDir(), "lamport.yaml")
	_, err = r.run("", "config", "init", path)
	require.NoError(t, err)
	_, err = r.run("", "config", "init", path)
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digest: sha256")

	_, err = newRunner(t, "--keystore", "redis").run("", "list")
	assert.ErrorContains(t, err, "unknown keystore")
}

func TestDigestsCommand(t *testing.T) {
	out, err := newRunner(t).run("", "digests")
	require.NoError(t, err)
	for _, name := range []string{lamport.SHA256, lamport.RIPEMD160, "spx256"} {
		assert.Contains(t, out, name)
	}
	assert.Regexp(t, `ripemd160\s+160`, out)
}

func TestRemote(t *testing.T) {
	store := keystore.New(keystore.NewMemory())
	defer store.Close()
	ts := httptest.NewServer(lhttp.NewServer("", store, lhttp.WithGatherer(prometheus.NewRegistry())).Handler())
	defer ts.Close()

	r := newRunner(t, "--remote", ts.URL)
	key := r.keygen("--digest", lamport.SHAKE256)
	assert.Equal(t, lamport.SHAKE256, key.Digest)

	out, err := r.run("", "sign", key.ID, "remote message")
	require.NoError(t, err)
	sig := strings.TrimSpace(out)

	out, err = r.run("", "verify", key.ID, "remote message", sig)
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	_, err = r.run("", "sign", key.ID, "again")
	assert.ErrorIs(t, err, lamport.ErrKeyAlreadySpent)

	_, err = r.run("", "show", "nope")
	assert.ErrorIs(t, err, keystore.ErrNotFound)

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, keystore.StateSpent, entries[0].State)

	_, err = r.run("", "serve")
	assert.Error(t, err)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	a := &app{cfg: DefaultConfig()}
	a.cfg.Keystore = KeystoreMemory
	a.cfg.HTTP.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.serve(ctx))
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("x: %w", lamport.ErrKeyAlreadySpent), "Error: key already spent"},
		{keystore.ErrNotFound, "Error: not found"},
		{lamport.ErrUnknownDigest, "lamport digests"},
		{lamport.ErrMalformed, "Error: malformed input"},
		{errInvalidSignature, "Error: signature is invalid"},
		{context.Canceled, "Error: operation canceled"},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		assert.Contains(t, formatError(tt.err), tt.want)
	}
}
