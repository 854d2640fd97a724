package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sphinx-core/lamport/src/common"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
	"github.com/sphinx-core/lamport/src/keystore"
	"github.com/sphinx-core/lamport/src/metrics"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	store := keystore.New(keystore.NewMemory(), keystore.WithMetrics(metrics.NewMetrics(reg)))
	t.Cleanup(func() { store.Close() })
	return NewServer("127.0.0.1:0", store, WithGatherer(reg))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGenerateSignVerify(t *testing.T) {
	h := newTestServer(t).Handler()

	w := doJSON(t, h, http.MethodPost, "/keys", GenerateRequest{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := decode[KeyResponse](t, w)
	assert.Equal(t, lamport.DefaultDigest, key.Digest)
	assert.Equal(t, 256, key.Bits)
	assert.Equal(t, "fresh", key.State)

	w = doJSON(t, h, http.MethodPost, "/keys/"+key.ID+"/sign", SignRequest{Message: "Hello, World!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sig := decode[SignResponse](t, w)
	assert.Equal(t, 256, sig.Preimages)

	t.Run("by id", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/verify", VerifyRequest{KeyID: key.ID, Message: "Hello, World!", Signature: sig.Signature})
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[VerifyResponse](t, w).Valid)
	})
	t.Run("by verifying key", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/verify", VerifyRequest{VerifyingKey: key.VerifyingKey, Message: "Hello, World!", Signature: sig.Signature})
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[VerifyResponse](t, w).Valid)
	})
	t.Run("hex message", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/verify", VerifyRequest{KeyID: key.ID, MessageHex: common.Bytes2Hex([]byte("Hello, World!")), Signature: sig.Signature})
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[VerifyResponse](t, w).Valid)
	})
	t.Run("tampered message", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/verify", VerifyRequest{KeyID: key.ID, Message: "Hello, World?", Signature: sig.Signature})
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[VerifyResponse](t, w).Valid)
	})
	t.Run("garbage signature", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/verify", VerifyRequest{KeyID: key.ID, Message: "Hello, World!", Signature: "0xdeadbeef"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[VerifyResponse](t, w).Valid)
	})

	w = doJSON(t, h, http.MethodGet, "/keys/"+key.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored := decode[KeyResponse](t, w)
	assert.Equal(t, "spent", stored.State)
	assert.Equal(t, sig.Signature, stored.Signature)
	assert.NotNil(t, stored.SpentAt)
}

func TestSignTwiceConflicts(t *testing.T) {
	h := newTestServer(t).Handler()
	key := decode[KeyResponse](t, doJSON(t, h, http.MethodPost, "/keys", GenerateRequest{Digest: lamport.SHA3_256}))

	w := doJSON(t, h, http.MethodPost, "/keys/"+key.ID+"/sign", SignRequest{Message: "first"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodPost, "/keys/"+key.ID+"/sign", SignRequest{Message: "second"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Error, "already")
}

func TestErrorStatuses(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown key", http.MethodGet, "/keys/nope", nil, http.StatusNotFound},
		{"sign unknown key", http.MethodPost, "/keys/nope/sign", SignRequest{Message: "x"}, http.StatusNotFound},
		{"unknown digest", http.MethodPost, "/keys", GenerateRequest{Digest: "md5"}, http.StatusBadRequest},
		{"verify without key", http.MethodPost, "/verify", VerifyRequest{Message: "x", Signature: "0x00"}, http.StatusBadRequest},
		{"verify without signature", http.MethodPost, "/verify", map[string]string{"key_id": "x"}, http.StatusBadRequest},
		{"verify bad key hex", http.MethodPost, "/verify", VerifyRequest{VerifyingKey: "zz", Message: "x", Signature: "0x00"}, http.StatusBadRequest},
		{"verify malformed key", http.MethodPost, "/verify", VerifyRequest{VerifyingKey: "0x0102", Message: "x", Signature: "0x00"}, http.StatusBadRequest},
		{"sign bad message hex", http.MethodPost, "/keys/nope/sign", SignRequest{MessageHex: "xyz"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, w).Error)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(lamport.ErrKeyAlreadySpent))
	assert.Equal(t, http.StatusNotFound, statusFor(keystore.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(lamport.ErrMalformed))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk on fire")))
}

func TestListDigestsHealthMetrics(t *testing.T) {
	h := newTestServer(t).Handler()
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/keys", nil).Code)
	}

	w := doJSON(t, h, http.MethodGet, "/keys", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]KeyResponse](t, w), 3)

	w = doJSON(t, h, http.MethodGet, "/digests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), lamport.RIPEMD160)

	w = doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `lamport_keys_generated_total{digest="sha256"} 3`), w.Body.String())
}

func TestWebSocketRouteMounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := keystore.New(keystore.NewMemory())
	called := false
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	h := NewServer("", store, WithGatherer(reg), WithWebSocket(ws)).Handler()

	doJSON(t, h, http.MethodGet, "/ws", nil)
	assert.True(t, called)

	w := doJSON(t, newTestServer(t).Handler(), http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClient(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()
	c := NewClient(ts.URL)
	ctx := context.Background()

	key, err := c.Generate(ctx, lamport.BLAKE2b256)
	require.NoError(t, err)

	sig, err := c.Sign(ctx, key.ID, []byte("payload"))
	require.NoError(t, err)

	ok, err := c.Verify(ctx, VerifyRequest{KeyID: key.ID, MessageHex: common.Bytes2Hex([]byte("payload")), Signature: sig.Signature})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.Sign(ctx, key.ID, []byte("again"))
	assert.ErrorIs(t, err, lamport.ErrKeyAlreadySpent)

	_, err = c.Key(ctx, "missing")
	assert.ErrorIs(t, err, keystore.ErrNotFound)

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "spent", keys[0].State)

	names, err := c.Digests(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, lamport.SHA256)
}
