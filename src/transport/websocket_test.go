package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sphinx-core/lamport/src/address"
	"github.com/sphinx-core/lamport/src/common"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
	"github.com/sphinx-core/lamport/src/metrics"
)

func TestSessionFlow(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	s := &session{digest: lamport.DefaultDigest}

	resp := s.handle(Request{Type: TypeSign}, m)
	assert.Equal(t, TypeError, resp.Type)

	resp = s.handle(Request{Type: TypeGenerate}, m)
	require.Equal(t, TypeGenerate, resp.Type, resp.Error)
	assert.Equal(t, lamport.SHA256, resp.Digest)

	raw, err := common.Hex2Bytes(resp.VerifyingKey)
	require.NoError(t, err)
	vk, err := lamport.ParseVerifyingKey(raw)
	require.NoError(t, err)
	ok, err := address.Validate(resp.KeyID, vk)
	require.NoError(t, err)
	assert.True(t, ok)

	resp = s.handle(Request{Type: TypeVerify}, m)
	assert.Equal(t, TypeError, resp.Type)

	s.handle(Request{Type: TypeSetText, Text: "Hello, World!"}, m)
	resp = s.handle(Request{Type: TypeSign}, m)
	require.Equal(t, TypeSign, resp.Type, resp.Error)
	assert.NotEmpty(t, resp.Signature)

	resp = s.handle(Request{Type: TypeVerify}, m)
	require.NotNil(t, resp.Valid)
	assert.True(t, *resp.Valid)

	s.handle(Request{Type: TypeSetText, Text: "Hello, World?"}, m)
	resp = s.handle(Request{Type: TypeVerify}, m)
	require.NotNil(t, resp.Valid)
	assert.False(t, *resp.Valid)

	resp = s.handle(Request{Type: TypeSign}, m)
	assert.Equal(t, TypeError, resp.Type)
	assert.Contains(t, resp.Error, "already spent")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpentRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("invalid")))

	// a new key pair makes signing possible again
	resp = s.handle(Request{Type: TypeGenerate, Digest: lamport.RIPEMD160}, m)
	require.Equal(t, TypeGenerate, resp.Type, resp.Error)
	resp = s.handle(Request{Type: TypeSign}, m)
	assert.Equal(t, TypeSign, resp.Type, resp.Error)
}

func TestSessionErrors(t *testing.T) {
	s := &session{digest: lamport.DefaultDigest}
	assert.Equal(t, TypeError, s.handle(Request{Type: "dance"}, nil).Type)
	assert.Equal(t, TypeError, s.handle(Request{Type: TypeGenerate, Digest: "md4"}, nil).Type)
	assert.Nil(t, s.sk)
}

func dial(t *testing.T, srv *WebSocketServer) *Conn {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	c, err := ConnectWebSocket(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestWebSocketSession(t *testing.T) {
	c := dial(t, NewWebSocketServer(WithDigest(lamport.BLAKE2b256)))

	resp, err := c.Do(Request{Type: TypeGenerate})
	require.NoError(t, err)
	require.Equal(t, TypeGenerate, resp.Type, resp.Error)
	assert.Equal(t, lamport.BLAKE2b256, resp.Digest)

	resp, err = c.Do(Request{Type: TypeSetText, Text: "over the wire"})
	require.NoError(t, err)
	assert.Equal(t, "over the wire", resp.Text)

	resp, err = c.Do(Request{Type: TypeSign})
	require.NoError(t, err)
	require.Equal(t, TypeSign, resp.Type, resp.Error)

	resp, err = c.Do(Request{Type: TypeVerify})
	require.NoError(t, err)
	require.NotNil(t, resp.Valid)
	assert.True(t, *resp.Valid)

	resp, err = c.Do(Request{Type: TypeSign})
	require.NoError(t, err)
	assert.Equal(t, TypeError, resp.Type)
}

func TestWebSocketInvalidFrame(t *testing.T) {
	c := dial(t, NewWebSocketServer())

	resp, err := c.send([]byte("{not json"))
	require.NoError(t, err)
	assert.Equal(t, TypeError, resp.Type)
	assert.Contains(t, resp.Error, "invalid frame")

	// the session survives
	resp, err = c.Do(Request{Type: TypeGenerate})
	require.NoError(t, err)
	assert.Equal(t, TypeGenerate, resp.Type)
}

func TestWebSocketSessionsAreIndependent(t *testing.T) {
	srv := NewWebSocketServer()
	ts := httptest.NewServer(srv)
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := ConnectWebSocket(context.Background(), url)
			if !assert.NoError(t, err) {
				return
			}
			defer c.Close()
			resp, err := c.Do(Request{Type: TypeGenerate})
			if assert.NoError(t, err) {
				ids[i] = resp.KeyID
			}
			resp, err = c.Do(Request{Type: TypeSign})
			if assert.NoError(t, err) {
				assert.Equal(t, TypeSign, resp.Type, resp.Error)
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.NotEmpty(t, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestWebSocketIdleSessionKeepsKey(t *testing.T) {
	srv := NewWebSocketServer(WithKeepalive(200 * time.Millisecond))
	c := dial(t, srv)

	gen, err := c.Do(Request{Type: TypeGenerate})
	require.NoError(t, err)
	require.Equal(t, TypeGenerate, gen.Type, gen.Error)

	// several read deadlines pass with no frames from the client
	time.Sleep(time.Second)

	resp, err := c.Do(Request{Type: TypeSetText, Text: "still here"})
	require.NoError(t, err)
	assert.Equal(t, TypeSetText, resp.Type)

	resp, err = c.Do(Request{Type: TypeSign})
	require.NoError(t, err)
	require.Equal(t, TypeSign, resp.Type, resp.Error)
	assert.Equal(t, gen.KeyID, resp.KeyID)
	assert.Equal(t, int64(1), srv.Active())
}

func TestWebSocketUnresponsivePeerIsDropped(t *testing.T) {
	srv := NewWebSocketServer(WithKeepalive(200 * time.Millisecond))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	// a raw connection that never reads, so pings go unanswered
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	assert.Eventually(t, func() bool { return srv.Active() == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return srv.Active() == 0 }, 2*time.Second, 20*time.Millisecond)
}
