// transport/types.go
package transport

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sphinx-core/lamport/src/crypto/lamport"
	"github.com/sphinx-core/lamport/src/metrics"
)

// Frame types understood by a session.
const (
	TypeGenerate = "generate"
	TypeSetText  = "set_text"
	TypeSign     = "sign"
	TypeVerify   = "verify"
	TypeError    = "error"
)

// Request is a frame sent by the client.
type Request struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Digest string `json:"digest,omitempty"` // generate only; defaults to the server's digest
}

// Response is a frame sent back for every request.
type Response struct {
	Type         string `json:"type"`
	KeyID        string `json:"key_id,omitempty"`
	Digest       string `json:"digest,omitempty"`
	VerifyingKey string `json:"verifying_key,omitempty"`
	Text         string `json:"text,omitempty"`
	Signature    string `json:"signature,omitempty"`
	Valid        *bool  `json:"valid,omitempty"`
	Error        string `json:"error,omitempty"`
}

// WebSocketServer upgrades connections into interactive signing sessions.
type WebSocketServer struct {
	upgrader websocket.Upgrader
	digest   string
	metrics  *metrics.Metrics
	log      *zap.Logger
	pongWait time.Duration
	active   atomic.Int64
}

// session is the state of one connection: at most one key pair, the current
// text and the last signature produced.
type session struct {
	digest    string
	sk        *lamport.SigningKey
	vk        *lamport.VerifyingKey
	keyID     string
	text      string
	signature *lamport.Signature
}
