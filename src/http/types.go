// http/types.go
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sphinx-core/lamport/src/keystore"
)

// Server handles HTTP requests.
type Server struct {
	address       string
	router        *gin.Engine
	store         *keystore.Store
	defaultDigest string
	gatherer      prometheus.Gatherer
	ws            http.Handler
	srv           *http.Server
	log           *zap.Logger
}

// GenerateRequest asks for a new key pair.
type GenerateRequest struct {
	Digest string `json:"digest,omitempty"`
}

// SignRequest carries the message to sign, as text or as hex.
type SignRequest struct {
	Message    string `json:"message,omitempty"`
	MessageHex string `json:"message_hex,omitempty"`
}

// VerifyRequest names the key by id or carries the encoded verifying key.
type VerifyRequest struct {
	KeyID        string `json:"key_id,omitempty"`
	VerifyingKey string `json:"verifying_key,omitempty"`
	Message      string `json:"message,omitempty"`
	MessageHex   string `json:"message_hex,omitempty"`
	Signature    string `json:"signature" binding:"required"`
}

// KeyResponse is the public view of a stored key.
type KeyResponse struct {
	ID           string     `json:"id"`
	Digest       string     `json:"digest"`
	Bits         int        `json:"bits"`
	State        string     `json:"state"`
	VerifyingKey string     `json:"verifying_key"`
	Signature    string     `json:"signature,omitempty"`
	MessageHash  string     `json:"message_hash,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	SpentAt      *time.Time `json:"spent_at,omitempty"`
}

// SignResponse carries a fresh signature.
type SignResponse struct {
	KeyID     string `json:"key_id"`
	Signature string `json:"signature"`
	Preimages int    `json:"preimages"`
}

// VerifyResponse reports the verification outcome.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
