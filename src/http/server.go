// http/server.go
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sphinx-core/lamport/src/address"
	"github.com/sphinx-core/lamport/src/common"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
	"github.com/sphinx-core/lamport/src/keystore"
	logger "github.com/sphinx-core/lamport/src/log"
)

// Option configures a Server.
type Option func(*Server)

// WithDefaultDigest sets the digest used when a generate request names none.
func WithDefaultDigest(name string) Option { return func(s *Server) { s.defaultDigest = name } }

// WithGatherer serves g on /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// WithWebSocket mounts h on /ws.
func WithWebSocket(h http.Handler) Option { return func(s *Server) { s.ws = h } }

// NewServer creates a new HTTP server over store.
func NewServer(addr string, store *keystore.Store, opts ...Option) *Server {
	s := &Server{
		address:       addr,
		store:         store,
		defaultDigest: lamport.DefaultDigest,
		gatherer:      prometheus.DefaultGatherer,
		log:           logger.Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.router = r
	s.setupRoutes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes defines HTTP endpoints.
func (s *Server) setupRoutes() {
	s.router.POST("/keys", s.handleGenerate)
	s.router.GET("/keys", s.handleListKeys)
	s.router.GET("/keys/:id", s.handleGetKey)
	s.router.POST("/keys/:id/sign", s.handleSign)
	s.router.POST("/verify", s.handleVerify)
	s.router.GET("/digests", s.handleDigests)
	s.router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	if s.ws != nil {
		s.router.GET("/ws", gin.WrapH(s.ws))
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote", c.ClientIP()),
		)
	}
}

// statusFor maps store and primitive errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, keystore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lamport.ErrKeyAlreadySpent):
		return http.StatusConflict
	case errors.Is(err, lamport.ErrUnknownDigest),
		errors.Is(err, lamport.ErrMalformed),
		errors.Is(err, address.ErrInvalid),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// message picks the text or hex form of a message.
func message(text, hexText string) ([]byte, error) {
	if hexText != "" {
		b, err := common.Hex2Bytes(hexText)
		if err != nil {
			return nil, fmt.Errorf("%w: message_hex: %v", errBadRequest, err)
		}
		return b, nil
	}
	return []byte(text), nil
}

// NewKeyResponse renders the public view of e.
func NewKeyResponse(e *keystore.Entry) KeyResponse {
	r := KeyResponse{
		ID:           e.ID,
		Digest:       e.Digest,
		State:        string(e.State),
		VerifyingKey: common.Bytes2Hex(e.VerifyingKey),
		CreatedAt:    e.CreatedAt,
		SpentAt:      e.SpentAt,
	}
	if d, err := lamport.LookupDigest(e.Digest); err == nil {
		r.Bits = 8 * d.Size()
	}
	if len(e.Signature) > 0 {
		r.Signature = common.Bytes2Hex(e.Signature)
		r.MessageHash = common.Bytes2Hex(e.MessageHash)
	}
	return r
}

// handleGenerate creates a key pair.
func (s *Server) handleGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Digest == "" {
		req.Digest = s.defaultDigest
	}
	e, err := s.store.Generate(req.Digest)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewKeyResponse(e))
}

// handleListKeys lists stored keys.
func (s *Server) handleListKeys(c *gin.Context) {
	entries, err := s.store.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]KeyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewKeyResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

// handleGetKey returns one key.
func (s *Server) handleGetKey(c *gin.Context) {
	e, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewKeyResponse(e))
}

// handleSign spends a key on a message.
func (s *Server) handleSign(c *gin.Context) {
	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	msg, err := message(req.Message, req.MessageHex)
	if err != nil {
		s.fail(c, err)
		return
	}
	id := c.Param("id")
	sig, _, err := s.store.Sign(id, msg)
	if err != nil {
		s.fail(c, err)
		return
	}
	sigBytes, err := sig.MarshalBinary()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SignResponse{KeyID: id, Signature: common.Bytes2Hex(sigBytes), Preimages: sig.Len()})
}

// handleVerify checks a signature against a stored or supplied key.
// Undecodable signatures are reported as invalid, like any mismatch.
func (s *Server) handleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	msg, err := message(req.Message, req.MessageHex)
	if err != nil {
		s.fail(c, err)
		return
	}

	var sig *lamport.Signature
	if raw, err := common.Hex2Bytes(req.Signature); err == nil {
		sig, _ = lamport.ParseSignature(raw)
	}

	var valid bool
	switch {
	case req.KeyID != "":
		valid, err = s.store.Verify(req.KeyID, msg, sig)
	case req.VerifyingKey != "":
		var vk *lamport.VerifyingKey
		vk, err = parseVerifyingKey(req.VerifyingKey)
		if err == nil {
			valid = vk.Verify(msg, sig)
		}
	default:
		err = fmt.Errorf("%w: key_id or verifying_key is required", errBadRequest)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, VerifyResponse{Valid: valid})
}

func parseVerifyingKey(s string) (*lamport.VerifyingKey, error) {
	raw, err := common.Hex2Bytes(s)
	if err != nil {
		return nil, fmt.Errorf("%w: verifying_key: %v", errBadRequest, err)
	}
	return lamport.ParseVerifyingKey(raw)
}

// handleDigests lists the registered digests.
func (s *Server) handleDigests(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"digests": lamport.Digests(), "default": s.defaultDigest})
}

// Start runs the HTTP server until Shutdown. Calling Shutdown first makes
// Start return immediately.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.address))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
