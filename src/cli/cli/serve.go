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

// go/src/cli/cli/serve.go
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	lhttp "github.com/sphinx-core/lamport/src/http"
	"github.com/sphinx-core/lamport/src/keystore"
	logger "github.com/sphinx-core/lamport/src/log"
	"github.com/sphinx-core/lamport/src/metrics"
	"github.com/sphinx-core/lamport/src/transport"
)

const shutdownTimeout = 5 * time.Second

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Long: `Serve exposes the keystore over HTTP (JSON) and WebSocket sessions, with
Prometheus metrics on /metrics.

Examples:
  lamport serve --http-addr 0.0.0.0:8545`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("http-addr", DefaultHTTPAddr, "Listen address")
	_ = a.v.BindPFlag("http.addr", cmd.Flags().Lookup("http-addr"))
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if a.cfg.Remote != "" {
		return errors.New("serve runs the local keystore; drop --remote")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	store, err := a.openStore(keystore.WithMetrics(m))
	if err != nil {
		return err
	}
	defer store.Close()

	ws := transport.NewWebSocketServer(transport.WithDigest(a.cfg.Digest), transport.WithMetrics(m))
	srv := lhttp.NewServer(a.cfg.HTTP.Addr, store,
		lhttp.WithDefaultDigest(a.cfg.Digest),
		lhttp.WithGatherer(reg),
		lhttp.WithWebSocket(ws),
	)

	ctx, cancel := signalContext(parent)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof("Shutting down HTTP server on %s", a.cfg.HTTP.Addr)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
