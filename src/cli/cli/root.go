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

// go/src/cli/cli/root.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sphinx-core/lamport/src/crypto/lamport"
	"github.com/sphinx-core/lamport/src/keystore"
	logger "github.com/sphinx-core/lamport/src/log"
	spxhash "github.com/sphinx-core/lamport/src/spxhash/hash"
)

func init() {
	lamport.RegisterDigest(spxhash.NewDigest(spxhash.DefaultParams))
}

var errInvalidSignature = errors.New("signature is invalid")

// app carries the state shared by all subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "lamport",
		Short: "Lamport one-time signatures",
		Long: `Lamport generates, stores and uses Lamport one-time signature keys.

Every signing key signs exactly one message. Keys live in a local LevelDB
keystore, or on a running "lamport serve" instance when --remote is set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default ./lamport.yaml)")
	pf.String("datadir", DefaultConfig().DataDir, "Data directory for the keystore")
	pf.String("keystore", KeystoreLevelDB, "Keystore backend: leveldb or memory")
	pf.String("digest", lamport.DefaultDigest, "Digest for new keys")
	pf.String("remote", "", "Address of a lamport server to use instead of the local keystore")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Bool("log-json", false, "Log in JSON")
	for key, name := range map[string]string{
		"datadir":   "datadir",
		"keystore":  "keystore",
		"digest":    "digest",
		"remote":    "remote",
		"log.level": "log-level",
		"log.json":  "log-json",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(name))
	}

	root.AddCommand(
		a.keygenCmd(),
		a.listCmd(),
		a.showCmd(),
		a.signCmd(),
		a.verifyCmd(),
		a.digestsCmd(),
		a.serveCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := loadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	lvl, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{Level: lvl, JSON: cfg.Log.JSON})
	a.cfg = cfg
	return nil
}

// Execute runs the root command.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	_ = logger.Sync()
	return err
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts errors to user-facing messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, lamport.ErrKeyAlreadySpent):
		return "Error: key already spent (a one-time key signs exactly once; generate a new one)"
	case errors.Is(err, keystore.ErrNotFound):
		return fmt.Sprintf("Error: not found: %v", err)
	case errors.Is(err, lamport.ErrUnknownDigest):
		return fmt.Sprintf("Error: %v (run \"lamport digests\")", err)
	case errors.Is(err, lamport.ErrMalformed):
		return fmt.Sprintf("Error: malformed input: %v", err)
	case errors.Is(err, errInvalidSignature):
		return "Error: signature is invalid"
	case errors.Is(err, context.Canceled):
		return "Error: operation canceled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
