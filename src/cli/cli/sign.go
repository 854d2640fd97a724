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

// go/src/cli/cli/sign.go
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sphinx-core/lamport/src/common"
	lhttp "github.com/sphinx-core/lamport/src/http"
)

func (a *app) signCmd() *cobra.Command {
	var (
		hexMsg bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "sign <id> <message>",
		Short: "Sign a message, spending the key",
		Long: `Sign signs a message with a stored key. The key is spent afterwards and
cannot sign again.

The message is taken literally; "-" reads it from stdin and --hex decodes it
from hex. The signature is printed as hex, or written to --output.

Examples:
  lamport sign 4Lq... "Hello, World!"
  lamport sign 4Lq... - -o hello.sig < hello.txt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd.InOrStdin(), args[1], hexMsg)
			if err != nil {
				return err
			}
			be, err := a.openBackend()
			if err != nil {
				return err
			}
			defer be.Close()

			sig, err := be.Sign(cmd.Context(), args[0], msg)
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, []byte(sig.Signature+"\n"), 0o600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d-element signature to %s\n", sig.Preimages, output)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig.Signature)
			return nil
		},
	}
	cmd.Flags().BoolVar(&hexMsg, "hex", false, "Decode the message from hex")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the signature to a file")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	var hexMsg bool
	cmd := &cobra.Command{
		Use:   "verify <id|verifying-key> <message> <signature|@file>",
		Short: "Verify a signature",
		Long: `Verify checks a signature against a message.

The key is a stored key id, or a hex verifying key (0x...). The signature is
hex, or @path to read it from a file. Exits non-zero when it is invalid.

Examples:
  lamport verify 4Lq... "Hello, World!" @hello.sig`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd.InOrStdin(), args[1], hexMsg)
			if err != nil {
				return err
			}
			sig, err := readSignature(args[2])
			if err != nil {
				return err
			}
			be, err := a.openBackend()
			if err != nil {
				return err
			}
			defer be.Close()

			req := lhttp.VerifyRequest{MessageHex: common.Bytes2Hex(msg), Signature: sig}
			if strings.HasPrefix(args[0], "0x") {
				req.VerifyingKey = args[0]
			} else {
				req.KeyID = args[0]
			}
			valid, err := be.Verify(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !valid {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid")
				return errInvalidSignature
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&hexMsg, "hex", false, "Decode the message from hex")
	return cmd
}

func readMessage(stdin io.Reader, arg string, isHex bool) ([]byte, error) {
	var raw []byte
	if arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read message: %w", err)
		}
		raw = b
	} else {
		raw = []byte(arg)
	}
	if isHex {
		return common.Hex2Bytes(strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

func readSignature(arg string) (string, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return arg, nil
}
