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

// go/src/cli/cli/keys.go
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sphinx-core/lamport/src/common"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
	lhttp "github.com/sphinx-core/lamport/src/http"
)

func (a *app) keygenCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a one-time key pair",
		Long: `Keygen generates a fresh Lamport key pair and stores it.

The digest defaults to the configured one; override it with --digest.

Examples:
  lamport keygen
  lamport keygen --digest sha3-256 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			be, err := a.openBackend()
			if err != nil {
				return err
			}
			defer be.Close()

			key, err := be.Generate(cmd.Context(), a.cfg.Digest)
			if err != nil {
				return err
			}
			return printKey(cmd.OutOrStdout(), key, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the key as JSON")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored keys",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			be, err := a.openBackend()
			if err != nil {
				return err
			}
			defer be.Close()

			keys, err := be.Keys(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, keys)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDIGEST\tSTATE\tCREATED")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.ID, k.Digest, k.State, k.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print keys as JSON")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := a.openBackend()
			if err != nil {
				return err
			}
			defer be.Close()

			key, err := be.Key(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printKey(cmd.OutOrStdout(), key, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the key as JSON")
	return cmd
}

func (a *app) digestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digests",
		Short: "List the available digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			be, err := a.openBackend()
			if err != nil {
				return err
			}
			defer be.Close()

			names, err := be.Digests(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tBITS\tDEFAULT")
			for _, name := range names {
				bits := "?"
				if d, err := lamport.LookupDigest(name); err == nil {
					bits = fmt.Sprint(8 * d.Size())
				}
				def := ""
				if name == a.cfg.Digest {
					def = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, bits, def)
			}
			return tw.Flush()
		},
	}
}

func printKey(w io.Writer, k *lhttp.KeyResponse, asJSON bool) error {
	if asJSON {
		return writeJSON(w, k)
	}
	fmt.Fprintf(w, "id:            %s\n", k.ID)
	fmt.Fprintf(w, "digest:        %s (%d bits)\n", k.Digest, k.Bits)
	fmt.Fprintf(w, "state:         %s\n", k.State)
	fmt.Fprintf(w, "verifying key: %s\n", shortHex(k.VerifyingKey))
	fmt.Fprintf(w, "created:       %s\n", k.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if k.SpentAt != nil {
		fmt.Fprintf(w, "spent:         %s\n", k.SpentAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(w, "message hash:  %s\n", k.MessageHash)
		fmt.Fprintf(w, "signature:     %s\n", shortHex(k.Signature))
	}
	return nil
}

func shortHex(s string) string {
	b, err := common.Hex2Bytes(s)
	if err != nil {
		return s
	}
	return "0x" + common.ShortHex(b, 8)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
