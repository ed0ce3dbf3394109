package app

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trufnetwork/credit-attestation/internal/signer"
	"github.com/trufnetwork/credit-attestation/internal/tiers"
)

func newKeygenCmd() *cobra.Command {
	var scheme string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key and print it with its Sui address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := signer.ParseScheme(scheme)
			if err != nil {
				return err
			}
			key, err := signer.GenerateKey(sch)
			if err != nil {
				return err
			}
			defer clear(key)

			s, err := signer.New(sch, key, signer.IntentRaw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scheme:      %s\n", s.Scheme())
			fmt.Fprintf(out, "private key: %s\n", hex.EncodeToString(key))
			fmt.Fprintf(out, "public key:  %s\n", hex.EncodeToString(s.PublicKey()))
			fmt.Fprintf(out, "address:     %s\n", s.Address())
			return nil
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", string(signer.SchemeEd25519), "key scheme (ed25519|secp256k1)")

	return cmd
}

func newTiersCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "Print the credit tier catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := tiers.Load(file)
			if err != nil {
				return err
			}
			table, err := catalog.MarkdownTable()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML tier file (defaults to the built-in catalog)")

	return cmd
}
