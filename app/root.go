// Package app wires configuration, key material and the HTTP services into
// the credit-attestor command line.
package app

import (
	"github.com/spf13/cobra"

	"github.com/trufnetwork/credit-attestation/cmd/version"
)

// RootCmd creates the credit-attestor root command.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "credit-attestor",
		Short:         "Signs on-chain credit score attestations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newSignerCmd(),
		newIntegrationCmd(),
		newKeygenCmd(),
		newTiersCmd(),
		version.NewVersionCmd(),
	)

	return cmd
}
