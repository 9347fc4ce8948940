package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usherlabs/custody/internal/crypto"
	"github.com/usherlabs/custody/internal/did"
)

func newDIDCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "did",
		Short: "Create and inspect did:key identities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Generate a new DID and print its recovery phrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mnemonic, err := did.NewMnemonic()
			if err != nil {
				return err
			}
			seed, err := did.SeedFromMnemonic(mnemonic)
			if err != nil {
				return err
			}
			defer crypto.ZeroKey(seed)

			d, err := did.FromSeed(seed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "DID:       %s\n", d.ID())
			fmt.Fprintf(out, "Recipient: %s\n", d.Recipient())
			fmt.Fprintf(out, "Mnemonic:  %s\n", mnemonic)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "network",
		Short: "Print the network DID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			d, err := networkDID(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.ID())
			return nil
		},
	})

	return cmd
}
