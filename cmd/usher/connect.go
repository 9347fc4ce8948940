package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usherlabs/custody/internal/arweave"
	"github.com/usherlabs/custody/internal/auth"
	"github.com/usherlabs/custody/internal/config"
	"github.com/usherlabs/custody/internal/ethereum"
)

func newConnectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect wallets and derive their DIDs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "magic",
		Short: "Connect the configured Ethereum signer as a Magic wallet",
		Long: `Derives the DID of the configured Ethereum signer, then loads or creates
its custodial Arweave wallet and connects both identities. A bearer token
is printed for each identity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			signer, closeSigner, err := ethereumSigner(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeSigner()

			opener, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			registry := auth.NewRegistry(auth.Config{
				Store:       opener,
				ArweaveKeys: arweave.Keys{Bits: cfg.Arweave.KeyBits},
			})
			defer registry.Teardown()

			ids, err := registry.ConnectMagic(ctx, signer)
			if err != nil {
				return err
			}

			tokenConfig := &auth.TokenConfig{Issuer: cfg.Token.Issuer, ExpiryHours: cfg.Token.ExpiryHours}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				token, err := auth.GenerateToken(id, tokenConfig)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s (%s)\n", id.Chain, id.Connection)
				fmt.Fprintf(out, "  Address: %s\n", id.Address)
				fmt.Fprintf(out, "  DID:     %s\n", id.DID.ID())
				fmt.Fprintf(out, "  Token:   %s\n", token)
			}
			return nil
		},
	})

	return cmd
}

// ethereumSigner builds the signer named by the config. An RPC endpoint
// takes precedence over a local private key.
func ethereumSigner(ctx context.Context, cfg *config.Config) (auth.EthereumSigner, func(), error) {
	switch {
	case cfg.Ethereum.RPCURL != "":
		s, err := ethereum.DialRPCSigner(ctx, cfg.Ethereum.RPCURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case cfg.Ethereum.PrivateKey != "":
		s, err := ethereum.LocalSignerFromHex(cfg.Ethereum.PrivateKey)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, errors.New("no ethereum signer configured: set ethereum.rpc_url or ethereum.private_key")
	}
}
