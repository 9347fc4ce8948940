package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usherlabs/custody/internal/arweave"
	"github.com/usherlabs/custody/internal/chain"
	"github.com/usherlabs/custody/internal/config"
	"github.com/usherlabs/custody/internal/crypto"
	"github.com/usherlabs/custody/internal/custody"
	"github.com/usherlabs/custody/internal/did"
	"github.com/usherlabs/custody/internal/ethereum"
)

// chainWallet describes the sealed wallets of one chain.
type chainWallet struct {
	chain    chain.Chain
	title    string
	keyLabel string
	keys     func(cfg *config.Config) custody.ChainKeys
}

var (
	arweaveWallets = chainWallet{
		chain:    chain.Arweave,
		title:    "Arweave",
		keyLabel: "JWK",
		keys: func(cfg *config.Config) custody.ChainKeys {
			return arweave.Keys{Bits: cfg.Arweave.KeyBits}
		},
	}
	ethereumWallets = chainWallet{
		chain:    chain.Ethereum,
		title:    "Ethereum",
		keyLabel: "Key",
		keys: func(cfg *config.Config) custody.ChainKeys {
			return ethereum.Keys{}
		},
	}
)

func newArweaveCmd(opts *rootOptions) *cobra.Command {
	return newChainCmd(opts, arweaveWallets)
}

func newEthereumCmd(opts *rootOptions) *cobra.Command {
	return newChainCmd(opts, ethereumWallets)
}

func newChainCmd(opts *rootOptions, w chainWallet) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(w.chain),
		Short: w.title + " custodial wallets",
	}

	wallet := &cobra.Command{
		Use:   "wallet",
		Short: "Create and open sealed " + w.title + " wallets",
	}
	wallet.AddCommand(newWalletNewCmd(opts, w), newWalletOpenCmd(opts, w))
	cmd.AddCommand(wallet)
	return cmd
}

func newWalletNewCmd(opts *rootOptions, w chainWallet) *cobra.Command {
	var (
		key        string
		recipients []string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a " + w.title + " wallet sealed to the owner DID and recipients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			owner, err := ownerDID(cfg, key)
			if err != nil {
				return err
			}

			keys := w.keys(cfg)
			kp, err := custody.Generate(cmd.Context(), keys)
			if err != nil {
				return err
			}

			sealed, err := custody.Seal(keys, kp, owner, append([]string{owner.ID()}, recipients...))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Address: %s\n", kp.Address)
			fmt.Fprintf(out, "Data:    %s\n", sealed)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Seed of the owner DID, as hex or a mnemonic (default: network DID)")
	cmd.Flags().StringArrayVar(&recipients, "recipient", nil, "Additional did:key recipient (repeatable)")
	return cmd
}

func newWalletOpenCmd(opts *rootOptions, w chainWallet) *cobra.Command {
	var (
		key    string
		data   string
		reveal bool
	)

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a sealed " + w.title + " wallet and print its address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if data == "" {
				return errors.New("--data is required")
			}
			if data == "-" {
				raw, err := readAll(cmd)
				if err != nil {
					return err
				}
				data = raw
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			opener, err := ownerDID(cfg, key)
			if err != nil {
				return err
			}

			keys := w.keys(cfg)
			kp, err := custody.Open(keys, data, opener)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Address: %s\n", kp.Address)
			if reveal {
				raw, err := keys.Marshal(kp.Key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-8s %s\n", w.keyLabel+":", raw)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Seed of the opening DID, as hex or a mnemonic (default: network DID)")
	cmd.Flags().StringVar(&data, "data", "", "Sealed wallet data, or - to read from stdin")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the private key")
	return cmd
}

// ownerDID returns the DID named by key, or the network DID when key is empty.
func ownerDID(cfg *config.Config, key string) (*did.DID, error) {
	if key != "" {
		return didFromFlag(key)
	}
	return networkDID(cfg)
}

func didFromFlag(value string) (*did.DID, error) {
	seed, err := did.ParseSeed(value)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroKey(seed)
	return did.FromSeed(seed)
}

func readAll(cmd *cobra.Command) (string, error) {
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
