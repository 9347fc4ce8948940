// Command usher manages DIDs and custodial wallets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/usherlabs/custody/internal/config"
)

const version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

// load reads the configuration named by --config.
func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "usher",
		Short:         "Wallet-derived DIDs and custodial key envelopes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("USHER_CONFIG"), "Path to usher.yaml config file (optional)")

	cmd.AddCommand(
		newDIDCmd(opts),
		newArweaveCmd(opts),
		newEthereumCmd(opts),
		newConnectCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}
