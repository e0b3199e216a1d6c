package main

import (
	"github.com/spf13/cobra"
)

// globalFlags override the environment configuration.
type globalFlags struct {
	envFile    string
	network    string
	rpcURL     string
	wsURL      string
	indexerURL string
	transport  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "xns",
		Short: "Resolve .xrp domains stored as NFTs on the XRP Ledger",
		Long: `xns resolves .xrp domain names to the account holding the domain NFT,
and lists the domains an account holds.

Naming services are searched in order (XNS, then XRPDomains). Metadata behind
ipfs:// URIs is fetched through public gateways with fallback.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", "", "load environment variables from this .env file")
	pf.StringVar(&flags.network, "network", "", "ledger network: mainnet, testnet or devnet (XNS_NETWORK)")
	pf.StringVar(&flags.rpcURL, "rpc-url", "", "JSON-RPC node URL (XNS_RPC_URL)")
	pf.StringVar(&flags.wsURL, "ws-url", "", "WebSocket node URL (XNS_WS_URL)")
	pf.StringVar(&flags.indexerURL, "indexer-url", "", "Clio indexer URL (XNS_INDEXER_URL)")
	pf.StringVar(&flags.transport, "transport", "", "node transport: http or ws (XNS_TRANSPORT)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (LOG_LEVEL)")

	root.AddCommand(
		newResolveCmd(flags),
		newReverseCmd(flags),
		newMemoCmd(flags),
		newServeCmd(flags),
	)
	return root
}
