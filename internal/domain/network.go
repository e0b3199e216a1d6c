package domain

import (
	"fmt"
	"strings"
)

// Network represents an XRP Ledger environment.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
)

// String returns the string representation of Network.
func (n Network) String() string {
	return string(n)
}

// IsValid checks if the network is a known environment.
func (n Network) IsValid() bool {
	return n == NetworkMainnet || n == NetworkTestnet || n == NetworkDevnet
}

// RPCURL returns the default JSON-RPC endpoint of a public node.
func (n Network) RPCURL() string {
	switch n {
	case NetworkTestnet:
		return "https://s.altnet.rippletest.net:51234"
	case NetworkDevnet:
		return "https://s.devnet.rippletest.net:51234"
	default:
		return "https://s1.ripple.com:51234"
	}
}

// WSURL returns the default WebSocket endpoint of a public node.
func (n Network) WSURL() string {
	switch n {
	case NetworkTestnet:
		return "wss://s.altnet.rippletest.net:51233"
	case NetworkDevnet:
		return "wss://s.devnet.rippletest.net:51233"
	default:
		return "wss://s1.ripple.com"
	}
}

// DefaultIndexerURL is the Clio server answering nft_info and nfts_by_issuer.
const DefaultIndexerURL = "https://clio.xrpl.org"

// ParseNetwork converts a network name into a Network.
func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	if !n.IsValid() {
		return "", fmt.Errorf("unknown network %q", s)
	}
	return n, nil
}
