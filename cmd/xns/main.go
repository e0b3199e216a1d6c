// Command xns resolves .xrp domains on the XRP Ledger.
//
// Usage:
//
//	xns resolve ckelley.xrp
//	xns reverse rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh
//	xns memo build rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh BTC=bc1q... ETH=0x...
//	xns serve --listen :8080
//
// Settings come from XNS_* environment variables (optionally loaded from
// --env-file); flags override them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
