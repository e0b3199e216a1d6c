package domain

import "errors"

// Resolution errors. Callers match them with errors.Is; wrapped errors carry details.
var (
	// ErrDomainNotFound is returned when no naming service holds the domain,
	// or when the matching token has been burned.
	ErrDomainNotFound = errors.New("domain not found")

	// ErrInvalidDomain is returned for names without the .xrp suffix.
	ErrInvalidDomain = errors.New("invalid domain format")

	// ErrInvalidAddress is returned for strings that are not classic XRPL addresses.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNetwork is returned on transport failures and failed metadata downloads.
	ErrNetwork = errors.New("network error")

	// ErrParse is returned when hex, UTF-8 or JSON decoding fails.
	ErrParse = errors.New("parse error")

	// ErrRPC is returned when a ledger or indexer call is answered with a failure.
	ErrRPC = errors.New("xrpl rpc error")

	// ErrMetadata is returned for unsupported URI schemes and exhausted gateways.
	ErrMetadata = errors.New("nft metadata error")

	// ErrUnsupportedService is returned when a naming service has no issuer on the network.
	ErrUnsupportedService = errors.New("unsupported naming service")

	// ErrInternal is returned when an internal invariant is violated.
	ErrInternal = errors.New("internal error")
)
