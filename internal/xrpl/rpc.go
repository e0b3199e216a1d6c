package xrpl

import (
	"context"
	"encoding/json"

	"xns-resolver/internal/domain"
)

// Transport issues a single ledger API request and decodes its result object.
type Transport interface {
	// Call sends method with one parameter object and unmarshals the result into result.
	Call(ctx context.Context, method string, params map[string]any, result any) error
}

// LedgerClient defines the read-only ledger queries used by the resolver.
type LedgerClient interface {
	// ListTokens returns every NFT held by account, following pagination markers.
	ListTokens(ctx context.Context, account string) ([]domain.TokenRecord, error)

	// ListTokensByIssuer returns NFTs minted by issuer via the indexer.
	// A limit of 0 lists the whole collection.
	ListTokensByIssuer(ctx context.Context, issuer string, limit int) ([]domain.TokenRecord, error)

	// GetTokenOwnership returns the current holder of an NFT.
	// Returns domain.ErrDomainNotFound if the token has been burned.
	GetTokenOwnership(ctx context.Context, tokenID string) (*domain.Ownership, error)

	// GetAccountSummary returns the raw account_info result.
	GetAccountSummary(ctx context.Context, account string) (json.RawMessage, error)
}
