package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"xns-resolver/internal/domain"
)

// AccountNFTsPageLimit is the page size requested from account_nfts.
const AccountNFTsPageLimit = 400

// maxPages bounds pagination against a server that never drops the marker.
const maxPages = 10000

// Client implements LedgerClient on top of a ledger node and a Clio indexer.
type Client struct {
	node    Transport
	indexer Transport
	logger  zerolog.Logger
}

// NewClient creates a ledger client. node serves account_nfts and account_info;
// indexer serves nft_info and nfts_by_issuer.
func NewClient(node, indexer Transport, logger zerolog.Logger) *Client {
	return &Client{
		node:    node,
		indexer: indexer,
		logger:  logger,
	}
}

// ListTokens retrieves all NFTs held by account, page by page.
func (c *Client) ListTokens(ctx context.Context, account string) ([]domain.TokenRecord, error) {
	var tokens []domain.TokenRecord
	var marker json.RawMessage

	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("%w: account_nfts for %s exceeded %d pages", domain.ErrRPC, account, maxPages)
		}

		params := map[string]any{
			"account":      account,
			"limit":        AccountNFTsPageLimit,
			"ledger_index": "validated",
		}
		if present(marker) {
			params["marker"] = marker
		}

		c.logger.Debug().Str("account", account).Int("page", page).Msg("querying account_nfts")

		var result accountNFTsResult
		if err := c.node.Call(ctx, "account_nfts", params, &result); err != nil {
			return nil, err
		}

		for _, nft := range result.NFTs {
			tokens = append(tokens, domain.TokenRecord{
				ID:     nft.NFTokenID,
				URI:    nft.URI,
				Issuer: nft.Issuer,
				Owner:  account,
				Taxon:  nft.Taxon,
				Serial: nft.Serial,
			})
		}

		if !present(result.Marker) {
			break
		}
		if bytes.Equal(result.Marker, marker) {
			return nil, fmt.Errorf("%w: account_nfts marker did not advance", domain.ErrRPC)
		}
		marker = result.Marker
	}

	return tokens, nil
}

// ListTokensByIssuer retrieves NFTs minted by issuer from the indexer.
// Burned tokens are skipped. Pages are followed until the marker disappears
// or limit tokens are collected.
func (c *Client) ListTokensByIssuer(ctx context.Context, issuer string, limit int) ([]domain.TokenRecord, error) {
	var tokens []domain.TokenRecord
	var marker json.RawMessage

	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("%w: nfts_by_issuer for %s exceeded %d pages", domain.ErrRPC, issuer, maxPages)
		}

		params := map[string]any{
			"issuer":       issuer,
			"ledger_index": "validated",
		}
		if limit > 0 {
			params["limit"] = limit - len(tokens)
		}
		if present(marker) {
			params["marker"] = marker
		}

		c.logger.Debug().Str("issuer", issuer).Int("page", page).Msg("querying nfts_by_issuer")

		var result nftsByIssuerResult
		if err := c.indexer.Call(ctx, "nfts_by_issuer", params, &result); err != nil {
			return nil, err
		}

		for _, nft := range result.NFTs {
			if nft.IsBurned {
				continue
			}
			tokens = append(tokens, domain.TokenRecord{
				ID:     nft.NFTID,
				URI:    nft.URI,
				Issuer: nft.Issuer,
				Owner:  nft.Owner,
				Taxon:  nft.Taxon,
				Serial: nft.Serial,
			})
		}

		if limit > 0 && len(tokens) >= limit {
			return tokens[:limit], nil
		}
		if !present(result.Marker) {
			break
		}
		if bytes.Equal(result.Marker, marker) {
			return nil, fmt.Errorf("%w: nfts_by_issuer marker did not advance", domain.ErrRPC)
		}
		marker = result.Marker
	}

	return tokens, nil
}

// GetTokenOwnership retrieves the current holder of an NFT from the indexer.
func (c *Client) GetTokenOwnership(ctx context.Context, tokenID string) (*domain.Ownership, error) {
	c.logger.Debug().Str("nft_id", tokenID).Msg("querying nft_info")

	var result nftInfoResult
	if err := c.indexer.Call(ctx, "nft_info", map[string]any{"nft_id": tokenID}, &result); err != nil {
		return nil, err
	}

	if result.IsBurned {
		return nil, fmt.Errorf("%w: token %s is burned", domain.ErrDomainNotFound, tokenID)
	}
	if result.Owner == "" {
		return nil, fmt.Errorf("%w: nft_info for %s has no owner", domain.ErrParse, tokenID)
	}

	return &domain.Ownership{
		TokenID: tokenID,
		Owner:   result.Owner,
	}, nil
}

// GetAccountSummary retrieves account_info for account as raw JSON.
func (c *Client) GetAccountSummary(ctx context.Context, account string) (json.RawMessage, error) {
	params := map[string]any{
		"account":      account,
		"ledger_index": "validated",
	}

	var result json.RawMessage
	if err := c.node.Call(ctx, "account_info", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

var _ LedgerClient = (*Client)(nil)
