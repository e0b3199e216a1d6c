package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/xrpl"
)

// ErrNotFound is returned when a token or account is not in the stub store.
var ErrNotFound = errors.New("not found")

// Ledger implements xrpl.LedgerClient for testing. Every method counts its calls.
type Ledger struct {
	mu sync.Mutex

	AccountTokens map[string][]domain.TokenRecord // by holder account
	IssuerTokens  map[string][]domain.TokenRecord // by issuer, served by the indexer path
	Owners        map[string]domain.Ownership     // by token ID
	Accounts      map[string]json.RawMessage

	// Errors injected per method, returned before any lookup.
	ListTokensErr         error
	ListTokensByIssuerErr error
	OwnershipErr          error

	calls map[string]int
}

// NewLedger creates a new stub ledger.
func NewLedger() *Ledger {
	return &Ledger{
		AccountTokens: make(map[string][]domain.TokenRecord),
		IssuerTokens:  make(map[string][]domain.TokenRecord),
		Owners:        make(map[string]domain.Ownership),
		Accounts:      make(map[string]json.RawMessage),
		calls:         make(map[string]int),
	}
}

// ListTokens returns the tokens stored for account.
func (l *Ledger) ListTokens(_ context.Context, account string) ([]domain.TokenRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls["account_nfts"]++

	if l.ListTokensErr != nil {
		return nil, l.ListTokensErr
	}
	return append([]domain.TokenRecord(nil), l.AccountTokens[account]...), nil
}

// ListTokensByIssuer returns the tokens stored for issuer, truncated to limit.
func (l *Ledger) ListTokensByIssuer(_ context.Context, issuer string, limit int) ([]domain.TokenRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls["nfts_by_issuer"]++

	if l.ListTokensByIssuerErr != nil {
		return nil, l.ListTokensByIssuerErr
	}
	tokens, ok := l.IssuerTokens[issuer]
	if !ok {
		return nil, fmt.Errorf("%w: issuer %s", domain.ErrRPC, issuer)
	}
	if limit > 0 && limit < len(tokens) {
		tokens = tokens[:limit]
	}
	return append([]domain.TokenRecord(nil), tokens...), nil
}

// GetTokenOwnership returns the stored ownership, failing for burned tokens.
func (l *Ledger) GetTokenOwnership(_ context.Context, tokenID string) (*domain.Ownership, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls["nft_info"]++

	if l.OwnershipErr != nil {
		return nil, l.OwnershipErr
	}
	own, ok := l.Owners[tokenID]
	if !ok {
		return nil, fmt.Errorf("%w: nft %s", ErrNotFound, tokenID)
	}
	if own.IsBurned {
		return nil, fmt.Errorf("%w: token %s is burned", domain.ErrDomainNotFound, tokenID)
	}
	own.TokenID = tokenID
	return &own, nil
}

// GetAccountSummary returns the stored account_info result.
func (l *Ledger) GetAccountSummary(_ context.Context, account string) (json.RawMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls["account_info"]++

	info, ok := l.Accounts[account]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, account)
	}
	return info, nil
}

// AddIssuerTokens registers tokens under issuer.
func (l *Ledger) AddIssuerTokens(issuer string, tokens ...domain.TokenRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.IssuerTokens[issuer] = append(l.IssuerTokens[issuer], tokens...)
}

// AddAccountTokens registers tokens held by account.
func (l *Ledger) AddAccountTokens(account string, tokens ...domain.TokenRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.AccountTokens[account] = append(l.AccountTokens[account], tokens...)
}

// SetOwner records the current holder of a token.
func (l *Ledger) SetOwner(tokenID, owner string, burned bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Owners[tokenID] = domain.Ownership{TokenID: tokenID, Owner: owner, IsBurned: burned}
}

// Calls returns how many times method was invoked (account_nfts, nfts_by_issuer, nft_info, account_info).
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, n := range l.calls {
		total += n
	}
	return total
}

var _ xrpl.LedgerClient = (*Ledger)(nil)
