// Package memo encodes address bindings into XRPL transaction memos.
//
// A holder publishes {"BTC":"bc1...","ETH":"0x..."} as the memo of a 1-drop
// payment to itself. Building the unsigned transaction and decoding memos is
// supported; signing and submitting are left to the holder's wallet.
package memo

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/xrpl"
)

// AddressesMemoType marks memos carrying address bindings.
const AddressesMemoType = "XNS_ADDRESSES"

// StorageAmount is the payment amount in drops.
const StorageAmount = "1"

// Transaction is an unsigned self-payment carrying address memos.
type Transaction struct {
	TransactionType string        `json:"TransactionType"`
	Account         string        `json:"Account"`
	Destination     string        `json:"Destination"`
	Amount          string        `json:"Amount"`
	Memos           []MemoWrapper `json:"Memos"`
}

// MemoWrapper is the ledger's {"Memo": {...}} envelope.
type MemoWrapper struct {
	Memo Memo `json:"Memo"`
}

// Memo holds hex-encoded type and data fields.
type Memo struct {
	MemoType string `json:"MemoType"`
	MemoData string `json:"MemoData"`
}

// NewStorageTransaction builds the transaction publishing addresses for account.
func NewStorageTransaction(account string, addresses map[string]string) (*Transaction, error) {
	if err := xrpl.ValidateAddress(account); err != nil {
		return nil, err
	}
	data, err := json.Marshal(addresses)
	if err != nil {
		return nil, fmt.Errorf("%w: encode addresses: %w", domain.ErrParse, err)
	}

	return &Transaction{
		TransactionType: "Payment",
		Account:         account,
		Destination:     account,
		Amount:          StorageAmount,
		Memos: []MemoWrapper{{Memo: Memo{
			MemoType: encodeHex([]byte(AddressesMemoType)),
			MemoData: encodeHex(data),
		}}},
	}, nil
}

// BuildStorageTransaction returns the indented JSON of the unsigned storage transaction.
func BuildStorageTransaction(account string, addresses map[string]string) (string, error) {
	tx, err := NewStorageTransaction(account, addresses)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode transaction: %w", domain.ErrInternal, err)
	}
	return string(out), nil
}

// DecodeMemo hex-decodes a memo field into text.
func DecodeMemo(memoHex string) (string, error) {
	raw, err := hex.DecodeString(memoHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex memo: %w", domain.ErrParse, err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: invalid UTF-8 in memo", domain.ErrParse)
	}
	return string(raw), nil
}

// ParseAddresses decodes the JSON object of a decoded address memo.
func ParseAddresses(memoData string) (map[string]string, error) {
	var addresses map[string]string
	if err := json.Unmarshal([]byte(memoData), &addresses); err != nil {
		return nil, fmt.Errorf("%w: invalid address JSON: %w", domain.ErrParse, err)
	}
	if addresses == nil {
		addresses = map[string]string{}
	}
	return addresses, nil
}

// AddressesFromMemo decodes m when it is an address memo.
func AddressesFromMemo(m Memo) (map[string]string, bool, error) {
	memoType, err := DecodeMemo(m.MemoType)
	if err != nil || memoType != AddressesMemoType {
		return nil, false, nil
	}
	data, err := DecodeMemo(m.MemoData)
	if err != nil {
		return nil, true, err
	}
	addresses, err := ParseAddresses(data)
	return addresses, true, err
}

func encodeHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// Store retrieves published address bindings.
type Store struct {
	ledger xrpl.LedgerClient
	logger zerolog.Logger
}

// NewStore creates a Store backed by ledger.
func NewStore(ledger xrpl.LedgerClient, logger zerolog.Logger) *Store {
	return &Store{ledger: ledger, logger: logger}
}

// GetAddresses returns the latest bindings published by account.
// Only the account is checked on the ledger; the memo history is not scanned
// yet, so the result is always empty.
func (s *Store) GetAddresses(ctx context.Context, account string) (map[string]string, error) {
	if err := xrpl.ValidateAddress(account); err != nil {
		return nil, err
	}
	if _, err := s.ledger.GetAccountSummary(ctx, account); err != nil {
		return nil, fmt.Errorf("account_info %s: %w", account, err)
	}

	s.logger.Warn().Str("account", account).Msg("memo address history is not scanned, returning no addresses")
	return map[string]string{}, nil
}
