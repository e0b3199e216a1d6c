package xrpl

import (
	"bytes"
	"encoding/json"
)

// accountNFTsResult is the raw result of account_nfts.
type accountNFTsResult struct {
	Account string          `json:"account"`
	NFTs    []accountNFT    `json:"account_nfts"`
	Marker  json.RawMessage `json:"marker,omitempty"`
}

type accountNFT struct {
	NFTokenID string `json:"NFTokenID"`
	URI       string `json:"URI"`
	Issuer    string `json:"Issuer"`
	Taxon     uint32 `json:"NFTokenTaxon"`
	Serial    uint32 `json:"nft_serial"`
}

// nftsByIssuerResult is the raw result of the Clio nfts_by_issuer method.
type nftsByIssuerResult struct {
	Issuer string          `json:"issuer"`
	NFTs   []issuerNFT     `json:"nfts"`
	Marker json.RawMessage `json:"marker,omitempty"`
}

type issuerNFT struct {
	NFTID    string `json:"nft_id"`
	Owner    string `json:"owner"`
	URI      string `json:"uri"`
	Issuer   string `json:"issuer"`
	Taxon    uint32 `json:"nft_taxon"`
	Serial   uint32 `json:"nft_serial"`
	IsBurned bool   `json:"is_burned"`
}

// nftInfoResult is the raw result of the Clio nft_info method.
type nftInfoResult struct {
	NFTID    string `json:"nft_id"`
	Owner    string `json:"owner"`
	IsBurned bool   `json:"is_burned"`
	URI      string `json:"uri"`
	Issuer   string `json:"issuer"`
}

// ledgerStatus captures the error fields rippled and Clio put inside result.
type ledgerStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// present reports whether a raw JSON value is set and not null.
func present(m json.RawMessage) bool {
	trimmed := bytes.TrimSpace(m)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
