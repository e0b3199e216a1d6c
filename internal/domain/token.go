package domain

// TokenRecord represents an NFT as listed by the ledger or the indexer.
type TokenRecord struct {
	ID     string // NFTokenID
	URI    string // hex-encoded metadata pointer (empty if absent)
	Issuer string // minting account (empty if not reported)
	Owner  string // holder as reported by the listing source (empty if unknown)
	Taxon  uint32
	Serial uint32
}

// HasURI reports whether the token carries a metadata pointer.
func (t TokenRecord) HasURI() bool {
	return t.URI != ""
}

// Ownership is the current holder of an NFT according to the indexer.
type Ownership struct {
	TokenID  string
	Owner    string
	IsBurned bool
}
