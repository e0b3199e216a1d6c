package domain

import (
	"strings"
	"time"
)

// DomainSuffix is the top-level suffix every resolvable name carries.
const DomainSuffix = ".xrp"

// DomainRecord is the result of a successful resolution.
type DomainRecord struct {
	Domain        string            `json:"domain"`
	Owner         string            `json:"owner"`
	OwnerVerified bool              `json:"owner_verified"` // false when the indexer could not confirm Owner
	NFTID         string            `json:"nft_id"`
	Service       NamingService     `json:"service"`
	Addresses     map[string]string `json:"addresses"`    // chain symbol (lowercase) -> address
	TextRecords   map[string]string `json:"text_records"` // email, twitter, github, website
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Metadata      *MetadataDocument `json:"metadata,omitempty"`
}

// HasDomainSuffix reports whether name ends with the .xrp suffix.
func HasDomainSuffix(name string) bool {
	return strings.HasSuffix(name, DomainSuffix)
}

// NormalizeDomain returns the case-folded form used for cache keys.
func NormalizeDomain(name string) string {
	return strings.ToLower(name)
}

// Clone returns a copy that shares no maps with r. Metadata is shared; it is never mutated after decode.
func (r DomainRecord) Clone() DomainRecord {
	out := r
	out.Addresses = cloneStrings(r.Addresses)
	out.TextRecords = cloneStrings(r.TextRecords)
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
