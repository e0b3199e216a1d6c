// Package matcher extracts the claimed domain name and expiration from an
// NFT metadata document.
package matcher

import (
	"strconv"
	"strings"
	"time"

	"xns-resolver/internal/domain"
)

// Attribute trait types that may carry the domain name. Among matching
// attributes the first in document order wins.
var domainTraits = map[string]bool{
	"domain": true,
	"name":   true,
}

// Keys that may carry the expiration, checked on attributes then on extra fields.
var expirationKeys = []string{"expiration", "expires_at", "expiry"}

// ExtractDomainName returns the first .xrp name found in doc, checking the
// name field, then domain/name attributes in order, then the extra "domain" field.
// Trait types and the suffix are matched case-sensitively.
func ExtractDomainName(doc *domain.MetadataDocument) (string, bool) {
	if doc == nil {
		return "", false
	}

	if domain.HasDomainSuffix(doc.Name) {
		return doc.Name, true
	}

	for _, attr := range doc.Attributes {
		if !domainTraits[attr.TraitType] {
			continue
		}
		if v, ok := attr.StringValue(); ok && domain.HasDomainSuffix(v) {
			return v, true
		}
	}

	if v, ok := doc.Extra["domain"].(string); ok && domain.HasDomainSuffix(v) {
		return v, true
	}

	return "", false
}

// Matches reports whether doc claims name, compared case-insensitively.
func Matches(doc *domain.MetadataDocument, name string) bool {
	found, ok := ExtractDomainName(doc)
	return ok && strings.EqualFold(found, name)
}

// ExtractExpiration returns the registration expiry recorded in doc.
// Values may be unix seconds (number or numeric string) or RFC 3339 strings.
func ExtractExpiration(doc *domain.MetadataDocument) (*time.Time, bool) {
	if doc == nil {
		return nil, false
	}

	for _, key := range expirationKeys {
		for _, attr := range doc.Attributes {
			if attr.TraitType != key {
				continue
			}
			if t, ok := parseTime(attr.Value); ok {
				return &t, true
			}
		}
	}

	for _, key := range expirationKeys {
		if v, ok := doc.Extra[key]; ok {
			if t, ok := parseTime(v); ok {
				return &t, true
			}
		}
	}

	return nil, false
}

func parseTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case float64:
		if val <= 0 {
			return time.Time{}, false
		}
		return time.Unix(int64(val), 0).UTC(), true
	case string:
		val = strings.TrimSpace(val)
		if secs, err := strconv.ParseInt(val, 10, 64); err == nil {
			if secs <= 0 {
				return time.Time{}, false
			}
			return time.Unix(secs, 0).UTC(), true
		}
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
