package xrpl

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"xns-resolver/internal/domain"
)

// rippleAlphabet is the base58 dictionary used by XRPL address encoding.
var rippleAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

const (
	accountIDVersion = 0x00
	accountIDLen     = 20
	checksumLen      = 4
)

// ValidateAddress checks that addr is a classic XRPL address:
// base58 (ripple alphabet) of version byte, 20-byte account ID and checksum.
func ValidateAddress(addr string) error {
	if len(addr) < 25 || len(addr) > 35 || addr[0] != 'r' {
		return fmt.Errorf("%w: %q is not a classic address", domain.ErrInvalidAddress, addr)
	}

	raw, err := base58.DecodeAlphabet(addr, rippleAlphabet)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", domain.ErrInvalidAddress, addr, err)
	}
	if len(raw) != 1+accountIDLen+checksumLen || raw[0] != accountIDVersion {
		return fmt.Errorf("%w: %q has wrong payload", domain.ErrInvalidAddress, addr)
	}

	payload := raw[:1+accountIDLen]
	if !bytes.Equal(checksum(payload), raw[1+accountIDLen:]) {
		return fmt.Errorf("%w: %q has bad checksum", domain.ErrInvalidAddress, addr)
	}
	return nil
}

// EncodeAccountID returns the classic address of a 20-byte account ID.
func EncodeAccountID(id [accountIDLen]byte) string {
	payload := make([]byte, 0, 1+accountIDLen+checksumLen)
	payload = append(payload, accountIDVersion)
	payload = append(payload, id[:]...)
	payload = append(payload, checksum(payload)...)
	return base58.EncodeAlphabet(payload, rippleAlphabet)
}

// checksum is the first four bytes of double SHA-256.
func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}
