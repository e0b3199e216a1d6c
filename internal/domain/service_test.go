package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceDescriptor_Issuer(t *testing.T) {
	services := DefaultServices()
	require.Len(t, services, 2)
	assert.Equal(t, ServiceXNS, services[0].Service, "XNS has priority")

	issuer, ok := services[0].Issuer(NetworkMainnet)
	assert.True(t, ok)
	assert.Equal(t, "rYhfynZDrde1uSvvQAYctApg6DnVE5HKm", issuer)

	_, ok = services[0].Issuer(NetworkTestnet)
	assert.False(t, ok, "XNS has no testnet issuer")
}

func TestServiceDescriptor_CloneIsIndependent(t *testing.T) {
	orig := DefaultServices()[0]
	clone := orig.Clone()
	clone.Issuers[NetworkMainnet] = "rChanged"

	issuer, _ := orig.Issuer(NetworkMainnet)
	assert.Equal(t, "rYhfynZDrde1uSvvQAYctApg6DnVE5HKm", issuer)
}

func TestParseNetwork(t *testing.T) {
	n, err := ParseNetwork(" Testnet ")
	require.NoError(t, err)
	assert.Equal(t, NetworkTestnet, n)
	assert.Equal(t, "https://s.altnet.rippletest.net:51234", n.RPCURL())

	_, err = ParseNetwork("localnet")
	assert.Error(t, err)

	assert.Equal(t, "https://s1.ripple.com:51234", NetworkMainnet.RPCURL())
}

func TestDomainHelpers(t *testing.T) {
	assert.True(t, HasDomainSuffix("ckelley.xrp"))
	assert.False(t, HasDomainSuffix("ckelley.XRP"))
	assert.False(t, HasDomainSuffix("ckelley.com"))
	assert.Equal(t, "ckelley.xrp", NormalizeDomain("CKelley.XRP"))
}
