package domain

// NamingService identifies a .xrp domain naming provider.
type NamingService string

const (
	ServiceXNS        NamingService = "xns"        // xrpns.com
	ServiceXRPDomains NamingService = "xrpdomains" // xrpdomains.xyz
)

// String returns the string representation of NamingService.
func (s NamingService) String() string {
	return string(s)
}

// IsValid checks if the naming service is one of the known providers.
func (s NamingService) IsValid() bool {
	return s == ServiceXNS || s == ServiceXRPDomains
}

// ServiceDescriptor binds a naming service to its issuer account per network.
// A missing Issuers entry means the service is not deployed on that network.
type ServiceDescriptor struct {
	Service    NamingService
	Issuers    map[Network]string
	ProfileURL string // third-party profile API, empty when unsupported
}

// Issuer returns the issuer account of the service on the given network.
func (d ServiceDescriptor) Issuer(n Network) (string, bool) {
	issuer, ok := d.Issuers[n]
	if !ok || issuer == "" {
		return "", false
	}
	return issuer, true
}

// Clone returns a deep copy so callers cannot mutate shared tables.
func (d ServiceDescriptor) Clone() ServiceDescriptor {
	issuers := make(map[Network]string, len(d.Issuers))
	for n, addr := range d.Issuers {
		issuers[n] = addr
	}
	d.Issuers = issuers
	return d
}

// DefaultXNSProfileURL is the XNS profile API queried for address and text records.
const DefaultXNSProfileURL = "https://api.xrpns.com/v1/profile"

// DefaultServices returns the built-in naming service table in priority order.
func DefaultServices() []ServiceDescriptor {
	return []ServiceDescriptor{
		{
			Service: ServiceXNS,
			Issuers: map[Network]string{
				NetworkMainnet: "rYhfynZDrde1uSvvQAYctApg6DnVE5HKm",
			},
			ProfileURL: DefaultXNSProfileURL,
		},
		{
			Service: ServiceXRPDomains,
			Issuers: map[Network]string{
				NetworkMainnet: "r4pM3nT7r7X1k2WMcSw5Sz8ftUu33TEfA4",
			},
		},
	}
}
