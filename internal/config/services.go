package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/xrpl"
)

// servicesFile is the YAML layout of a naming-service table:
//
//	services:
//	  - service: xns
//	    profile_url: https://api.xrpns.com/v1/profile
//	    issuers:
//	      mainnet: rYhfynZDrde1uSvvQAYctApg6DnVE5HKm
type servicesFile struct {
	Services []serviceEntry `yaml:"services"`
}

type serviceEntry struct {
	Service    string            `yaml:"service"`
	ProfileURL string            `yaml:"profile_url"`
	Issuers    map[string]string `yaml:"issuers"`
}

// ParseServices decodes a naming-service table. Order in the file is resolution order.
func ParseServices(data []byte) ([]domain.ServiceDescriptor, error) {
	var file servicesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, errors.New("no services defined")
	}

	seen := make(map[domain.NamingService]bool, len(file.Services))
	out := make([]domain.ServiceDescriptor, 0, len(file.Services))
	for i, entry := range file.Services {
		svc := domain.NamingService(entry.Service)
		if !svc.IsValid() {
			return nil, fmt.Errorf("services[%d]: %w: %q", i, domain.ErrUnsupportedService, entry.Service)
		}
		if seen[svc] {
			return nil, fmt.Errorf("services[%d]: duplicate service %q", i, svc)
		}
		seen[svc] = true

		desc := domain.ServiceDescriptor{
			Service:    svc,
			Issuers:    make(map[domain.Network]string, len(entry.Issuers)),
			ProfileURL: entry.ProfileURL,
		}
		for name, issuer := range entry.Issuers {
			network, err := domain.ParseNetwork(name)
			if err != nil {
				return nil, fmt.Errorf("services[%d]: %w", i, err)
			}
			if err := xrpl.ValidateAddress(issuer); err != nil {
				return nil, fmt.Errorf("services[%d] issuer on %s: %w", i, network, err)
			}
			desc.Issuers[network] = issuer
		}
		out = append(out, desc)
	}
	return out, nil
}
