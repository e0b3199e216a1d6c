// Package resolver resolves .xrp domains to their owning NFT and performs the
// reverse lookup from an account to the domains it holds.
//
// Flow per domain: cache → naming services in order → issuer tokens →
// metadata fetch + match → ownership → profile enrichment → cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/matcher"
	"xns-resolver/internal/observability"
	"xns-resolver/internal/profile"
	"xns-resolver/internal/xrpl"
)

// MetadataResolver loads the metadata document behind a hex-encoded token URI.
type MetadataResolver interface {
	ResolveURI(ctx context.Context, hexURI string) (*domain.MetadataDocument, error)
}

// ProfileSource loads enrichment data for a domain from a profile endpoint.
type ProfileSource interface {
	Fetch(ctx context.Context, endpoint, name string) (*profile.Profile, error)
}

// Options for creating Engine.
type Options struct {
	Config Config

	// Required
	Ledger   xrpl.LedgerClient
	Metadata MetadataResolver

	// Optional; enrichment is skipped when nil.
	Profiles ProfileSource
	Logger   *zerolog.Logger
}

// Engine resolves domains. The cache and the fetch limiter are shared by all
// calls on one Engine; it is safe for concurrent use.
type Engine struct {
	config   Config
	ledger   xrpl.LedgerClient
	metadata MetadataResolver
	profiles ProfileSource
	logger   zerolog.Logger

	cache   *expirable.LRU[string, domain.DomainRecord]
	limiter *semaphore.Weighted
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Ledger == nil || opts.Metadata == nil {
		return nil, fmt.Errorf("%w: ledger client and metadata resolver are required", domain.ErrInternal)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	services := make([]domain.ServiceDescriptor, len(opts.Config.Services))
	for i, svc := range opts.Config.Services {
		services[i] = svc.Clone()
	}
	cfg := opts.Config
	cfg.Services = services

	return &Engine{
		config:   cfg,
		ledger:   opts.Ledger,
		metadata: opts.Metadata,
		profiles: opts.Profiles,
		logger:   logger,
		cache:    expirable.NewLRU[string, domain.DomainRecord](cfg.CacheSize, nil, cfg.CacheTTL),
		limiter:  semaphore.NewWeighted(int64(cfg.FetchConcurrency)),
	}, nil
}

// Network returns the ledger environment this engine resolves against.
func (e *Engine) Network() domain.Network {
	return e.config.Network
}

// Resolve returns the record for name, from cache when present.
// Errors: ErrInvalidDomain (no network access), ErrDomainNotFound, or the context error.
func (e *Engine) Resolve(ctx context.Context, name string) (*domain.DomainRecord, error) {
	if !domain.HasDomainSuffix(name) {
		return nil, fmt.Errorf("%w: domain must end with %s: %q", domain.ErrInvalidDomain, domain.DomainSuffix, name)
	}

	key := domain.NormalizeDomain(name)
	if rec, ok := e.cache.Get(key); ok {
		observability.RecordCacheLookup(true)
		e.logger.Debug().Str("domain", name).Msg("cache hit")
		out := rec.Clone()
		return &out, nil
	}
	observability.RecordCacheLookup(false)

	start := time.Now()
	log := e.logger.With().Str("domain", name).Str("trace_id", uuid.NewString()).Logger()
	log.Info().Str("network", e.config.Network.String()).Msg("resolving domain")

	rec, err := e.resolve(ctx, name, log)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		observability.RecordResolution(resolutionStatus(err), elapsed)
		return nil, err
	}

	e.cache.Add(key, rec.Clone())
	observability.RecordResolution("found", elapsed)
	log.Info().
		Str("service", string(rec.Service)).
		Str("nft_id", rec.NFTID).
		Str("owner", rec.Owner).
		Bool("owner_verified", rec.OwnerVerified).
		Float64("seconds", elapsed).
		Msg("domain resolved")
	return rec, nil
}

func (e *Engine) resolve(ctx context.Context, name string, log zerolog.Logger) (*domain.DomainRecord, error) {
	for _, svc := range e.config.Services {
		issuer, ok := svc.Issuer(e.config.Network)
		if !ok {
			log.Debug().
				Err(fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedService, svc.Service, e.config.Network)).
				Msg("skipping service")
			continue
		}

		svcLog := log.With().Str("service", string(svc.Service)).Str("issuer", issuer).Logger()
		rec, err := e.resolveFromService(ctx, name, svc, issuer, svcLog)
		if err == nil {
			return rec, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, errNoMatch) {
			svcLog.Debug().Msg("no matching token")
		} else {
			svcLog.Warn().Err(err).Msg("service lookup failed")
		}
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrDomainNotFound, name)
}

// errNoMatch marks a service that was scanned completely without a match.
var errNoMatch = errors.New("no matching token")

func (e *Engine) resolveFromService(ctx context.Context, name string, svc domain.ServiceDescriptor, issuer string, log zerolog.Logger) (*domain.DomainRecord, error) {
	tokens, err := e.listIssuerTokens(ctx, issuer, log)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("tokens", len(tokens)).Msg("scanning issuer tokens")

	token, doc, found, err := e.scan(ctx, name, tokens, log)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errNoMatch
	}

	claimed, _ := matcher.ExtractDomainName(doc)
	log.Info().Str("nft_id", token.ID).Msg("found matching token")

	rec := &domain.DomainRecord{
		Domain:      claimed,
		NFTID:       token.ID,
		Service:     svc.Service,
		Addresses:   map[string]string{},
		TextRecords: map[string]string{},
		Metadata:    doc,
	}
	if exp, ok := matcher.ExtractExpiration(doc); ok {
		rec.ExpiresAt = exp
	}

	own, err := e.ledger.GetTokenOwnership(ctx, token.ID)
	switch {
	case err == nil:
		rec.Owner = own.Owner
		rec.OwnerVerified = true
	case errors.Is(err, domain.ErrDomainNotFound):
		return nil, err
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		rec.Owner = token.Owner
		if rec.Owner == "" {
			rec.Owner = issuer
		}
		log.Warn().Err(err).Str("nft_id", token.ID).Str("owner", rec.Owner).Msg("ownership unconfirmed, using listing owner")
	}

	if svc.ProfileURL != "" && e.profiles != nil {
		e.enrich(ctx, rec, svc.ProfileURL, claimed, log)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// listIssuerTokens asks the indexer first and falls back to the ledger's account listing.
func (e *Engine) listIssuerTokens(ctx context.Context, issuer string, log zerolog.Logger) ([]domain.TokenRecord, error) {
	tokens, err := e.ledger.ListTokensByIssuer(ctx, issuer, 0)
	if err == nil {
		return tokens, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	log.Warn().Err(err).Msg("indexer listing failed, falling back to account_nfts")

	tokens, fallbackErr := e.ledger.ListTokens(ctx, issuer)
	if fallbackErr != nil {
		return nil, fmt.Errorf("list tokens for %s: %w", issuer, errors.Join(err, fallbackErr))
	}
	return tokens, nil
}

// scan walks tokens in order and stops at the first whose metadata claims name.
func (e *Engine) scan(ctx context.Context, name string, tokens []domain.TokenRecord, log zerolog.Logger) (domain.TokenRecord, *domain.MetadataDocument, bool, error) {
	processed := 0
	for _, token := range tokens {
		if !token.HasURI() {
			continue
		}
		if processed > 0 && e.config.ThrottleEvery > 0 && processed%e.config.ThrottleEvery == 0 {
			if err := e.pause(ctx); err != nil {
				return domain.TokenRecord{}, nil, false, err
			}
		}
		processed++

		doc, err := e.fetch(ctx, token.URI)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.TokenRecord{}, nil, false, ctxErr
			}
			log.Warn().Err(err).Str("nft_id", token.ID).Msg("metadata fetch failed")
			continue
		}

		if matcher.Matches(doc, name) {
			return token, doc, true, nil
		}
	}
	return domain.TokenRecord{}, nil, false, nil
}

// fetch loads metadata while holding one limiter slot.
func (e *Engine) fetch(ctx context.Context, hexURI string) (*domain.MetadataDocument, error) {
	if err := e.limiter.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	observability.IncFetchInFlight()
	defer func() {
		observability.DecFetchInFlight()
		e.limiter.Release(1)
	}()

	return e.metadata.ResolveURI(ctx, hexURI)
}

func (e *Engine) pause(ctx context.Context) error {
	if e.config.ThrottlePause <= 0 {
		return nil
	}
	observability.RecordThrottlePause()

	timer := time.NewTimer(e.config.ThrottlePause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enrich merges profile data into rec. Failures are logged and dropped.
func (e *Engine) enrich(ctx context.Context, rec *domain.DomainRecord, endpoint, name string, log zerolog.Logger) {
	p, err := e.profiles.Fetch(ctx, endpoint, name)
	if err != nil {
		observability.RecordEnrichment(false)
		log.Debug().Err(err).Msg("profile enrichment failed")
		return
	}
	observability.RecordEnrichment(true)

	for symbol, addr := range p.Addresses {
		rec.Addresses[symbol] = addr
	}
	for key, value := range p.TextRecords {
		rec.TextRecords[key] = value
	}
}

// ReverseLookup returns every domain name claimed by tokens held by address,
// in token order. Results are neither cached nor deduplicated.
func (e *Engine) ReverseLookup(ctx context.Context, address string) ([]string, error) {
	if err := xrpl.ValidateAddress(address); err != nil {
		return nil, err
	}

	log := e.logger.With().Str("address", address).Str("trace_id", uuid.NewString()).Logger()
	log.Info().Msg("reverse lookup")

	tokens, err := e.ledger.ListTokens(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("list tokens for %s: %w", address, err)
	}

	names := make([]string, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.FetchConcurrency)
	for i, token := range tokens {
		i, token := i, token
		if !token.HasURI() {
			continue
		}
		g.Go(func() error {
			doc, err := e.fetch(gctx, token.URI)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Debug().Err(err).Str("nft_id", token.ID).Msg("skipping token")
				return nil
			}
			if name, ok := matcher.ExtractDomainName(doc); ok {
				names[i] = name
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	domains := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			domains = append(domains, name)
		}
	}

	observability.RecordReverseLookup(len(domains))
	log.Info().Int("tokens", len(tokens)).Int("domains", len(domains)).Msg("reverse lookup complete")
	return domains, nil
}

// ClearCache drops every cached record.
func (e *Engine) ClearCache() {
	e.cache.Purge()
	e.logger.Debug().Msg("cache cleared")
}

// CacheLen returns the number of live cache entries.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

func resolutionStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidDomain):
		return "invalid"
	case errors.Is(err, domain.ErrDomainNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
