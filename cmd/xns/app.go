package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"xns-resolver/internal/config"
	"xns-resolver/internal/logger"
	"xns-resolver/internal/memo"
	"xns-resolver/internal/metadata"
	"xns-resolver/internal/profile"
	"xns-resolver/internal/resolver"
	"xns-resolver/internal/xrpl"
)

// app is the wired resolver stack shared by all subcommands.
type app struct {
	config *config.Config
	logger zerolog.Logger
	engine *resolver.Engine
	memos  *memo.Store
	closer func() error
}

func (a *app) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return nil, err
	}

	if flags.network != "" {
		cfg.Network = flags.network
	}
	if flags.rpcURL != "" {
		cfg.RPCURL = flags.rpcURL
	}
	if flags.wsURL != "" {
		cfg.WSURL = flags.wsURL
	}
	if flags.indexerURL != "" {
		cfg.IndexerURL = flags.indexerURL
	}
	if flags.transport != "" {
		cfg.Transport = flags.transport
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	base, err := logger.New(cfg.Logger())
	if err != nil {
		return nil, err
	}

	rpcOpts := []xrpl.TransportOption{
		xrpl.WithTimeout(cfg.HTTPTimeout),
		xrpl.WithMaxRetries(cfg.RPCMaxRetries),
		xrpl.WithLogger(logger.WithComponent(base, "xrpl")),
	}
	indexer := xrpl.NewHTTPTransport(cfg.Indexer(), rpcOpts...)

	var node xrpl.Transport
	closer := func() error { return nil }
	if cfg.UseWebSocket() {
		wsCfg := xrpl.DefaultWSConfig()
		wsCfg.RequestTimeout = cfg.HTTPTimeout
		ws, err := xrpl.DialWS(ctx, cfg.NodeWSURL(), &wsCfg, logger.WithComponent(base, "xrpl-ws"))
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.NodeWSURL(), err)
		}
		node = ws
		closer = ws.Close
	} else {
		node = xrpl.NewHTTPTransport(cfg.NodeURL(), rpcOpts...)
	}
	ledger := xrpl.NewClient(node, indexer, logger.WithComponent(base, "ledger"))

	fetchOpts := []metadata.Option{
		metadata.WithTimeout(cfg.HTTPTimeout),
		metadata.WithLogger(logger.WithComponent(base, "metadata")),
	}
	if gateways := cfg.GatewayList(); gateways != nil {
		fetchOpts = append(fetchOpts, metadata.WithGateways(gateways))
	}
	fetcher := metadata.NewFetcher(fetchOpts...)

	profiles := profile.NewClient(
		profile.WithTimeout(cfg.HTTPTimeout),
		profile.WithRateLimit(cfg.ProfileRPS, 1),
		profile.WithLogger(logger.WithComponent(base, "profile")),
	)

	rc, err := cfg.Resolver()
	if err != nil {
		closer()
		return nil, err
	}
	engineLog := logger.WithComponent(base, "resolver")
	engine, err := resolver.New(resolver.Options{
		Config:   rc,
		Ledger:   ledger,
		Metadata: fetcher,
		Profiles: profiles,
		Logger:   &engineLog,
	})
	if err != nil {
		closer()
		return nil, err
	}

	return &app{
		config: cfg,
		logger: base,
		engine: engine,
		memos:  memo.NewStore(ledger, logger.WithComponent(base, "memo")),
		closer: closer,
	}, nil
}
