package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/user/campuschat/internal/campus"
	"github.com/user/campuschat/internal/config"
	ctxengine "github.com/user/campuschat/internal/context"
	"github.com/user/campuschat/internal/gateway"
	"github.com/user/campuschat/internal/session"
	"github.com/user/campuschat/internal/state"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant/portal"
)

// app wires the configured stores, portal clients and gateway.
type app struct {
	cfg      *config.Config
	user     *types.User
	store    types.HistoryStore
	contexts *gateway.PortalContext
	gateway  *gateway.Gateway

	closeStore func() error
}

func newApp(cfg *config.Config, opts gateway.Options) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, closeStore, err := state.Open(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	engine, err := ctxengine.New(cfg.Context.Model, cfg.Context.MaxTokens, cfg.Context.ItemTokens)
	if err != nil {
		slog.Warn("context token budget disabled", "error", err)
		engine = nil
	}

	contexts := &gateway.PortalContext{
		Campus: campus.New(campus.Config{
			BaseURL: cfg.Portal.BaseURL,
			Token:   cfg.Portal.Token,
			Timeout: cfg.PortalTimeout(),
		}),
		Assembler: ctxengine.NewAssembler(campusInfo(cfg), engine),
	}

	backend := portal.New(&portal.Config{
		BaseURL:       cfg.Portal.BaseURL,
		Token:         cfg.Portal.Token,
		HeaderTimeout: cfg.PortalTimeout(),
	})

	opts.Stream = cfg.Chat.Stream
	opts.Cache = cfg.Chat.Cache
	opts.HistoryLimit = cfg.Chat.HistoryLimit

	gw := gateway.New(store, backend, contexts, opts, int64(cfg.Chat.MaxConcurrent))
	gw.WithSessionOptions(session.Options{BannerDelay: cfg.BannerDelay()})

	slog.Debug("campuschat configured",
		"base_url", cfg.Portal.BaseURL,
		"storage", cfg.Storage.Backend,
		"stream", cfg.Chat.Stream,
		"role", types.RoleOf(cfg.CurrentUser()),
	)

	return &app{
		cfg:        cfg,
		user:       cfg.CurrentUser(),
		store:      store,
		contexts:   contexts,
		gateway:    gw,
		closeStore: closeStore,
	}, nil
}

func (a *app) Close() {
	a.gateway.Close()
	if err := a.closeStore(); err != nil {
		slog.Warn("close history store", "error", err)
	}
}

func campusInfo(cfg *config.Config) ctxengine.CampusInfo {
	info := ctxengine.DefaultCampusInfo
	if cfg.Campus.Name != "" {
		info.Name = cfg.Campus.Name
	}
	if cfg.Campus.Location != "" {
		info.Location = cfg.Campus.Location
	}
	if cfg.Campus.Website != "" {
		info.Website = cfg.Campus.Website
	}
	if cfg.Campus.Contact != "" {
		info.Contact = cfg.Campus.Contact
	}
	return info
}
