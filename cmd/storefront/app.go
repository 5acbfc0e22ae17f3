package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumi-glow/storefront/internal/address"
	"github.com/lumi-glow/storefront/internal/cart"
	"github.com/lumi-glow/storefront/internal/checkout"
	"github.com/lumi-glow/storefront/internal/commerce"
	"github.com/lumi-glow/storefront/internal/identity"
	"github.com/lumi-glow/storefront/internal/payments"
	"github.com/lumi-glow/storefront/internal/shipping"
	"github.com/lumi-glow/storefront/internal/storage"
	"github.com/lumi-glow/storefront/pkg/config"
	"github.com/lumi-glow/storefront/pkg/errors"
	"github.com/lumi-glow/storefront/pkg/logger"
)

// app holds the wired storefront core for one CLI invocation.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	store     storage.Storage
	cart      *cart.Store
	identity  *identity.Service
	addresses address.Service
	shipping  shipping.Service
	client    *commerce.Client
	orch      *checkout.Orchestrator

	closers []func() error
}

// newApp wires the whole core from configuration.
func newApp(ctx context.Context, logg *logger.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	a := &app{cfg: cfg, log: logg}

	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}

	a.identity, err = identity.NewService(a.store, logg)
	if err != nil {
		return nil, fmt.Errorf("identity service: %w", err)
	}

	a.client, err = commerce.NewClient(cfg.API.BaseURL,
		commerce.WithTokenSource(a.identity),
	)
	if err != nil {
		return nil, fmt.Errorf("commerce client: %w", err)
	}

	a.cart, err = cart.NewStore(ctx, a.store, logg)
	if err != nil {
		return nil, fmt.Errorf("cart store: %w", err)
	}

	a.addresses, err = address.NewService(a.client)
	if err != nil {
		return nil, fmt.Errorf("address service: %w", err)
	}

	a.shipping, err = shipping.NewService(a.client, logg)
	if err != nil {
		return nil, fmt.Errorf("shipping service: %w", err)
	}

	capturer, err := a.buildCapturer()
	if err != nil {
		return nil, err
	}

	a.orch, err = checkout.NewOrchestrator(a.cart, a.identity, a.addresses, a.shipping, a.client, capturer, logg)
	if err != nil {
		return nil, fmt.Errorf("checkout orchestrator: %w", err)
	}
	a.closers = append(a.closers, func() error {
		a.orch.Close()
		return nil
	})

	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	switch strings.ToLower(strings.TrimSpace(a.cfg.Storage.Backend)) {
	case config.StorageBackendMemory:
		a.store = storage.NewMemory()
	case config.StorageBackendRedis:
		client, err := storage.NewRedis(ctx, a.cfg.Redis)
		if err != nil {
			return fmt.Errorf("bootstrap redis storage: %w", err)
		}
		a.store = client
		a.closers = append(a.closers, client.Close)
	default:
		client, err := storage.NewSQLite(a.cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("bootstrap sqlite storage: %w", err)
		}
		a.store = client
		a.closers = append(a.closers, client.Close)
	}
	return nil
}

// buildCapturer returns the card gateway when one is configured, else a
// capturer that refuses card payments with a clear message.
func (a *app) buildCapturer() (payments.Capturer, error) {
	if strings.TrimSpace(a.cfg.Payment.GatewayBaseURL) == "" {
		return payments.CapturerFunc(func(ctx context.Context, clientSecret string) error {
			return errors.New(errors.CodePayment, "card payments are not configured, choose another method")
		}), nil
	}
	gateway, err := payments.NewGateway(a.cfg.Payment)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	return gateway, nil
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn(ctx, "close resource", err)
		}
	}
}
