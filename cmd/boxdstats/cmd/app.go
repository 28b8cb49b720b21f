package cmd

import (
	"boxdstats/internal/components/chrono"
	"boxdstats/internal/components/pagecache"
	"boxdstats/internal/components/telemetry"
	"boxdstats/internal/pipeline"
	"boxdstats/internal/scrapers/letterboxd"
	"boxdstats/internal/store"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// app holds everything a command may need, closers run in reverse order on close.
type app struct {
	cfg   Config
	clock chrono.API
	tel   telemetry.API

	closers []func() error
}

func newApp(cfg Config) (*app, error) {
	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return &app{
		cfg:   cfg,
		clock: clock,
		tel:   telemetry.SlogAPI{},
	}, nil
}

func (a *app) onClose(closer func() error) {
	a.closers = append(a.closers, closer)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) client() (*letterboxd.Client, error) {
	opts := a.cfg.clientOptions()
	if a.cfg.PageCache.Dir != "" {
		cache, err := pagecache.Open(a.cfg.pageCacheOptions(), a.clock, a.tel)
		if err != nil {
			return nil, fmt.Errorf("open page cache: %w", err)
		}
		a.onClose(cache.Close)
		opts.Cache = cache
	}
	return letterboxd.NewClient(opts, a.tel)
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	return pipeline.New(client, a.cfg.Workers, a.tel)
}

func (a *app) store(ctx context.Context) (*store.Store, error) {
	s, err := store.Open(ctx, a.cfg.Database, a.clock, a.tel)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.cfg.Database, err)
	}
	a.onClose(s.Close)
	return s, nil
}

func (a *app) syncer(ctx context.Context) (pipeline.Syncer, *store.Store, error) {
	p, err := a.pipeline()
	if err != nil {
		return pipeline.Syncer{}, nil, err
	}
	s, err := a.store(ctx)
	if err != nil {
		return pipeline.Syncer{}, nil, err
	}
	return pipeline.NewSyncer(p, s, a.clock, a.tel), s, nil
}

// signalContext lives until SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// describe turns a list failure into something a user can act on.
func describe(username string, err error) string {
	switch {
	case errors.Is(err, letterboxd.ErrUserNotFound):
		return fmt.Sprintf("user %q does not exist or their films are private", username)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s: cancelled", username)
	case letterboxd.IsTransient(err):
		return fmt.Sprintf("%s: the site is not responding right now, try again later (%v)", username, err)
	default:
		return fmt.Sprintf("%s: %v", username, err)
	}
}
