package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type dependency struct {
	name   string
	client pinger
}

type ServiceParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	Redis     pinger
	PubSub    pinger
	Consumers map[string]consumer
	Closers   []io.Closer
}

// Service runs the Pub/Sub consumers of the worker binary until one fails or
// the context is cancelled.
type Service struct {
	cfg       *config.Config
	logg      *logger.Logger
	deps      []dependency
	consumers map[string]consumer
	closers   []io.Closer
	heartbeat time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case len(params.Consumers) == 0:
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("%s consumer is nil", name)
		}
	}

	return &Service{
		cfg:  params.Config,
		logg: params.Logger,
		deps: []dependency{
			{name: "redis", client: params.Redis},
			{name: "pubsub", client: params.PubSub},
		},
		consumers: params.Consumers,
		closers:   params.Closers,
		heartbeat: time.Minute,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.client.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(s.consumers))
	for name, c := range s.consumers {
		go func(name string, c consumer) {
			results <- result{name: name, err: c.Run(runCtx)}
		}(name, c)
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case res := <-results:
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				s.logg.Error(s.logg.WithField(ctx, "consumer", res.name), "consumer stopped unexpectedly", res.err)
				return fmt.Errorf("%s consumer: %w", res.name, res.err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%s consumer exited", res.name)
		case <-ticker.C:
			s.logg.Debug(ctx, "worker.heartbeat")
		}
	}
}

// Close releases every client handed to the service and reports all failures.
func (s *Service) Close() error {
	var errs error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}
