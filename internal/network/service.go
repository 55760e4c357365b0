package network

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Component is a socket-owning part of the client surface.
type Component interface {
	Start(ctx context.Context) error
	Stop() error
}

// Service starts a set of components together and stops them together.
type Service struct {
	components []Component
}

// NewService groups components. Nil components are skipped so optional
// parts can be passed unconditionally.
func NewService(components ...Component) *Service {
	s := &Service{}
	for _, c := range components {
		if c != nil {
			s.components = append(s.components, c)
		}
	}
	return s
}

// Run starts every component in order and blocks until ctx is cancelled,
// then stops them concurrently. If a component fails to start, the ones
// already started are stopped and the error is returned.
func (s *Service) Run(ctx context.Context) error {
	started := make([]Component, 0, len(s.components))
	for _, c := range s.components {
		if err := c.Start(ctx); err != nil {
			stopAll(started) //nolint:errcheck // start error takes precedence
			return fmt.Errorf("starting %T: %w", c, err)
		}
		started = append(started, c)
	}

	<-ctx.Done()
	return stopAll(started)
}

func stopAll(components []Component) error {
	var g errgroup.Group
	for _, c := range components {
		g.Go(c.Stop)
	}
	return g.Wait()
}
