// Package lifecycle exposes store change events as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/notefold/pkg/core"
)

type eventSource struct {
	events <-chan core.Event
	kinds  map[core.EntryKind]bool
	out    chan lifecycle.Event
}

// NewSource wraps a store event channel as a lifecycle.Source. When kinds are
// given, only events of those kinds are forwarded.
func NewSource(events <-chan core.Event, kinds ...core.EntryKind) lifecycle.Source {
	s := &eventSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	if len(kinds) > 0 {
		s.kinds = make(map[core.EntryKind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	return s
}

func (s *eventSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start forwards events until the store channel closes or ctx is done,
// then closes Events.
func (s *eventSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if s.kinds != nil && !s.kinds[e.Kind] {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
