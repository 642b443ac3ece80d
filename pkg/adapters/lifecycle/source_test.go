package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notefold/pkg/adapters/lifecycle"
	"github.com/aretw0/notefold/pkg/core"
)

func TestSource(t *testing.T) {
	t.Run("Forwards Until Input Closes", func(t *testing.T) {
		in := make(chan core.Event, 2)
		in <- core.Event{Type: core.EventCreate, Kind: core.KindNote, ID: "n1"}
		in <- core.Event{Type: core.EventDelete, Kind: core.KindFolder, ID: "f1"}
		close(in)

		src := lifecycle.NewSource(in)
		require.NoError(t, src.Start(context.Background()))

		var got []core.Event
		timeout := time.After(2 * time.Second)
		for done := false; !done; {
			select {
			case e, ok := <-src.Events():
				if !ok {
					done = true
					continue
				}
				ev, isEvent := e.(core.Event)
				require.True(t, isEvent)
				got = append(got, ev)
			case <-timeout:
				t.Fatal("source did not close")
			}
		}
		require.Len(t, got, 2)
		assert.Equal(t, "n1", got[0].ID)
		assert.Equal(t, "f1", got[1].ID)
	})

	t.Run("Filters Kinds", func(t *testing.T) {
		in := make(chan core.Event, 2)
		in <- core.Event{Type: core.EventCreate, Kind: core.KindFolder, ID: "f1"}
		in <- core.Event{Type: core.EventModify, Kind: core.KindNote, ID: "n1"}
		close(in)

		src := lifecycle.NewSource(in, core.KindNote)
		require.NoError(t, src.Start(context.Background()))

		var ids []string
		for e := range src.Events() {
			ids = append(ids, e.(core.Event).ID)
		}
		assert.Equal(t, []string{"n1"}, ids)
	})

	t.Run("Stops On Cancel", func(t *testing.T) {
		in := make(chan core.Event)
		ctx, cancel := context.WithCancel(context.Background())

		src := lifecycle.NewSource(in)
		require.NoError(t, src.Start(ctx))
		cancel()

		select {
		case _, ok := <-src.Events():
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("source did not stop")
		}
	})
}
