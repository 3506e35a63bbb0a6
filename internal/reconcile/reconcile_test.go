package reconcile

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubActor struct {
	section  any
	started  atomic.Bool
	stopped  atomic.Bool
	verdict  actor.Verdict
	reconErr error
}

func (s *stubActor) Start(ctx context.Context, state *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error {
	s.started.Store(true)
	<-ctx.Done()
	return nil
}

func (s *stubActor) Stop() { s.stopped.Store(true) }

func (s *stubActor) Reconfigure(section any) (actor.Verdict, error) {
	s.section = section
	return s.verdict, s.reconErr
}

func newFixture(t *testing.T) (*actor.Registry, *Reconciler, map[string]*stubActor) {
	t.Helper()
	b := bus.New()
	reader, _ := gamestate.New()
	registry := actor.NewRegistry(b, &reader)

	built := make(map[string]*stubActor)
	factory := func(spec config.ActorSpec) (actor.Actor, error) {
		sa := &stubActor{verdict: actor.Applied}
		built[spec.GlobalID] = sa
		return sa, nil
	}
	rc := New(registry, context.Background(), factory)
	return registry, rc, built
}

func TestReconcileStartsNewActors(t *testing.T) {
	registry, rc, built := newFixture(t)

	desired := config.Resolved{Actors: []config.ActorSpec{
		{GlobalID: "mevo.0", Type: actor.TypeMevo, Section: config.MevoSection{Name: "a"}},
	}}

	result, err := rc.Reconcile(context.Background(), desired)
	require.NoError(t, err)
	assert.Equal(t, []string{"mevo.0"}, result.Started)

	_, ok := registry.Get("mevo.0")
	assert.True(t, ok)
	assert.Contains(t, built, "mevo.0")
}

func TestReconcileStopsRemovedActors(t *testing.T) {
	registry, rc, _ := newFixture(t)

	desired := config.Resolved{Actors: []config.ActorSpec{
		{GlobalID: "mevo.0", Type: actor.TypeMevo, Section: config.MevoSection{Name: "a"}},
	}}
	_, err := rc.Reconcile(context.Background(), desired)
	require.NoError(t, err)

	result, err := rc.Reconcile(context.Background(), config.Resolved{})
	require.NoError(t, err)
	assert.Equal(t, []string{"mevo.0"}, result.Stopped)

	_, ok := registry.Get("mevo.0")
	assert.False(t, ok)
}

func TestReconcileNoChangeSkipsReconfigure(t *testing.T) {
	_, rc, built := newFixture(t)

	spec := config.ActorSpec{GlobalID: "mevo.0", Type: actor.TypeMevo, Section: config.MevoSection{Name: "a"}}
	desired := config.Resolved{Actors: []config.ActorSpec{spec}}

	_, err := rc.Reconcile(context.Background(), desired)
	require.NoError(t, err)

	result, err := rc.Reconcile(context.Background(), desired)
	require.NoError(t, err)
	assert.Empty(t, result.Started)
	assert.Empty(t, result.Stopped)
	assert.Empty(t, result.Restarted)
	assert.Nil(t, built["mevo.0"].section, "unchanged spec should never call Reconfigure again")
}

func TestReconcileAppliesInPlaceChange(t *testing.T) {
	_, rc, built := newFixture(t)

	specA := config.ActorSpec{GlobalID: "mevo.0", Type: actor.TypeMevo, Section: config.MevoSection{Name: "a"}}
	_, err := rc.Reconcile(context.Background(), config.Resolved{Actors: []config.ActorSpec{specA}})
	require.NoError(t, err)

	specB := config.ActorSpec{GlobalID: "mevo.0", Type: actor.TypeMevo, Section: config.MevoSection{Name: "b"}}
	result, err := rc.Reconcile(context.Background(), config.Resolved{Actors: []config.ActorSpec{specB}})
	require.NoError(t, err)
	assert.Empty(t, result.Restarted)
	assert.Equal(t, config.MevoSection{Name: "b"}, built["mevo.0"].section)
}

func TestReconcileRestartsWhenRequired(t *testing.T) {
	registry, rc, built := newFixture(t)

	specA := config.ActorSpec{GlobalID: "mevo.0", Type: actor.TypeMevo, Section: config.MevoSection{Name: "a"}}
	_, err := rc.Reconcile(context.Background(), config.Resolved{Actors: []config.ActorSpec{specA}})
	require.NoError(t, err)
	built["mevo.0"].verdict = actor.RestartRequired
	original := built["mevo.0"]

	specB := config.ActorSpec{GlobalID: "mevo.0", Type: actor.TypeMevo, Section: config.MevoSection{Name: "b"}}
	result, err := rc.Reconcile(context.Background(), config.Resolved{Actors: []config.ActorSpec{specB}})
	require.NoError(t, err)
	assert.Equal(t, []string{"mevo.0"}, result.Restarted)

	_, ok := registry.Get("mevo.0")
	require.True(t, ok)
	assert.NotSame(t, original, built["mevo.0"], "restart must construct a fresh actor instance")
}

func TestReconcileNeverTouchesSystemActor(t *testing.T) {
	registry, rc, _ := newFixture(t)
	registry.Start(context.Background(), actor.SystemID, actor.TypeSystem, &stubActor{verdict: actor.Applied})

	result, err := rc.Reconcile(context.Background(), config.Resolved{})
	require.NoError(t, err)
	assert.NotContains(t, result.Stopped, actor.SystemID)

	_, ok := registry.Get(actor.SystemID)
	assert.True(t, ok)
}
