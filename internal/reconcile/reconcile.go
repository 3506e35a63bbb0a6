// Package reconcile diffs a desired resolved configuration against the
// currently running actor set and drives the registry to match it.
package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/log"
	"github.com/flighthook/flighthook/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Factory constructs a fresh, unstarted Actor for an ActorSpec. The
// SystemActor supplies the concrete implementation (a mevo session, a
// gspro integration, the webserver, ...) keyed by spec.Type.
type Factory func(spec config.ActorSpec) (actor.Actor, error)

// Result reports which global IDs were started, stopped, or restarted
// by one Reconcile call.
type Result struct {
	Started   []string
	Stopped   []string
	Restarted []string
}

// Reconciler is invoked exactly once at a time, only by SystemActor,
// but internally fans independent actor operations out across
// goroutines via errgroup so one slow Start doesn't stall the others.
type Reconciler struct {
	registry *actor.Registry
	root     context.Context
	factory  Factory

	mu   sync.Mutex
	last map[string]config.ActorSpec
}

// New constructs a Reconciler. root is the parent context under which
// every actor it starts will run for its full lifetime, independent of
// any single Reconcile call's context.
func New(registry *actor.Registry, root context.Context, factory Factory) *Reconciler {
	return &Reconciler{registry: registry, root: root, factory: factory, last: make(map[string]config.ActorSpec)}
}

// Reconcile brings the running actor set in line with desired:
// actors no longer in desired are stopped, actors newly in desired are
// constructed and started, and actors present in both are reconfigured
// in place unless their spec requires a restart.
func (rc *Reconciler) Reconcile(ctx context.Context, desired config.Resolved) (Result, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	logger := log.WithComponent("reconcile")
	desiredIDs := desired.IDs()
	current := rc.registry.All()

	var toDelete []*actor.Handle
	for _, h := range current {
		if h.GlobalID == actor.SystemID {
			continue
		}
		if _, want := desiredIDs[h.GlobalID]; !want {
			toDelete = append(toDelete, h)
		}
	}

	var result Result
	var resMu sync.Mutex

	deleteGroup, _ := errgroup.WithContext(ctx)
	for _, h := range toDelete {
		h := h
		deleteGroup.Go(func() error {
			h.Stop()
			h.Wait()
			rc.registry.Remove(h.GlobalID)
			resMu.Lock()
			result.Stopped = append(result.Stopped, h.GlobalID)
			resMu.Unlock()
			logger.Info().Str(log.FieldGlobalID, h.GlobalID).Msg("actor stopped: no longer in config")
			return nil
		})
	}
	if err := deleteGroup.Wait(); err != nil {
		return result, fmt.Errorf("reconcile: stop phase: %w", err)
	}

	retainGroup, _ := errgroup.WithContext(ctx)
	for _, spec := range desired.Actors {
		spec := spec
		h, exists := rc.registry.Get(spec.GlobalID)
		if !exists {
			continue
		}
		retainGroup.Go(func() error {
			prev, hadPrev := rc.last[spec.GlobalID]
			if hadPrev && reflect.DeepEqual(prev.Section, spec.Section) {
				return nil
			}
			verdict, err := h.Reconfigure(spec.Section)
			if err != nil {
				return fmt.Errorf("reconfigure %s: %w", spec.GlobalID, err)
			}
			switch verdict {
			case actor.NoChange:
				// nothing to report
			case actor.Applied:
				logger.Info().Str(log.FieldGlobalID, spec.GlobalID).Msg("actor reconfigured in place")
			case actor.RestartRequired:
				h.Stop()
				h.Wait()
				rc.registry.Remove(spec.GlobalID)
				newActor, err := rc.factory(spec)
				if err != nil {
					return fmt.Errorf("rebuild %s: %w", spec.GlobalID, err)
				}
				rc.registry.Start(rc.root, spec.GlobalID, spec.Type, newActor)
				resMu.Lock()
				result.Restarted = append(result.Restarted, spec.GlobalID)
				resMu.Unlock()
				logger.Info().Str(log.FieldGlobalID, spec.GlobalID).Msg("actor restarted: config change required it")
			}
			return nil
		})
	}
	if err := retainGroup.Wait(); err != nil {
		return result, fmt.Errorf("reconcile: reconfigure phase: %w", err)
	}

	startGroup, _ := errgroup.WithContext(ctx)
	for _, spec := range desired.Actors {
		spec := spec
		if _, exists := rc.registry.Get(spec.GlobalID); exists {
			continue
		}
		startGroup.Go(func() error {
			newActor, err := rc.factory(spec)
			if err != nil {
				return fmt.Errorf("construct %s: %w", spec.GlobalID, err)
			}
			rc.registry.Start(rc.root, spec.GlobalID, spec.Type, newActor)
			resMu.Lock()
			result.Started = append(result.Started, spec.GlobalID)
			resMu.Unlock()
			logger.Info().Str(log.FieldGlobalID, spec.GlobalID).Msg("actor started")
			return nil
		})
	}
	if err := startGroup.Wait(); err != nil {
		return result, fmt.Errorf("reconcile: start phase: %w", err)
	}

	rc.last = make(map[string]config.ActorSpec, len(desired.Actors))
	for _, spec := range desired.Actors {
		rc.last[spec.GlobalID] = spec
	}

	metrics.IncReconcileActors("started", len(result.Started))
	metrics.IncReconcileActors("stopped", len(result.Stopped))
	metrics.IncReconcileActors("restarted", len(result.Restarted))

	return result, nil
}
