// Package webserver implements the webserver actor: it owns the
// process's single HTTP listener, mounting the REST surface
// (internal/httpapi) and the WebSocket bridge (internal/wsbridge) on
// one bind address per `[webserver.N]` section.
package webserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/health"
	"github.com/flighthook/flighthook/internal/httpapi"
	"github.com/flighthook/flighthook/internal/log"
	"github.com/flighthook/flighthook/internal/wsbridge"
)

const shutdownGrace = 5 * time.Second

// Webserver is the Actor implementation for one `[webserver.N]`
// section. Reconfigure can absorb a name change in place, but a bind
// address change requires a full restart since net/http.Server cannot
// migrate to a different listener.
type Webserver struct {
	globalID string
	bus      *bus.Bus
	system   httpapi.Snapshotter
	health   *health.Manager

	mu   sync.Mutex
	name string
	bind string

	stopOnce sync.Once
	cancel   context.CancelFunc
}

// New constructs a Webserver actor. system is the SystemActor,
// satisfying httpapi.Snapshotter. healthMgr is shared across every
// configured webserver section so /readyz reflects the same process
// state everywhere it is mounted; it may be nil, in which case
// liveness/readiness are not mounted for this section.
func New(globalID, name, bind string, b *bus.Bus, system httpapi.Snapshotter, healthMgr *health.Manager) *Webserver {
	return &Webserver{globalID: globalID, name: name, bind: bind, bus: b, system: system, health: healthMgr}
}

func (w *Webserver) currentBind() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bind
}

// Start builds a fresh httpapi.Server bound to this actor's global ID,
// mounts it alongside the WebSocket bridge on one net/http.Server, and
// runs both until ctx is cancelled or Stop is called.
func (w *Webserver) Start(ctx context.Context, state *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	defer cancel()

	logger := log.WithComponent("webserver").With().Str(log.FieldGlobalID, w.globalID).Logger()

	api := httpapi.New(w.globalID, w.bus, state, w.system)
	go api.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.Router())
	mux.HandleFunc("/api/ws", wsbridge.Handler(w.bus, state))
	mux.Handle("/metrics", promhttp.Handler())
	if w.health != nil {
		mux.HandleFunc("/livez", w.health.ServeLive)
		mux.HandleFunc("/readyz", w.health.ServeReady)
	}

	httpSrv := &http.Server{Addr: w.currentBind(), Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	_ = sender.Send(bus.ActorStatusEvent{Status: bus.StatusConnected}, nil)
	logger.Info().Str("bind", w.currentBind()).Msg("webserver listening")

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("webserver shutdown did not complete cleanly")
		}
		return nil
	case err := <-errCh:
		_ = sender.Send(bus.ActorStatusEvent{Status: bus.StatusDisconnected, Telemetry: map[string]string{"error": err.Error()}}, nil)
		return err
	}
}

// Stop is idempotent; it cancels the run loop, triggering a graceful
// HTTP shutdown.
func (w *Webserver) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
	})
}

// Reconfigure applies a renamed WebserverSection in place; a changed
// bind address requires a restart since the listener cannot move.
func (w *Webserver) Reconfigure(section any) (actor.Verdict, error) {
	sect, ok := section.(config.WebserverSection)
	if !ok {
		return actor.NoChange, nil
	}
	if sect.Bind != w.currentBind() {
		return actor.RestartRequired, nil
	}
	w.mu.Lock()
	w.name = sect.Name
	w.mu.Unlock()
	return actor.Applied, nil
}
